// Package memory provides the authoritative in-memory entity store for
// equipment, maintenance events, stock items, technicians and interventions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/gasguard/internal/persistence"
)

// Storage holds every entity record behind a single RWMutex. Records are
// cloned on the way in and out so callers never share mutable state with the
// store.
type Storage struct {
	mu            sync.RWMutex
	equipment     map[string]persistence.Equipment
	serials       map[string]string
	maintenance   map[string]persistence.MaintenanceEvent
	stock         map[string]persistence.StockItem
	technicians   map[string]persistence.Technician
	interventions map[string]persistence.Intervention
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		equipment:     make(map[string]persistence.Equipment),
		serials:       make(map[string]string),
		maintenance:   make(map[string]persistence.MaintenanceEvent),
		stock:         make(map[string]persistence.StockItem),
		technicians:   make(map[string]persistence.Technician),
		interventions: make(map[string]persistence.Intervention),
	}
}

// --- EquipmentRepository implementation ---

// CreateEquipment stores new equipment. Both the id and the serial must be unique.
func (s *Storage) CreateEquipment(ctx context.Context, equipment persistence.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.equipment[equipment.ID]; ok {
		return fmt.Errorf("memory: equipment %s: %w", equipment.ID, persistence.ErrDuplicate)
	}
	key := serialKey(equipment.Serial)
	if _, ok := s.serials[key]; ok {
		return fmt.Errorf("memory: serial %s: %w", equipment.Serial, persistence.ErrDuplicate)
	}

	s.equipment[equipment.ID] = cloneEquipment(equipment)
	s.serials[key] = equipment.ID
	return nil
}

// UpdateEquipment applies patch to a copy of the stored record and commits it
// only when patch succeeds and the id and serial are left untouched.
func (s *Storage) UpdateEquipment(ctx context.Context, id string, patch func(*persistence.Equipment) error) (persistence.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.equipment[id]
	if !ok {
		return persistence.Equipment{}, persistence.ErrNotFound
	}

	updated := cloneEquipment(existing)
	if patch != nil {
		if err := patch(&updated); err != nil {
			return persistence.Equipment{}, err
		}
	}
	if updated.ID != existing.ID {
		return persistence.Equipment{}, fmt.Errorf("memory: equipment id: %w", persistence.ErrImmutableField)
	}
	if updated.Serial != existing.Serial {
		return persistence.Equipment{}, fmt.Errorf("memory: equipment serial: %w", persistence.ErrImmutableField)
	}

	s.equipment[id] = cloneEquipment(updated)
	return cloneEquipment(updated), nil
}

// DeleteEquipment removes equipment together with its maintenance events so
// that no event is left referencing a missing record.
func (s *Storage) DeleteEquipment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.equipment[id]
	if !ok {
		return persistence.ErrNotFound
	}

	delete(s.equipment, id)
	delete(s.serials, serialKey(existing.Serial))

	for eventID, event := range s.maintenance {
		if event.EquipmentID == id {
			delete(s.maintenance, eventID)
		}
	}

	return nil
}

// GetEquipment retrieves equipment by ID.
func (s *Storage) GetEquipment(ctx context.Context, id string) (persistence.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	equipment, ok := s.equipment[id]
	if !ok {
		return persistence.Equipment{}, persistence.ErrNotFound
	}
	return cloneEquipment(equipment), nil
}

// ListEquipment returns equipment accepted by match (all when match is nil),
// ordered by CreatedAt then ID.
func (s *Storage) ListEquipment(ctx context.Context, match func(persistence.Equipment) bool) ([]persistence.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]persistence.Equipment, 0, len(s.equipment))
	for _, equipment := range s.equipment {
		if match != nil && !match(equipment) {
			continue
		}
		list = append(list, cloneEquipment(equipment))
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	return list, nil
}

// --- MaintenanceRepository implementation ---

// CreateMaintenanceEvent stores a new event for existing equipment.
func (s *Storage) CreateMaintenanceEvent(ctx context.Context, event persistence.MaintenanceEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maintenance[event.ID]; ok {
		return fmt.Errorf("memory: maintenance event %s: %w", event.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.equipment[event.EquipmentID]; !ok {
		return fmt.Errorf("memory: equipment %s: %w", event.EquipmentID, persistence.ErrReferenceMissing)
	}

	s.maintenance[event.ID] = cloneMaintenanceEvent(event)
	return nil
}

// UpdateMaintenanceEvent applies patch to a copy of the stored event. The id
// and equipment reference cannot change.
func (s *Storage) UpdateMaintenanceEvent(ctx context.Context, id string, patch func(*persistence.MaintenanceEvent) error) (persistence.MaintenanceEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.maintenance[id]
	if !ok {
		return persistence.MaintenanceEvent{}, persistence.ErrNotFound
	}

	updated := cloneMaintenanceEvent(existing)
	if patch != nil {
		if err := patch(&updated); err != nil {
			return persistence.MaintenanceEvent{}, err
		}
	}
	if updated.ID != existing.ID || updated.EquipmentID != existing.EquipmentID {
		return persistence.MaintenanceEvent{}, fmt.Errorf("memory: maintenance event reference: %w", persistence.ErrImmutableField)
	}

	s.maintenance[id] = cloneMaintenanceEvent(updated)
	return cloneMaintenanceEvent(updated), nil
}

// DeleteMaintenanceEvent removes an event by ID.
func (s *Storage) DeleteMaintenanceEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.maintenance[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.maintenance, id)
	return nil
}

// GetMaintenanceEvent retrieves an event by ID.
func (s *Storage) GetMaintenanceEvent(ctx context.Context, id string) (persistence.MaintenanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.maintenance[id]
	if !ok {
		return persistence.MaintenanceEvent{}, persistence.ErrNotFound
	}
	return cloneMaintenanceEvent(event), nil
}

// ListMaintenanceEvents returns events accepted by match ordered by date then ID.
func (s *Storage) ListMaintenanceEvents(ctx context.Context, match func(persistence.MaintenanceEvent) bool) ([]persistence.MaintenanceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]persistence.MaintenanceEvent, 0, len(s.maintenance))
	for _, event := range s.maintenance {
		if match != nil && !match(event) {
			continue
		}
		list = append(list, cloneMaintenanceEvent(event))
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Date.Equal(list[j].Date) {
			return list[i].ID < list[j].ID
		}
		return list[i].Date.Before(list[j].Date)
	})

	return list, nil
}

// --- StockRepository implementation ---

// CreateStockItem stores a new stock item.
func (s *Storage) CreateStockItem(ctx context.Context, item persistence.StockItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stock[item.ID]; ok {
		return fmt.Errorf("memory: stock item %s: %w", item.ID, persistence.ErrDuplicate)
	}
	s.stock[item.ID] = item
	return nil
}

// UpdateStockItem applies patch to a copy of the stored item.
func (s *Storage) UpdateStockItem(ctx context.Context, id string, patch func(*persistence.StockItem) error) (persistence.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.stock[id]
	if !ok {
		return persistence.StockItem{}, persistence.ErrNotFound
	}

	updated := existing
	if patch != nil {
		if err := patch(&updated); err != nil {
			return persistence.StockItem{}, err
		}
	}
	if updated.ID != existing.ID {
		return persistence.StockItem{}, fmt.Errorf("memory: stock item id: %w", persistence.ErrImmutableField)
	}

	s.stock[id] = updated
	return updated, nil
}

// DeleteStockItem removes a stock item by ID.
func (s *Storage) DeleteStockItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stock[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.stock, id)
	return nil
}

// GetStockItem retrieves a stock item by ID.
func (s *Storage) GetStockItem(ctx context.Context, id string) (persistence.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.stock[id]
	if !ok {
		return persistence.StockItem{}, persistence.ErrNotFound
	}
	return item, nil
}

// ListStockItems returns stock items accepted by match ordered by name.
func (s *Storage) ListStockItems(ctx context.Context, match func(persistence.StockItem) bool) ([]persistence.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]persistence.StockItem, 0, len(s.stock))
	for _, item := range s.stock {
		if match != nil && !match(item) {
			continue
		}
		list = append(list, item)
	}

	sort.Slice(list, func(i, j int) bool {
		if strings.EqualFold(list[i].Name, list[j].Name) {
			return list[i].ID < list[j].ID
		}
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})

	return list, nil
}

// --- TechnicianRepository implementation ---

// CreateTechnician stores a new technician.
func (s *Storage) CreateTechnician(ctx context.Context, technician persistence.Technician) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.technicians[technician.ID]; ok {
		return fmt.Errorf("memory: technician %s: %w", technician.ID, persistence.ErrDuplicate)
	}
	s.technicians[technician.ID] = technician
	return nil
}

// GetTechnician retrieves a technician by ID.
func (s *Storage) GetTechnician(ctx context.Context, id string) (persistence.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	technician, ok := s.technicians[id]
	if !ok {
		return persistence.Technician{}, persistence.ErrNotFound
	}
	return technician, nil
}

// ListTechnicians returns technicians accepted by match ordered by name.
func (s *Storage) ListTechnicians(ctx context.Context, match func(persistence.Technician) bool) ([]persistence.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]persistence.Technician, 0, len(s.technicians))
	for _, technician := range s.technicians {
		if match != nil && !match(technician) {
			continue
		}
		list = append(list, technician)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Name == list[j].Name {
			return list[i].ID < list[j].ID
		}
		return list[i].Name < list[j].Name
	})

	return list, nil
}

// --- InterventionRepository implementation ---

// CreateIntervention stores a new intervention.
func (s *Storage) CreateIntervention(ctx context.Context, intervention persistence.Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.interventions[intervention.ID]; ok {
		return fmt.Errorf("memory: intervention %s: %w", intervention.ID, persistence.ErrDuplicate)
	}
	s.interventions[intervention.ID] = cloneIntervention(intervention)
	return nil
}

// UpdateIntervention applies patch to a copy of the stored intervention.
func (s *Storage) UpdateIntervention(ctx context.Context, id string, patch func(*persistence.Intervention) error) (persistence.Intervention, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.interventions[id]
	if !ok {
		return persistence.Intervention{}, persistence.ErrNotFound
	}

	updated := cloneIntervention(existing)
	if patch != nil {
		if err := patch(&updated); err != nil {
			return persistence.Intervention{}, err
		}
	}
	if updated.ID != existing.ID {
		return persistence.Intervention{}, fmt.Errorf("memory: intervention id: %w", persistence.ErrImmutableField)
	}

	s.interventions[id] = cloneIntervention(updated)
	return cloneIntervention(updated), nil
}

// GetIntervention retrieves an intervention by ID.
func (s *Storage) GetIntervention(ctx context.Context, id string) (persistence.Intervention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	intervention, ok := s.interventions[id]
	if !ok {
		return persistence.Intervention{}, persistence.ErrNotFound
	}
	return cloneIntervention(intervention), nil
}

// ListInterventions returns interventions accepted by match ordered by label.
func (s *Storage) ListInterventions(ctx context.Context, match func(persistence.Intervention) bool) ([]persistence.Intervention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]persistence.Intervention, 0, len(s.interventions))
	for _, intervention := range s.interventions {
		if match != nil && !match(intervention) {
			continue
		}
		list = append(list, cloneIntervention(intervention))
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Label == list[j].Label {
			return list[i].ID < list[j].ID
		}
		return list[i].Label < list[j].Label
	})

	return list, nil
}

// --- Snapshots ---

// Snapshot copies every record held by the store. Readings are owned by
// sensor ingestion and are left empty.
func (s *Storage) Snapshot(takenAt time.Time) persistence.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := persistence.Snapshot{TakenAt: takenAt}
	for _, equipment := range s.equipment {
		snapshot.Equipment = append(snapshot.Equipment, cloneEquipment(equipment))
	}
	for _, event := range s.maintenance {
		snapshot.Maintenance = append(snapshot.Maintenance, cloneMaintenanceEvent(event))
	}
	for _, item := range s.stock {
		snapshot.Stock = append(snapshot.Stock, item)
	}
	for _, technician := range s.technicians {
		snapshot.Technicians = append(snapshot.Technicians, technician)
	}
	for _, intervention := range s.interventions {
		snapshot.Interventions = append(snapshot.Interventions, cloneIntervention(intervention))
	}

	sort.Slice(snapshot.Equipment, func(i, j int) bool { return snapshot.Equipment[i].ID < snapshot.Equipment[j].ID })
	sort.Slice(snapshot.Maintenance, func(i, j int) bool { return snapshot.Maintenance[i].ID < snapshot.Maintenance[j].ID })
	sort.Slice(snapshot.Stock, func(i, j int) bool { return snapshot.Stock[i].ID < snapshot.Stock[j].ID })
	sort.Slice(snapshot.Technicians, func(i, j int) bool { return snapshot.Technicians[i].ID < snapshot.Technicians[j].ID })
	sort.Slice(snapshot.Interventions, func(i, j int) bool { return snapshot.Interventions[i].ID < snapshot.Interventions[j].ID })

	return snapshot
}

// Restore replaces the store content with the snapshot. The snapshot is
// validated first; on error the store is left unchanged.
func (s *Storage) Restore(snapshot persistence.Snapshot) error {
	equipment := make(map[string]persistence.Equipment, len(snapshot.Equipment))
	serials := make(map[string]string, len(snapshot.Equipment))
	for _, record := range snapshot.Equipment {
		if _, ok := equipment[record.ID]; ok {
			return fmt.Errorf("memory: restore equipment %s: %w", record.ID, persistence.ErrDuplicate)
		}
		key := serialKey(record.Serial)
		if _, ok := serials[key]; ok {
			return fmt.Errorf("memory: restore serial %s: %w", record.Serial, persistence.ErrDuplicate)
		}
		equipment[record.ID] = cloneEquipment(record)
		serials[key] = record.ID
	}

	maintenance := make(map[string]persistence.MaintenanceEvent, len(snapshot.Maintenance))
	for _, event := range snapshot.Maintenance {
		if _, ok := equipment[event.EquipmentID]; !ok {
			return fmt.Errorf("memory: restore maintenance event %s: %w", event.ID, persistence.ErrReferenceMissing)
		}
		maintenance[event.ID] = cloneMaintenanceEvent(event)
	}

	stock := make(map[string]persistence.StockItem, len(snapshot.Stock))
	for _, item := range snapshot.Stock {
		stock[item.ID] = item
	}
	technicians := make(map[string]persistence.Technician, len(snapshot.Technicians))
	for _, technician := range snapshot.Technicians {
		technicians[technician.ID] = technician
	}
	interventions := make(map[string]persistence.Intervention, len(snapshot.Interventions))
	for _, intervention := range snapshot.Interventions {
		interventions[intervention.ID] = cloneIntervention(intervention)
	}

	s.mu.Lock()
	s.equipment = equipment
	s.serials = serials
	s.maintenance = maintenance
	s.stock = stock
	s.technicians = technicians
	s.interventions = interventions
	s.mu.Unlock()
	return nil
}

func serialKey(serial string) string {
	return strings.ToUpper(strings.TrimSpace(serial))
}

func cloneEquipment(equipment persistence.Equipment) persistence.Equipment {
	clone := equipment
	clone.GasTypes = append([]string(nil), equipment.GasTypes...)
	return clone
}

func cloneMaintenanceEvent(event persistence.MaintenanceEvent) persistence.MaintenanceEvent {
	clone := event
	if event.Outcome != nil {
		clone.Outcome = make(map[string]string, len(event.Outcome))
		for key, value := range event.Outcome {
			clone.Outcome[key] = value
		}
	}
	clone.CompletedAt = cloneTime(event.CompletedAt)
	return clone
}

func cloneIntervention(intervention persistence.Intervention) persistence.Intervention {
	clone := intervention
	clone.AssignedTo = cloneString(intervention.AssignedTo)
	clone.AssignedAt = cloneTime(intervention.AssignedAt)
	return clone
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
