package persistence

import "context"

// EquipmentRepository exposes CRUD operations for equipment.
type EquipmentRepository interface {
	CreateEquipment(ctx context.Context, equipment Equipment) error
	UpdateEquipment(ctx context.Context, id string, patch func(*Equipment) error) (Equipment, error)
	DeleteEquipment(ctx context.Context, id string) error
	GetEquipment(ctx context.Context, id string) (Equipment, error)
	ListEquipment(ctx context.Context, match func(Equipment) bool) ([]Equipment, error)
}

// MaintenanceRepository stores maintenance events. Events must reference
// existing equipment.
type MaintenanceRepository interface {
	CreateMaintenanceEvent(ctx context.Context, event MaintenanceEvent) error
	UpdateMaintenanceEvent(ctx context.Context, id string, patch func(*MaintenanceEvent) error) (MaintenanceEvent, error)
	DeleteMaintenanceEvent(ctx context.Context, id string) error
	GetMaintenanceEvent(ctx context.Context, id string) (MaintenanceEvent, error)
	ListMaintenanceEvents(ctx context.Context, match func(MaintenanceEvent) bool) ([]MaintenanceEvent, error)
}

// StockRepository stores consumable stock items.
type StockRepository interface {
	CreateStockItem(ctx context.Context, item StockItem) error
	UpdateStockItem(ctx context.Context, id string, patch func(*StockItem) error) (StockItem, error)
	DeleteStockItem(ctx context.Context, id string) error
	GetStockItem(ctx context.Context, id string) (StockItem, error)
	ListStockItems(ctx context.Context, match func(StockItem) bool) ([]StockItem, error)
}

// TechnicianRepository stores technician reference data.
type TechnicianRepository interface {
	CreateTechnician(ctx context.Context, technician Technician) error
	GetTechnician(ctx context.Context, id string) (Technician, error)
	ListTechnicians(ctx context.Context, match func(Technician) bool) ([]Technician, error)
}

// InterventionRepository stores interventions and their assignment.
type InterventionRepository interface {
	CreateIntervention(ctx context.Context, intervention Intervention) error
	UpdateIntervention(ctx context.Context, id string, patch func(*Intervention) error) (Intervention, error)
	GetIntervention(ctx context.Context, id string) (Intervention, error)
	ListInterventions(ctx context.Context, match func(Intervention) bool) ([]Intervention, error)
}

// SnapshotStore persists and restores engine snapshots.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}
