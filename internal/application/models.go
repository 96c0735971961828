package application

import (
	"time"

	"github.com/example/gasguard/internal/persistence"
)

// RegisterEquipmentInput captures caller provided equipment fields.
type RegisterEquipmentInput struct {
	Brand    string
	Model    string
	Serial   string
	GasTypes []string
	Status   persistence.EquipmentStatus
	Site     string
}

// UpdateEquipmentInput carries the mutable equipment attributes. Nil fields are left unchanged.
type UpdateEquipmentInput struct {
	Site   *string
	Status *persistence.EquipmentStatus
}

// EquipmentFilter narrows ListEquipment. Zero values match everything.
type EquipmentFilter struct {
	Status  persistence.EquipmentStatus
	Site    string
	GasType string
}

// Match reports whether the equipment satisfies the filter.
func (f EquipmentFilter) Match(equipment persistence.Equipment) bool {
	if f.Status != "" && equipment.Status != f.Status {
		return false
	}
	if f.Site != "" && !equalFold(equipment.Site, f.Site) {
		return false
	}
	if f.GasType != "" {
		found := false
		for _, gas := range equipment.GasTypes {
			if equalFold(gas, f.GasType) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ScheduleMaintenanceInput describes a maintenance event to plan.
type ScheduleMaintenanceInput struct {
	EquipmentID string
	Type        persistence.MaintenanceType
	Date        time.Time
}

// MaintenanceFilter narrows ListMaintenanceEvents. From and To bound the
// event date inclusively.
type MaintenanceFilter struct {
	EquipmentID string
	Status      persistence.MaintenanceStatus
	Type        persistence.MaintenanceType
	From        *time.Time
	To          *time.Time
}

// Match reports whether the event satisfies the filter.
func (f MaintenanceFilter) Match(event persistence.MaintenanceEvent) bool {
	if f.EquipmentID != "" && event.EquipmentID != f.EquipmentID {
		return false
	}
	if f.Status != "" && event.Status != f.Status {
		return false
	}
	if f.Type != "" && event.Type != f.Type {
		return false
	}
	if f.From != nil && event.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && event.Date.After(*f.To) {
		return false
	}
	return true
}

// AddStockInput describes a new stock item.
type AddStockInput struct {
	Name           string
	Quantity       int
	MinThreshold   int
	ExpirationDate time.Time
}

// AddTechnicianInput describes a technician.
type AddTechnicianInput struct {
	Name     string
	Location persistence.GeoPoint
}

// InterventionFilter narrows ListInterventions.
type InterventionFilter struct {
	// Assigned selects assigned (true) or unassigned (false) interventions when set.
	Assigned     *bool
	TechnicianID string
}

// Match reports whether the intervention satisfies the filter.
func (f InterventionFilter) Match(intervention persistence.Intervention) bool {
	if f.Assigned != nil && (intervention.AssignedTo != nil) != *f.Assigned {
		return false
	}
	if f.TechnicianID != "" && (intervention.AssignedTo == nil || *intervention.AssignedTo != f.TechnicianID) {
		return false
	}
	return true
}
