package persistence

import "time"

// EquipmentStatus is the operational state of a gas detector.
type EquipmentStatus string

const (
	EquipmentInStock     EquipmentStatus = "stock"
	EquipmentInUse       EquipmentStatus = "in_use"
	EquipmentMaintenance EquipmentStatus = "maintenance"
)

// Valid reports whether the status is one of the known values.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentInStock, EquipmentInUse, EquipmentMaintenance:
		return true
	}
	return false
}

// Equipment represents a registered gas detector.
type Equipment struct {
	ID       string
	Brand    string
	Model    string
	Serial   string
	GasTypes []string
	Status   EquipmentStatus
	Site     string
	// ResumeStatus is the operational status restored once no maintenance
	// event holds the equipment any more.
	ResumeStatus    EquipmentStatus
	MaintenanceHold bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MaintenanceType classifies a maintenance event.
type MaintenanceType string

const (
	MaintenanceCalibration MaintenanceType = "calibration"
	MaintenanceRoutine     MaintenanceType = "maintenance"
	MaintenanceBump        MaintenanceType = "bump"
)

// Valid reports whether the type is one of the known values.
func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenanceCalibration, MaintenanceRoutine, MaintenanceBump:
		return true
	}
	return false
}

// MaintenanceStatus is the lifecycle state of a maintenance event.
type MaintenanceStatus string

const (
	MaintenancePlanned MaintenanceStatus = "planned"
	MaintenanceDone    MaintenanceStatus = "done"
	MaintenanceMissed  MaintenanceStatus = "missed"
)

// Valid reports whether the status is one of the known values.
func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePlanned, MaintenanceDone, MaintenanceMissed:
		return true
	}
	return false
}

// MaintenanceEvent is a planned or recorded calibration, maintenance or bump test.
// Date is a calendar date stored as midnight in the engine location.
type MaintenanceEvent struct {
	ID          string
	EquipmentID string
	Type        MaintenanceType
	Date        time.Time
	Status      MaintenanceStatus
	Outcome     map[string]string
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StockItem is a consumable tracked against a replenishment threshold.
type StockItem struct {
	ID             string
	Name           string
	Quantity       int
	MinThreshold   int
	ExpirationDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Reading is a single gas level sample reported by a detector.
type Reading struct {
	Timestamp   time.Time
	EquipmentID string
	GasLevel    float64
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// Technician is a field technician who can be assigned interventions.
type Technician struct {
	ID       string
	Name     string
	Location GeoPoint
}

// Intervention is a unit of field work that can be assigned to a technician.
type Intervention struct {
	ID         string
	Label      string
	AssignedTo *string
	AssignedAt *time.Time
}

// Snapshot is a point-in-time copy of every record held by the entity store
// plus the reading log.
type Snapshot struct {
	Equipment     []Equipment
	Maintenance   []MaintenanceEvent
	Stock         []StockItem
	Technicians   []Technician
	Interventions []Intervention
	Readings      []Reading
	TakenAt       time.Time
}
