package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

var (
	equipmentCounter    uint64
	maintenanceCounter  uint64
	stockCounter        uint64
	technicianCounter   uint64
	interventionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns midnight of the ReferenceTime day.
func ReferenceDate() time.Time {
	return time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
}

// --------------------------- Equipment fixtures ---------------------------

// EquipmentOption configures the generated equipment fixture.
type EquipmentOption func(*persistence.Equipment)

// NewEquipmentFixture returns a deterministic detector record with optional overrides.
func NewEquipmentFixture(opts ...EquipmentOption) persistence.Equipment {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := persistence.Equipment{
		ID:           fmt.Sprintf("eq-%03d", idx),
		Brand:        "Dräger",
		Model:        "X-am 5000",
		Serial:       fmt.Sprintf("SN-%03d", idx),
		GasTypes:     []string{"CO", "H2S", "O2"},
		Status:       persistence.EquipmentInUse,
		ResumeStatus: persistence.EquipmentInUse,
		Site:         "Paris",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEquipmentID overrides the generated equipment ID.
func WithEquipmentID(id string) EquipmentOption {
	return func(e *persistence.Equipment) {
		e.ID = id
	}
}

// WithSerial overrides the generated serial.
func WithSerial(serial string) EquipmentOption {
	return func(e *persistence.Equipment) {
		e.Serial = serial
	}
}

// WithEquipmentStatus sets both the status and the resume status.
func WithEquipmentStatus(status persistence.EquipmentStatus) EquipmentOption {
	return func(e *persistence.Equipment) {
		e.Status = status
		if status != persistence.EquipmentMaintenance {
			e.ResumeStatus = status
		}
	}
}

// WithSite overrides the site.
func WithSite(site string) EquipmentOption {
	return func(e *persistence.Equipment) {
		e.Site = site
	}
}

// WithGasTypes overrides the detected gases.
func WithGasTypes(gases ...string) EquipmentOption {
	return func(e *persistence.Equipment) {
		e.GasTypes = append([]string(nil), gases...)
	}
}

// RegisterInput converts the fixture into a registration command.
func RegisterInput(e persistence.Equipment) application.RegisterEquipmentInput {
	return application.RegisterEquipmentInput{
		Brand:    e.Brand,
		Model:    e.Model,
		Serial:   e.Serial,
		GasTypes: append([]string(nil), e.GasTypes...),
		Status:   e.Status,
		Site:     e.Site,
	}
}

// -------------------------- Maintenance fixtures --------------------------

// MaintenanceOption configures the generated maintenance event fixture.
type MaintenanceOption func(*persistence.MaintenanceEvent)

// NewMaintenanceFixture returns a planned calibration on ReferenceDate for the equipment.
func NewMaintenanceFixture(equipmentID string, opts ...MaintenanceOption) persistence.MaintenanceEvent {
	idx := atomic.AddUint64(&maintenanceCounter, 1)
	fixture := persistence.MaintenanceEvent{
		ID:          fmt.Sprintf("mt-%03d", idx),
		EquipmentID: equipmentID,
		Type:        persistence.MaintenanceCalibration,
		Date:        ReferenceDate(),
		Status:      persistence.MaintenancePlanned,
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMaintenanceType overrides the event type.
func WithMaintenanceType(t persistence.MaintenanceType) MaintenanceOption {
	return func(e *persistence.MaintenanceEvent) {
		e.Type = t
	}
}

// WithMaintenanceDate overrides the event date.
func WithMaintenanceDate(date time.Time) MaintenanceOption {
	return func(e *persistence.MaintenanceEvent) {
		e.Date = date
	}
}

// WithMaintenanceStatus overrides the event status.
func WithMaintenanceStatus(status persistence.MaintenanceStatus) MaintenanceOption {
	return func(e *persistence.MaintenanceEvent) {
		e.Status = status
	}
}

// ----------------------------- Stock fixtures -----------------------------

// StockOption configures the generated stock fixture.
type StockOption func(*persistence.StockItem)

// NewStockFixture returns a healthy stock item expiring a year after ReferenceDate.
func NewStockFixture(opts ...StockOption) persistence.StockItem {
	idx := atomic.AddUint64(&stockCounter, 1)
	fixture := persistence.StockItem{
		ID:             fmt.Sprintf("st-%03d", idx),
		Name:           fmt.Sprintf("Cartouche %03d", idx),
		Quantity:       10,
		MinThreshold:   3,
		ExpirationDate: ReferenceDate().AddDate(1, 0, 0),
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithStockLevels overrides quantity and threshold.
func WithStockLevels(quantity, minThreshold int) StockOption {
	return func(i *persistence.StockItem) {
		i.Quantity = quantity
		i.MinThreshold = minThreshold
	}
}

// WithExpiration overrides the expiration date.
func WithExpiration(date time.Time) StockOption {
	return func(i *persistence.StockItem) {
		i.ExpirationDate = date
	}
}

// WithStockName overrides the item name.
func WithStockName(name string) StockOption {
	return func(i *persistence.StockItem) {
		i.Name = name
	}
}

// AddInput converts the fixture into an add command.
func AddInput(i persistence.StockItem) application.AddStockInput {
	return application.AddStockInput{
		Name:           i.Name,
		Quantity:       i.Quantity,
		MinThreshold:   i.MinThreshold,
		ExpirationDate: i.ExpirationDate,
	}
}

// ------------------------ Field operation fixtures ------------------------

// NewTechnicianFixture returns a technician located in Paris.
func NewTechnicianFixture(name string) persistence.Technician {
	idx := atomic.AddUint64(&technicianCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Technician %03d", idx)
	}
	return persistence.Technician{
		ID:       fmt.Sprintf("tech-%03d", idx),
		Name:     name,
		Location: persistence.GeoPoint{Lat: 48.85, Lng: 2.35},
	}
}

// NewInterventionFixture returns an unassigned intervention.
func NewInterventionFixture(label string) persistence.Intervention {
	idx := atomic.AddUint64(&interventionCounter, 1)
	if label == "" {
		label = fmt.Sprintf("Intervention %03d", idx)
	}
	return persistence.Intervention{
		ID:    fmt.Sprintf("int-%03d", idx),
		Label: label,
	}
}
