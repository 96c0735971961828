package engine

import (
	"context"
	"time"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/notify"
	"github.com/example/gasguard/internal/persistence"
)

// GetEquipment returns a detector by id.
func (e *Engine) GetEquipment(ctx context.Context, id string) (equipment persistence.Equipment, err error) {
	err = e.read(func() error {
		var qErr error
		equipment, qErr = e.equipment.Get(ctx, id)
		return qErr
	})
	return
}

// ListEquipment returns detectors matching filter.
func (e *Engine) ListEquipment(ctx context.Context, filter application.EquipmentFilter) (list []persistence.Equipment, err error) {
	err = e.read(func() error {
		var qErr error
		list, qErr = e.equipment.List(ctx, filter)
		return qErr
	})
	return
}

// GetMaintenanceEvent returns a maintenance event by id.
func (e *Engine) GetMaintenanceEvent(ctx context.Context, id string) (event persistence.MaintenanceEvent, err error) {
	err = e.read(func() error {
		var qErr error
		event, qErr = e.maintenance.Get(ctx, id)
		return qErr
	})
	return
}

// ListMaintenanceEvents returns events matching filter ordered by date. With
// an equipment id it is that equipment's history timeline.
func (e *Engine) ListMaintenanceEvents(ctx context.Context, filter application.MaintenanceFilter) (list []persistence.MaintenanceEvent, err error) {
	err = e.read(func() error {
		var qErr error
		list, qErr = e.maintenance.List(ctx, filter)
		return qErr
	})
	return
}

// GetStockItem returns a stock item by id.
func (e *Engine) GetStockItem(ctx context.Context, id string) (item persistence.StockItem, err error) {
	err = e.read(func() error {
		var qErr error
		item, qErr = e.stock.Get(ctx, id)
		return qErr
	})
	return
}

// ListStockItems returns every stock item.
func (e *Engine) ListStockItems(ctx context.Context) (list []persistence.StockItem, err error) {
	err = e.read(func() error {
		var qErr error
		list, qErr = e.stock.List(ctx)
		return qErr
	})
	return
}

// ListActiveNotifications returns notifications that have not expired yet.
func (e *Engine) ListActiveNotifications(ctx context.Context) []notify.Notification {
	var list []notify.Notification
	_ = e.read(func() error {
		list = e.notifier.Active(e.now())
		return nil
	})
	return list
}

// ListReadings returns readings at or after since. An empty equipmentID
// selects every equipment.
func (e *Engine) ListReadings(ctx context.Context, equipmentID string, since time.Time) []persistence.Reading {
	var list []persistence.Reading
	_ = e.read(func() error {
		list = e.sensors.Readings(equipmentID, since)
		return nil
	})
	return list
}

// ListTechnicians returns every technician.
func (e *Engine) ListTechnicians(ctx context.Context) (list []persistence.Technician, err error) {
	err = e.read(func() error {
		var qErr error
		list, qErr = e.assignments.Technicians(ctx)
		return qErr
	})
	return
}

// ListInterventions returns interventions matching filter.
func (e *Engine) ListInterventions(ctx context.Context, filter application.InterventionFilter) (list []persistence.Intervention, err error) {
	err = e.read(func() error {
		var qErr error
		list, qErr = e.assignments.Interventions(ctx, filter)
		return qErr
	})
	return
}
