package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/notify"
	"github.com/example/gasguard/internal/persistence"
)

// RegisterEquipment stores a new detector.
func (e *Engine) RegisterEquipment(ctx context.Context, input application.RegisterEquipmentInput) (equipment persistence.Equipment, err error) {
	err = e.exec(func() error {
		var cmdErr error
		equipment, cmdErr = e.equipment.Register(ctx, input)
		return cmdErr
	})
	return
}

// UpdateEquipment changes the site or the explicit operational status.
func (e *Engine) UpdateEquipment(ctx context.Context, id string, input application.UpdateEquipmentInput) (equipment persistence.Equipment, err error) {
	err = e.exec(func() error {
		var cmdErr error
		equipment, cmdErr = e.equipment.Update(ctx, id, input)
		return cmdErr
	})
	return
}

// RetireEquipment deletes a detector and its maintenance events. Its
// readings stay in the log.
func (e *Engine) RetireEquipment(ctx context.Context, id string) error {
	return e.exec(func() error {
		return e.equipment.Retire(ctx, id)
	})
}

// ScheduleMaintenance plans a maintenance event.
func (e *Engine) ScheduleMaintenance(ctx context.Context, input application.ScheduleMaintenanceInput) (event persistence.MaintenanceEvent, err error) {
	err = e.exec(func() error {
		var cmdErr error
		event, cmdErr = e.maintenance.Schedule(ctx, input)
		return cmdErr
	})
	return
}

// CompleteMaintenance records the outcome of a planned event.
func (e *Engine) CompleteMaintenance(ctx context.Context, eventID string, outcome map[string]string) (event persistence.MaintenanceEvent, err error) {
	err = e.exec(func() error {
		var cmdErr error
		event, cmdErr = e.maintenance.Complete(ctx, eventID, outcome)
		return cmdErr
	})
	return
}

// AddStock stores a stock item and evaluates its thresholds.
func (e *Engine) AddStock(ctx context.Context, input application.AddStockInput) (item persistence.StockItem, err error) {
	err = e.exec(func() error {
		var cmdErr error
		item, cmdErr = e.stock.AddItem(ctx, input)
		return cmdErr
	})
	return
}

// SetStockQuantity replaces the quantity of a stock item.
func (e *Engine) SetStockQuantity(ctx context.Context, id string, quantity int) (item persistence.StockItem, err error) {
	err = e.exec(func() error {
		var cmdErr error
		item, cmdErr = e.stock.SetQuantity(ctx, id, quantity)
		return cmdErr
	})
	return
}

// ConsumeStock decrements the quantity of a stock item.
func (e *Engine) ConsumeStock(ctx context.Context, id string, n int) (item persistence.StockItem, err error) {
	err = e.exec(func() error {
		var cmdErr error
		item, cmdErr = e.stock.Consume(ctx, id, n)
		return cmdErr
	})
	return
}

// RemoveStock deletes a stock item.
func (e *Engine) RemoveStock(ctx context.Context, id string) error {
	return e.exec(func() error {
		return e.stock.Remove(ctx, id)
	})
}

// IngestReading appends a sensor sample. A zero timestamp means now.
func (e *Engine) IngestReading(ctx context.Context, equipmentID string, gasLevel float64, timestamp time.Time) (reading persistence.Reading, err error) {
	err = e.exec(func() error {
		var cmdErr error
		reading, cmdErr = e.sensors.Ingest(ctx, equipmentID, gasLevel, timestamp)
		return cmdErr
	})
	return
}

// AddTechnician stores a technician.
func (e *Engine) AddTechnician(ctx context.Context, input application.AddTechnicianInput) (technician persistence.Technician, err error) {
	err = e.exec(func() error {
		var cmdErr error
		technician, cmdErr = e.assignments.AddTechnician(ctx, input)
		return cmdErr
	})
	return
}

// AddIntervention stores an unassigned intervention.
func (e *Engine) AddIntervention(ctx context.Context, label string) (intervention persistence.Intervention, err error) {
	err = e.exec(func() error {
		var cmdErr error
		intervention, cmdErr = e.assignments.AddIntervention(ctx, label)
		return cmdErr
	})
	return
}

// AssignIntervention sets the technician of an intervention.
func (e *Engine) AssignIntervention(ctx context.Context, interventionID, technicianID string) (intervention persistence.Intervention, err error) {
	err = e.exec(func() error {
		var cmdErr error
		intervention, cmdErr = e.assignments.Assign(ctx, interventionID, technicianID)
		return cmdErr
	})
	return
}

// UnassignIntervention clears the technician of an intervention.
func (e *Engine) UnassignIntervention(ctx context.Context, interventionID string) (intervention persistence.Intervention, err error) {
	err = e.exec(func() error {
		var cmdErr error
		intervention, cmdErr = e.assignments.Unassign(ctx, interventionID)
		return cmdErr
	})
	return
}

// DismissNotification removes a notification before it expires.
func (e *Engine) DismissNotification(ctx context.Context, id string) error {
	return e.exec(func() error {
		if err := e.notifier.Dismiss(id); err != nil {
			if errors.Is(err, notify.ErrNotFound) {
				return fmt.Errorf("%w: notification %s", application.ErrNotFound, id)
			}
			return err
		}
		return nil
	})
}
