package application

import (
	"context"

	"github.com/example/gasguard/internal/notify"
)

// AlertCode identifies the rule that produced an alert.
type AlertCode string

const (
	AlertMaintenanceOverdue  AlertCode = "MaintenanceOverdue"
	AlertMaintenanceReminder AlertCode = "MaintenanceReminder"
	AlertLowStock            AlertCode = "LowStock"
	AlertStockExpiring       AlertCode = "StockExpiring"
	AlertGasLevelHigh        AlertCode = "GasLevelHigh"
)

// Alert is a rule violation handed to the notification sink.
type Alert struct {
	Code     AlertCode
	Severity notify.Severity
	Message  string
	// Subject is the id of the record the alert is about.
	Subject string
}

// AlertEmitter receives alerts. Emit must not block on delivery and has no
// failure path visible to the emitting rule.
type AlertEmitter interface {
	Emit(ctx context.Context, alert Alert)
}

// AlertEmitterFunc adapts a function to AlertEmitter.
type AlertEmitterFunc func(ctx context.Context, alert Alert)

// Emit calls f.
func (f AlertEmitterFunc) Emit(ctx context.Context, alert Alert) {
	f(ctx, alert)
}

type discardEmitter struct{}

func (discardEmitter) Emit(context.Context, Alert) {}

func defaultEmitter(emitter AlertEmitter) AlertEmitter {
	if emitter != nil {
		return emitter
	}
	return discardEmitter{}
}
