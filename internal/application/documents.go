package application

import (
	"context"
	"time"

	"github.com/example/gasguard/internal/persistence"
)

// DocumentKind selects the document the external generator should produce.
type DocumentKind string

const (
	DocumentCertificate DocumentKind = "certificate"
	DocumentReport      DocumentKind = "report"
)

// DocumentRequest asks the document collaborator to render a completed
// maintenance event. Outcome is forwarded untouched.
type DocumentRequest struct {
	Kind            DocumentKind                `json:"kind"`
	EventID         string                      `json:"event_id"`
	EquipmentID     string                      `json:"equipment_id"`
	EquipmentSerial string                      `json:"equipment_serial"`
	MaintenanceType persistence.MaintenanceType `json:"maintenance_type"`
	Date            string                      `json:"date"`
	CompletedAt     time.Time                   `json:"completed_at"`
	Outcome         map[string]string           `json:"outcome,omitempty"`
}

// DocumentSink consumes document requests. Failures are logged by the caller
// and never undo the completed event.
type DocumentSink interface {
	RequestDocument(ctx context.Context, request DocumentRequest) error
}

// DocumentSinkFunc adapts a function to DocumentSink.
type DocumentSinkFunc func(ctx context.Context, request DocumentRequest) error

// RequestDocument calls f.
func (f DocumentSinkFunc) RequestDocument(ctx context.Context, request DocumentRequest) error {
	return f(ctx, request)
}

func documentKindFor(maintenanceType persistence.MaintenanceType) DocumentKind {
	if maintenanceType == persistence.MaintenanceCalibration {
		return DocumentCertificate
	}
	return DocumentReport
}
