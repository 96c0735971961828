package testfixtures

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence/memory"
)

// AlertRecorder is an application.AlertEmitter that keeps every alert.
type AlertRecorder struct {
	mu     sync.Mutex
	alerts []application.Alert
}

// Emit records the alert.
func (r *AlertRecorder) Emit(ctx context.Context, alert application.Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, alert)
	r.mu.Unlock()
}

// Alerts returns a copy of the recorded alerts in emission order.
func (r *AlertRecorder) Alerts() []application.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]application.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// Count returns how many alerts with the given code were recorded.
func (r *AlertRecorder) Count(code application.AlertCode) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, alert := range r.alerts {
		if alert.Code == code {
			count++
		}
	}
	return count
}

// Reset forgets every recorded alert.
func (r *AlertRecorder) Reset() {
	r.mu.Lock()
	r.alerts = nil
	r.mu.Unlock()
}

// DocumentRecorder is an application.DocumentSink that keeps every request.
type DocumentRecorder struct {
	mu       sync.Mutex
	requests []application.DocumentRequest
	Err      error
}

// RequestDocument records the request and returns Err.
func (r *DocumentRecorder) RequestDocument(ctx context.Context, request application.DocumentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, request)
	return r.Err
}

// Requests returns a copy of the recorded requests.
func (r *DocumentRecorder) Requests() []application.DocumentRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]application.DocumentRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

// ServiceFactory assists tests with constructing application components over
// a shared in-memory store using deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Store       *memory.Storage
	Alerts      *AlertRecorder
	Documents   *DocumentRecorder
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Store:       memory.New(),
		Alerts:      &AlertRecorder{},
		Documents:   &DocumentRecorder{},
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Store == nil {
		factory.Store = memory.New()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger overrides the logger handed to every component.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// NewEquipmentService builds an equipment service over the factory store.
func (f *ServiceFactory) NewEquipmentService() *application.EquipmentService {
	return application.NewEquipmentServiceWithLogger(f.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewMaintenanceScheduler builds a scheduler wired to the recorders.
func (f *ServiceFactory) NewMaintenanceScheduler(cfg application.MaintenanceSchedulerConfig) *application.MaintenanceScheduler {
	return application.NewMaintenanceSchedulerWithLogger(f.Store, f.Store, f.Alerts, f.Documents, cfg, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewStockMonitor builds a stock monitor wired to the alert recorder.
func (f *ServiceFactory) NewStockMonitor() *application.StockMonitor {
	return application.NewStockMonitorWithLogger(f.Store, f.Alerts, time.UTC, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewSensorIngestion builds the ingestion component with the given threshold.
func (f *ServiceFactory) NewSensorIngestion(threshold float64) *application.SensorIngestion {
	return application.NewSensorIngestionWithLogger(f.Store, f.Alerts, threshold, f.Clock.NowFunc(), f.Logger)
}

// NewAssignmentResolver builds an assignment resolver over the factory store.
func (f *ServiceFactory) NewAssignmentResolver() *application.AssignmentResolver {
	return application.NewAssignmentResolverWithLogger(f.Store, f.Store, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}
