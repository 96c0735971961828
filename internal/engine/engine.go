// Package engine serializes every command and periodic sweep over the entity
// store, the rule components and the notification set.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/notify"
	"github.com/example/gasguard/internal/persistence"
	"github.com/example/gasguard/internal/persistence/memory"
)

// ErrStopped is returned by commands and sweeps once Stop has been called.
var ErrStopped = errors.New("engine: stopped")

// Default sweep intervals.
const (
	DefaultNotificationInterval = time.Second
	DefaultMaintenanceInterval  = 15 * time.Second
	DefaultStockInterval        = 30 * time.Second
)

// Intervals configures the periodic sweeps. Zero values select the defaults;
// a negative value disables the task.
type Intervals struct {
	Notifications time.Duration
	Maintenance   time.Duration
	Stock         time.Duration
}

// Config wires the engine collaborators and rule parameters.
type Config struct {
	Store       *memory.Storage
	Now         func() time.Time
	IDGenerator func() string
	Location    *time.Location
	Documents   application.DocumentSink
	Logger      *slog.Logger

	// DocumentQueueSize bounds pending document requests. Zero selects
	// DefaultDocumentQueueSize.
	DocumentQueueSize int

	NotificationTTL          time.Duration
	GasThreshold             float64
	MaintenanceLookAheadDays int
	ReminderWindow           time.Duration
	Intervals                Intervals
}

// Engine is the single owner of domain state for the process.
type Engine struct {
	mu      sync.Mutex
	stopped bool
	started bool

	now      func() time.Time
	location *time.Location
	logger   *slog.Logger

	store       *memory.Storage
	notifier    *notify.Notifier
	equipment   *application.EquipmentService
	maintenance *application.MaintenanceScheduler
	stock       *application.StockMonitor
	sensors     *application.SensorIngestion
	assignments *application.AssignmentResolver
	documents   *documentDispatcher

	tasks  []task
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an engine. Commands are accepted immediately; periodic sweeps
// run only after Start.
func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = uuid.NewString
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	store := cfg.Store
	if store == nil {
		store = memory.New()
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	e := &Engine{
		now:      now,
		location: location,
		logger:   logger.With("component", "engine"),
		store:    store,
		notifier: notify.New(cfg.NotificationTTL, ids, now),
	}
	alerts := &notifierEmitter{notifier: e.notifier, logger: e.logger}
	var documents application.DocumentSink
	if cfg.Documents != nil {
		e.documents = newDocumentDispatcher(cfg.Documents, cfg.DocumentQueueSize, e.logger)
		documents = e.documents
	}

	e.equipment = application.NewEquipmentServiceWithLogger(store, ids, now, logger)
	e.maintenance = application.NewMaintenanceSchedulerWithLogger(store, store, alerts, documents, application.MaintenanceSchedulerConfig{
		LookAheadDays:  cfg.MaintenanceLookAheadDays,
		ReminderWindow: cfg.ReminderWindow,
		Location:       location,
	}, ids, now, logger)
	e.stock = application.NewStockMonitorWithLogger(store, alerts, location, ids, now, logger)
	e.sensors = application.NewSensorIngestionWithLogger(store, alerts, cfg.GasThreshold, now, logger)
	e.assignments = application.NewAssignmentResolverWithLogger(store, store, ids, now, logger)

	e.tasks = e.sweepTasks(cfg.Intervals)
	return e
}

// Notifier exposes the notification set so collaborators can subscribe to
// lifecycle events.
func (e *Engine) Notifier() *notify.Notifier { return e.notifier }

// Location is the time zone used for calendar dates.
func (e *Engine) Location() *time.Location { return e.location }

// Start launches the periodic tasks. It is a no-op when already started or
// stopped.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	for _, t := range e.tasks {
		e.wg.Add(1)
		go e.runTask(ctx, t)
	}
	e.logger.Info("engine started", "tasks", len(e.tasks))
}

// Stop waits for the in-flight command, disables further alerts and halts
// every periodic task. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.notifier.Close()
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	if e.documents != nil {
		e.documents.Close()
	}
	e.logger.Info("engine stopped")
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// exec runs fn under the command mutex unless the engine is stopped.
func (e *Engine) exec(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	return fn()
}

// read runs fn under the command mutex. Queries remain available after Stop.
func (e *Engine) read(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

// Snapshot copies the entity store and the reading log.
func (e *Engine) Snapshot() persistence.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot := e.store.Snapshot(e.now())
	snapshot.Readings = e.sensors.Readings("", time.Time{})
	return snapshot
}

// Restore replaces the engine state with a snapshot. It must be called
// before Start and before any reading is ingested. Conditions already true in
// the snapshot are not reported again.
func (e *Engine) Restore(ctx context.Context, snapshot persistence.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return errors.New("engine: restore after start")
	}
	if err := e.store.Restore(snapshot); err != nil {
		return err
	}
	e.sensors.Restore(snapshot.Readings)
	if err := e.stock.Rebuild(ctx); err != nil {
		return err
	}
	e.maintenance.ReconcileAll(ctx)
	e.logger.Info("engine state restored",
		"equipment", len(snapshot.Equipment),
		"maintenance_events", len(snapshot.Maintenance),
		"stock_items", len(snapshot.Stock),
		"readings", len(snapshot.Readings),
	)
	return nil
}
