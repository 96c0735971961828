package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/config"
	"github.com/example/gasguard/internal/engine"
	httptransport "github.com/example/gasguard/internal/http"
	"github.com/example/gasguard/internal/livestate"
	"github.com/example/gasguard/internal/persistence"
	"github.com/example/gasguard/internal/persistence/sqlstore"
	"github.com/example/gasguard/internal/telemetry"
)

// app owns every long-lived collaborator of the process.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time

	engine     *engine.Engine
	snapshots  *sqlstore.Store
	redis      *redis.Client
	mirror     *livestate.Mirror
	subscriber *telemetry.Subscriber
	handler    http.Handler
}

type appOption func(*app)

func withClock(now func() time.Time) appOption {
	return func(a *app) { a.now = now }
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...appOption) (*app, error) {
	a := &app{cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	var documents application.DocumentSink = application.DocumentSinkFunc(func(ctx context.Context, req application.DocumentRequest) error {
		logger.InfoContext(ctx, "document requested", "kind", req.Kind, "event_id", req.EventID, "equipment_id", req.EquipmentID)
		return nil
	})

	if cfg.Redis.Addr != "" {
		client, err := livestate.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.mirror = livestate.NewMirror(client, livestate.Config{Prefix: cfg.Redis.Prefix, Logger: logger})
		documents = livestate.NewDocumentStream(client, cfg.Redis.Prefix, 10000, logger)
	}

	a.engine = engine.New(engine.Config{
		Now:                      a.now,
		IDGenerator:              uuid.NewString,
		Location:                 cfg.Location,
		Documents:                documents,
		Logger:                   logger,
		NotificationTTL:          cfg.NotificationTTL,
		GasThreshold:             cfg.GasThreshold,
		MaintenanceLookAheadDays: cfg.MaintenanceLookAheadDays,
		ReminderWindow:           cfg.ReminderWindow,
		Intervals: engine.Intervals{
			Notifications: cfg.Intervals.Notifications,
			Maintenance:   cfg.Intervals.Maintenance,
			Stock:         cfg.Intervals.Stock,
		},
	})
	if a.mirror != nil {
		a.engine.Notifier().Subscribe(a.mirror.Listener())
	}

	restored := false
	if cfg.SnapshotsEnabled() {
		store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.Storage.Driver, DSN: cfg.Storage.DSN})
		if err != nil {
			a.close()
			return nil, err
		}
		a.snapshots = store

		snapshot, err := store.Load(ctx)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			logger.Info("no snapshot found, starting empty")
		case err != nil:
			a.close()
			return nil, err
		default:
			if err := a.engine.Restore(ctx, snapshot); err != nil {
				a.close()
				return nil, err
			}
			restored = true
			logger.Info("snapshot restored",
				"taken_at", snapshot.TakenAt,
				"equipment", len(snapshot.Equipment),
				"readings", len(snapshot.Readings),
			)
		}

		if cfg.Intervals.Snapshot > 0 {
			a.engine.AddTask("snapshot", cfg.Intervals.Snapshot, func(ctx context.Context) {
				a.saveSnapshot(ctx)
			})
		}
	}

	if cfg.SeedDemo && !restored {
		if err := a.engine.SeedDemo(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	if cfg.Simulate {
		sim := telemetry.NewSimulator(a.engine, a.engine, nil, a.now, logger)
		a.engine.AddTask("simulator", telemetry.SimulationInterval, sim.Run)
	}

	if cfg.MQTT.Broker != "" {
		a.subscriber = telemetry.NewSubscriber(a.engine, telemetry.SubscriberConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			Logger:   logger,
			Now:      a.now,
		})
	}

	var checks []httptransport.HealthCheck
	if a.snapshots != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "snapshots", Check: a.snapshots.Ping})
	}
	if a.redis != nil {
		client := a.redis
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}

	location := a.engine.Location()
	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Equipment:   httptransport.NewEquipmentHandler(a.engine, a.now, logger),
		Maintenance: httptransport.NewMaintenanceHandler(a.engine, location, logger),
		Stock:       httptransport.NewStockHandler(a.engine, location, logger),
		Field:       httptransport.NewFieldHandler(a.engine, logger),
		Operations:  httptransport.NewOperationsHandler(a.engine, logger, checks...),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.Recoverer(logger),
			httptransport.RequestLogger(logger),
		},
	})
	return a, nil
}

// start launches the mirror, the engine tasks and the MQTT subscription.
func (a *app) start(ctx context.Context) {
	if a.mirror != nil {
		if err := a.mirror.Sync(ctx, a.engine.ListActiveNotifications(ctx)); err != nil {
			a.logger.Warn("live state sync failed", "error", err)
		}
		a.mirror.Start(ctx)
	}

	a.engine.Start(ctx)

	if a.subscriber != nil {
		if err := a.subscriber.Connect(ctx); err != nil {
			a.logger.Error("mqtt subscriber unavailable", "error", err)
		}
	}
}

// shutdown stops intake, halts the engine and persists the final snapshot.
func (a *app) shutdown(ctx context.Context) {
	if a.subscriber != nil {
		a.subscriber.Close()
	}
	a.engine.Stop()
	if a.mirror != nil {
		a.mirror.Close()
	}
	a.saveSnapshot(ctx)
}

func (a *app) saveSnapshot(ctx context.Context) {
	if a.snapshots == nil {
		return
	}
	snapshot := a.engine.Snapshot()
	if err := a.snapshots.Save(ctx, snapshot); err != nil {
		a.logger.Error("snapshot save failed", "error", err)
		return
	}
	a.logger.Debug("snapshot saved", "equipment", len(snapshot.Equipment), "readings", len(snapshot.Readings))
}

// close releases external connections. It is safe to call more than once.
func (a *app) close() {
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			a.logger.Error("failed to close snapshot store", "error", err)
		}
		a.snapshots = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
		a.redis = nil
	}
}
