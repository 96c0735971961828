// Package livestate mirrors engine state into Redis for external readers.
package livestate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/gasguard/internal/notify"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "gasguard:"

// DefaultQueueSize bounds the number of events waiting for the worker.
const DefaultQueueSize = 256

const writeTimeout = 2 * time.Second

// Config controls key naming and buffering.
type Config struct {
	Prefix    string
	QueueSize int
	Logger    *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Mirror copies the live notification set into a Redis hash and publishes
// lifecycle events. Writes happen on a single worker goroutine so the
// notifier listener never blocks.
type Mirror struct {
	client redis.Cmdable
	prefix string
	logger *slog.Logger

	queue   chan notify.Event
	done    chan struct{}
	closed  atomic.Bool
	dropped atomic.Int64

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMirror builds a mirror. Call Start before events are expected to flow.
func NewMirror(client redis.Cmdable, cfg Config) *Mirror {
	cfg = cfg.withDefaults()
	return &Mirror{
		client: client,
		prefix: cfg.Prefix,
		logger: cfg.Logger.With(slog.String("component", "livestate.Mirror")),
		queue:  make(chan notify.Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// NotificationsKey is the hash holding live notifications keyed by id.
func (m *Mirror) NotificationsKey() string { return m.prefix + "notifications" }

// ExpiryKey is the sorted set of notification ids scored by expiry in unix millis.
func (m *Mirror) ExpiryKey() string { return m.prefix + "notifications:expiry" }

// EventsChannel is the pub/sub channel receiving lifecycle events.
func (m *Mirror) EventsChannel() string { return m.prefix + "events" }

// Listener returns the notifier callback. Events arriving while the queue is
// full are dropped and counted.
func (m *Mirror) Listener() notify.Listener {
	return func(event notify.Event) {
		if m.closed.Load() {
			return
		}
		select {
		case m.queue <- event:
		default:
			total := m.dropped.Add(1)
			m.logger.Warn("live state queue full, event dropped",
				slog.String("kind", string(event.Kind)),
				slog.String("notification_id", event.Notification.ID),
				slog.Int64("dropped_total", total),
			)
		}
	}
}

// Dropped reports how many events were discarded on overflow.
func (m *Mirror) Dropped() int64 { return m.dropped.Load() }

// Start launches the worker. Subsequent calls are no-ops. The worker runs
// until Close, even when ctx is cancelled first, so events raised during
// shutdown still reach Redis; ctx only carries values for the writes.
func (m *Mirror) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.run(ctx)
	})
}

// Close stops accepting events, drains what is queued and waits for the worker.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.done)
	})
	m.wg.Wait()
}

func (m *Mirror) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case event := <-m.queue:
			m.handle(ctx, event)
		case <-m.done:
			m.drain(ctx)
			return
		}
	}
}

func (m *Mirror) drain(ctx context.Context) {
	for {
		select {
		case event := <-m.queue:
			m.handle(ctx, event)
		default:
			return
		}
	}
}

func (m *Mirror) handle(ctx context.Context, event notify.Event) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := m.Apply(writeCtx, event); err != nil {
		m.logger.Error("live state write failed",
			slog.String("kind", string(event.Kind)),
			slog.String("notification_id", event.Notification.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Apply writes a single lifecycle event to Redis.
func (m *Mirror) Apply(ctx context.Context, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := m.client.TxPipeline()
	switch event.Kind {
	case notify.EventRaised:
		entry, err := json.Marshal(event.Notification)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		pipe.HSet(ctx, m.NotificationsKey(), event.Notification.ID, entry)
		pipe.ZAdd(ctx, m.ExpiryKey(), redis.Z{
			Score:  float64(event.Notification.ExpiresAt.UnixMilli()),
			Member: event.Notification.ID,
		})
	case notify.EventExpired, notify.EventDismissed:
		pipe.HDel(ctx, m.NotificationsKey(), event.Notification.ID)
		pipe.ZRem(ctx, m.ExpiryKey(), event.Notification.ID)
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
	pipe.Publish(ctx, m.EventsChannel(), payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	if event.Kind == notify.EventExpired {
		if _, err := m.Prune(ctx, event.Notification.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}

// Prune removes every mirrored notification whose expiry is at or before
// cutoff. Expiry events are applied in order, so an entry left behind by a
// dropped event is cleared by the next expiry.
func (m *Mirror) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := m.client.ZRangeByScore(ctx, m.ExpiryKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zrangebyscore failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	pipe := m.client.TxPipeline()
	pipe.HDel(ctx, m.NotificationsKey(), ids...)
	pipe.ZRem(ctx, m.ExpiryKey(), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis prune failed: %w", err)
	}
	return len(ids), nil
}

// Sync replaces the mirrored set with the given notifications. Used once at
// startup so stale entries from a previous process disappear.
func (m *Mirror) Sync(ctx context.Context, active []notify.Notification) error {
	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.NotificationsKey(), m.ExpiryKey())
	for _, n := range active {
		entry, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		pipe.HSet(ctx, m.NotificationsKey(), n.ID, entry)
		pipe.ZAdd(ctx, m.ExpiryKey(), redis.Z{Score: float64(n.ExpiresAt.UnixMilli()), Member: n.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis sync failed: %w", err)
	}
	return nil
}
