package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/notify"
)

// notifierEmitter bridges rule alerts to the notification set.
type notifierEmitter struct {
	notifier *notify.Notifier
	logger   *slog.Logger
}

func (e *notifierEmitter) Emit(ctx context.Context, alert application.Alert) {
	id, err := e.notifier.Raise(notify.Alert{
		Message:  alert.Message,
		Severity: alert.Severity,
		Code:     string(alert.Code),
		Subject:  alert.Subject,
	})
	if err != nil {
		e.logger.DebugContext(ctx, "alert dropped", "code", alert.Code, "subject", alert.Subject, "error", err)
		return
	}
	e.logger.InfoContext(ctx, "alert raised", "notification_id", id, "code", alert.Code, "severity", alert.Severity, "subject", alert.Subject)
}

// DefaultDocumentQueueSize bounds the document requests waiting for the sink.
const DefaultDocumentQueueSize = 64

var (
	errDocumentQueueFull   = errors.New("engine: document queue full")
	errDocumentQueueClosed = errors.New("engine: document queue closed")
)

type documentJob struct {
	ctx     context.Context
	request application.DocumentRequest
}

// documentDispatcher hands document requests to the sink from its own
// goroutine so a slow sink never holds the command mutex. Enqueueing never
// blocks: a full queue drops the request and counts it.
type documentDispatcher struct {
	sink    application.DocumentSink
	logger  *slog.Logger
	queue   chan documentJob
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool
}

func newDocumentDispatcher(sink application.DocumentSink, size int, logger *slog.Logger) *documentDispatcher {
	if size <= 0 {
		size = DefaultDocumentQueueSize
	}
	d := &documentDispatcher{
		sink:   sink,
		logger: logger,
		queue:  make(chan documentJob, size),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *documentDispatcher) RequestDocument(ctx context.Context, request application.DocumentRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errDocumentQueueClosed
	}
	select {
	case d.queue <- documentJob{ctx: context.WithoutCancel(ctx), request: request}:
		return nil
	default:
		d.dropped.Add(1)
		return errDocumentQueueFull
	}
}

// Dropped counts requests rejected because the queue was full.
func (d *documentDispatcher) Dropped() uint64 { return d.dropped.Load() }

func (d *documentDispatcher) run() {
	defer close(d.done)
	for job := range d.queue {
		if err := d.sink.RequestDocument(job.ctx, job.request); err != nil {
			d.logger.WarnContext(job.ctx, "document request failed",
				"error", err,
				"kind", job.request.Kind,
				"event_id", job.request.EventID,
			)
		}
	}
}

// Close delivers what is already queued and waits for the worker.
func (d *documentDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}
