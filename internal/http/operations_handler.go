package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/notify"
)

type operationsService interface {
	ListActiveNotifications(ctx context.Context) []notify.Notification
	DismissNotification(ctx context.Context, id string) error
	SweepNotifications(ctx context.Context) (int, error)
	SweepMaintenance(ctx context.Context) (int, error)
	SweepReminders(ctx context.Context) (int, error)
	SweepStock(ctx context.Context) (int, error)
	Stopped() bool
}

var errUnknownSweep = errors.New("unknown sweep; expected maintenance, reminders, stock or notifications")

// healthCheckTimeout bounds each dependency probe run by Health.
const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether an optional dependency such as the snapshot
// database or Redis is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// OperationsHandler exposes notifications, health and manual sweep triggers.
type OperationsHandler struct {
	service   operationsService
	checks    []HealthCheck
	responder responder
	logger    *slog.Logger
}

func NewOperationsHandler(service operationsService, logger *slog.Logger, checks ...HealthCheck) *OperationsHandler {
	base := defaultLogger(logger)
	return &OperationsHandler{service: service, checks: checks, responder: newResponder(base), logger: base}
}

func (h *OperationsHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "OperationsHandler", operation, attrs...)
}

func (h *OperationsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.service.Stopped() {
		h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "stopped"})
		return
	}
	if len(h.checks) == 0 {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			h.log(r.Context(), "Health", "check", check.Name).WarnContext(r.Context(), "health check failed", "error", err)
			results[check.Name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[check.Name] = "ok"
	}
	h.responder.writeJSON(r.Context(), w, code, healthResponse{Status: status, Checks: results})
}

func (h *OperationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list := h.service.ListActiveNotifications(r.Context())
	if list == nil {
		list = []notify.Notification{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listNotificationsResponse{Notifications: list})
}

func (h *OperationsHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "DismissNotification", "notification_id", id)
	if err := h.service.DismissNotification(r.Context(), id); err != nil {
		logger.WarnContext(r.Context(), "dismiss failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "notification dismissed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *OperationsHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var sweep func(context.Context) (int, error)
	switch name {
	case "maintenance":
		sweep = h.service.SweepMaintenance
	case "reminders":
		sweep = h.service.SweepReminders
	case "stock":
		sweep = h.service.SweepStock
	case "notifications":
		sweep = h.service.SweepNotifications
	default:
		h.responder.writeError(r.Context(), w, http.StatusNotFound, "UNKNOWN_SWEEP", errUnknownSweep)
		return
	}

	logger := h.log(r.Context(), "Sweep", "sweep", name)
	affected, err := sweep(r.Context())
	if err != nil {
		logger.WarnContext(r.Context(), "sweep failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "sweep triggered", "affected", affected)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sweepResponse{Sweep: name, Affected: affected})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type listNotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}

type sweepResponse struct {
	Sweep    string `json:"sweep"`
	Affected int    `json:"affected"`
}
