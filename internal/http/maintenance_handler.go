package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

type maintenanceService interface {
	ScheduleMaintenance(ctx context.Context, input application.ScheduleMaintenanceInput) (persistence.MaintenanceEvent, error)
	CompleteMaintenance(ctx context.Context, eventID string, outcome map[string]string) (persistence.MaintenanceEvent, error)
	GetMaintenanceEvent(ctx context.Context, id string) (persistence.MaintenanceEvent, error)
	ListMaintenanceEvents(ctx context.Context, filter application.MaintenanceFilter) ([]persistence.MaintenanceEvent, error)
}

// MaintenanceHandler plans and completes maintenance events.
type MaintenanceHandler struct {
	service   maintenanceService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewMaintenanceHandler(service maintenanceService, location *time.Location, logger *slog.Logger) *MaintenanceHandler {
	base := defaultLogger(logger)
	if location == nil {
		location = time.UTC
	}
	return &MaintenanceHandler{service: service, location: location, responder: newResponder(base), logger: base}
}

func (h *MaintenanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MaintenanceHandler", operation, attrs...)
}

func (h *MaintenanceHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Schedule", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode maintenance request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	date, err := application.ParseDate(req.Date, h.location)
	if err != nil {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "request validation failed",
			Errors:    map[string]string{"date": "must be a YYYY-MM-DD date"},
		})
		return
	}

	logger := h.log(r.Context(), "Schedule", "equipment_id", strings.TrimSpace(req.EquipmentID))
	event, err := h.service.ScheduleMaintenance(r.Context(), application.ScheduleMaintenanceInput{
		EquipmentID: strings.TrimSpace(req.EquipmentID),
		Type:        persistence.MaintenanceType(strings.TrimSpace(req.Type)),
		Date:        date,
	})
	if err != nil {
		logger.WarnContext(r.Context(), "maintenance scheduling failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("event_id", event.ID).InfoContext(r.Context(), "maintenance scheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, maintenanceResponse{Event: toMaintenanceDTO(event)})
}

func (h *MaintenanceHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req completeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.log(r.Context(), "Complete", "event_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode completion", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Complete", "event_id", id)
	event, err := h.service.CompleteMaintenance(r.Context(), id, req.Outcome)
	if err != nil {
		logger.WarnContext(r.Context(), "maintenance completion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "maintenance completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, maintenanceResponse{Event: toMaintenanceDTO(event)})
}

func (h *MaintenanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.GetMaintenanceEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, maintenanceResponse{Event: toMaintenanceDTO(event)})
}

func (h *MaintenanceHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := application.MaintenanceFilter{
		EquipmentID: strings.TrimSpace(query.Get("equipment_id")),
		Status:      persistence.MaintenanceStatus(strings.TrimSpace(query.Get("status"))),
		Type:        persistence.MaintenanceType(strings.TrimSpace(query.Get("type"))),
	}
	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := strings.TrimSpace(query.Get(bound.name))
		if raw == "" {
			continue
		}
		date, err := application.ParseDate(raw, h.location)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errInvalidQuery(bound.name))
			return
		}
		*bound.dst = &date
	}

	list, err := h.service.ListMaintenanceEvents(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMaintenanceResponse{Events: toMaintenanceDTOs(list)})
}

type maintenanceRequest struct {
	EquipmentID string `json:"equipment_id"`
	Type        string `json:"type"`
	Date        string `json:"date"`
}

type completeRequest struct {
	Outcome map[string]string `json:"outcome"`
}

type maintenanceResponse struct {
	Event maintenanceDTO `json:"event"`
}

type listMaintenanceResponse struct {
	Events []maintenanceDTO `json:"events"`
}

type maintenanceDTO struct {
	ID          string            `json:"id"`
	EquipmentID string            `json:"equipment_id"`
	Type        string            `json:"type"`
	Date        string            `json:"date"`
	Status      string            `json:"status"`
	Outcome     map[string]string `json:"outcome,omitempty"`
	CompletedAt string            `json:"completed_at,omitempty"`
}

func toMaintenanceDTO(event persistence.MaintenanceEvent) maintenanceDTO {
	dto := maintenanceDTO{
		ID:          event.ID,
		EquipmentID: event.EquipmentID,
		Type:        string(event.Type),
		Date:        application.FormatDate(event.Date),
		Status:      string(event.Status),
		Outcome:     event.Outcome,
	}
	if event.CompletedAt != nil {
		dto.CompletedAt = formatInstant(*event.CompletedAt)
	}
	return dto
}

func toMaintenanceDTOs(list []persistence.MaintenanceEvent) []maintenanceDTO {
	out := make([]maintenanceDTO, 0, len(list))
	for _, event := range list {
		out = append(out, toMaintenanceDTO(event))
	}
	return out
}
