package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

type fieldService interface {
	AddTechnician(ctx context.Context, input application.AddTechnicianInput) (persistence.Technician, error)
	ListTechnicians(ctx context.Context) ([]persistence.Technician, error)
	AddIntervention(ctx context.Context, label string) (persistence.Intervention, error)
	ListInterventions(ctx context.Context, filter application.InterventionFilter) ([]persistence.Intervention, error)
	AssignIntervention(ctx context.Context, interventionID, technicianID string) (persistence.Intervention, error)
	UnassignIntervention(ctx context.Context, interventionID string) (persistence.Intervention, error)
}

// FieldHandler serves technicians and the interventions assigned to them.
type FieldHandler struct {
	service   fieldService
	responder responder
	logger    *slog.Logger
}

func NewFieldHandler(service fieldService, logger *slog.Logger) *FieldHandler {
	base := defaultLogger(logger)
	return &FieldHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *FieldHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "FieldHandler", operation, attrs...)
}

func (h *FieldHandler) CreateTechnician(w http.ResponseWriter, r *http.Request) {
	var req technicianRequest
	if err := decodeJSON(r, &req); err != nil || req.Lat == nil || req.Lng == nil {
		h.log(r.Context(), "CreateTechnician", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode technician", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateTechnician")
	technician, err := h.service.AddTechnician(r.Context(), application.AddTechnicianInput{
		Name:     strings.TrimSpace(req.Name),
		Location: persistence.GeoPoint{Lat: *req.Lat, Lng: *req.Lng},
	})
	if err != nil {
		logger.WarnContext(r.Context(), "technician creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("technician_id", technician.ID).InfoContext(r.Context(), "technician added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, technicianResponse{Technician: toTechnicianDTO(technician)})
}

func (h *FieldHandler) ListTechnicians(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListTechnicians(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]technicianDTO, 0, len(list))
	for _, technician := range list {
		out = append(out, toTechnicianDTO(technician))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTechniciansResponse{Technicians: out})
}

func (h *FieldHandler) CreateIntervention(w http.ResponseWriter, r *http.Request) {
	var req interventionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "CreateIntervention")
	intervention, err := h.service.AddIntervention(r.Context(), strings.TrimSpace(req.Label))
	if err != nil {
		logger.WarnContext(r.Context(), "intervention creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("intervention_id", intervention.ID).InfoContext(r.Context(), "intervention added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, interventionResponse{Intervention: toInterventionDTO(intervention)})
}

func (h *FieldHandler) ListInterventions(w http.ResponseWriter, r *http.Request) {
	var filter application.InterventionFilter
	if raw := strings.TrimSpace(r.URL.Query().Get("assigned")); raw != "" {
		assigned, err := strconv.ParseBool(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errInvalidQuery("assigned"))
			return
		}
		filter.Assigned = &assigned
	}
	filter.TechnicianID = strings.TrimSpace(r.URL.Query().Get("technician_id"))

	list, err := h.service.ListInterventions(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]interventionDTO, 0, len(list))
	for _, intervention := range list {
		out = append(out, toInterventionDTO(intervention))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listInterventionsResponse{Interventions: out})
}

func (h *FieldHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req assigneeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Assign", "intervention_id", id, "technician_id", req.TechnicianID)
	intervention, err := h.service.AssignIntervention(r.Context(), id, strings.TrimSpace(req.TechnicianID))
	if err != nil {
		logger.WarnContext(r.Context(), "assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "intervention assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, interventionResponse{Intervention: toInterventionDTO(intervention)})
}

func (h *FieldHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Unassign", "intervention_id", id)
	intervention, err := h.service.UnassignIntervention(r.Context(), id)
	if err != nil {
		logger.WarnContext(r.Context(), "unassignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "intervention unassigned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, interventionResponse{Intervention: toInterventionDTO(intervention)})
}

type technicianRequest struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lng  *float64 `json:"lng"`
}

type interventionRequest struct {
	Label string `json:"label"`
}

type assigneeRequest struct {
	TechnicianID string `json:"technician_id"`
}

type technicianResponse struct {
	Technician technicianDTO `json:"technician"`
}

type listTechniciansResponse struct {
	Technicians []technicianDTO `json:"technicians"`
}

type interventionResponse struct {
	Intervention interventionDTO `json:"intervention"`
}

type listInterventionsResponse struct {
	Interventions []interventionDTO `json:"interventions"`
}

type technicianDTO struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func toTechnicianDTO(technician persistence.Technician) technicianDTO {
	return technicianDTO{
		ID:   technician.ID,
		Name: technician.Name,
		Lat:  technician.Location.Lat,
		Lng:  technician.Location.Lng,
	}
}

type interventionDTO struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	AssignedTo *string `json:"assigned_to"`
	AssignedAt string  `json:"assigned_at,omitempty"`
}

func toInterventionDTO(intervention persistence.Intervention) interventionDTO {
	dto := interventionDTO{
		ID:         intervention.ID,
		Label:      intervention.Label,
		AssignedTo: intervention.AssignedTo,
	}
	if intervention.AssignedAt != nil {
		dto.AssignedAt = formatInstant(*intervention.AssignedAt)
	}
	return dto
}
