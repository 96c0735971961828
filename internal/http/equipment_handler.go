package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

type equipmentService interface {
	RegisterEquipment(ctx context.Context, input application.RegisterEquipmentInput) (persistence.Equipment, error)
	UpdateEquipment(ctx context.Context, id string, input application.UpdateEquipmentInput) (persistence.Equipment, error)
	RetireEquipment(ctx context.Context, id string) error
	GetEquipment(ctx context.Context, id string) (persistence.Equipment, error)
	ListEquipment(ctx context.Context, filter application.EquipmentFilter) ([]persistence.Equipment, error)
	IngestReading(ctx context.Context, equipmentID string, gasLevel float64, timestamp time.Time) (persistence.Reading, error)
	ListReadings(ctx context.Context, equipmentID string, since time.Time) []persistence.Reading
}

// EquipmentHandler serves the equipment registry and its readings.
type EquipmentHandler struct {
	service   equipmentService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewEquipmentHandler(service equipmentService, now func() time.Time, logger *slog.Logger) *EquipmentHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &EquipmentHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *EquipmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "EquipmentHandler", operation, attrs...)
}

func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode equipment request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "serial", strings.TrimSpace(req.Serial))
	equipment, err := h.service.RegisterEquipment(r.Context(), req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "equipment registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("equipment_id", equipment.ID).InfoContext(r.Context(), "equipment registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, equipmentResponse{Equipment: toEquipmentDTO(equipment)})
}

func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	equipment, err := h.service.GetEquipment(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, equipmentResponse{Equipment: toEquipmentDTO(equipment)})
}

func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := application.EquipmentFilter{
		Status:  persistence.EquipmentStatus(strings.TrimSpace(query.Get("status"))),
		Site:    strings.TrimSpace(query.Get("site")),
		GasType: strings.TrimSpace(query.Get("gas")),
	}

	list, err := h.service.ListEquipment(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEquipmentResponse{Equipment: toEquipmentDTOs(list)})
}

func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req equipmentPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "equipment_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode equipment patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "equipment_id", id)
	equipment, err := h.service.UpdateEquipment(r.Context(), id, req.toInput())
	if err != nil {
		logger.WarnContext(r.Context(), "equipment update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "equipment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, equipmentResponse{Equipment: toEquipmentDTO(equipment)})
}

func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "equipment_id", id)
	if err := h.service.RetireEquipment(r.Context(), id); err != nil {
		logger.WarnContext(r.Context(), "equipment retirement failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "equipment retired")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EquipmentHandler) IngestReading(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req readingRequest
	if err := decodeJSON(r, &req); err != nil || req.GasLevel == nil {
		h.log(r.Context(), "IngestReading", "equipment_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reading", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	timestamp := h.now()
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	reading, err := h.service.IngestReading(r.Context(), id, *req.GasLevel, timestamp)
	if err != nil {
		h.log(r.Context(), "IngestReading", "equipment_id", id).WarnContext(r.Context(), "reading rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, readingResponse{Reading: toReadingDTO(reading)})
}

func (h *EquipmentHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetEquipment(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var since time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errInvalidQuery("since"))
			return
		}
		since = parsed
	}

	readings := h.service.ListReadings(r.Context(), id, since)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReadingsResponse{Readings: toReadingDTOs(readings)})
}

type equipmentRequest struct {
	Brand    string   `json:"brand"`
	Model    string   `json:"model"`
	Serial   string   `json:"serial"`
	GasTypes []string `json:"gas_types"`
	Status   string   `json:"status"`
	Site     string   `json:"site"`
}

func (r equipmentRequest) toInput() application.RegisterEquipmentInput {
	return application.RegisterEquipmentInput{
		Brand:    strings.TrimSpace(r.Brand),
		Model:    strings.TrimSpace(r.Model),
		Serial:   strings.TrimSpace(r.Serial),
		GasTypes: r.GasTypes,
		Status:   persistence.EquipmentStatus(strings.TrimSpace(r.Status)),
		Site:     strings.TrimSpace(r.Site),
	}
}

type equipmentPatchRequest struct {
	Site   *string `json:"site"`
	Status *string `json:"status"`
}

func (r equipmentPatchRequest) toInput() application.UpdateEquipmentInput {
	var input application.UpdateEquipmentInput
	if r.Site != nil {
		site := strings.TrimSpace(*r.Site)
		input.Site = &site
	}
	if r.Status != nil {
		status := persistence.EquipmentStatus(strings.TrimSpace(*r.Status))
		input.Status = &status
	}
	return input
}

type readingRequest struct {
	GasLevel  *float64   `json:"gas_level"`
	Timestamp *time.Time `json:"timestamp"`
}

type equipmentResponse struct {
	Equipment equipmentDTO `json:"equipment"`
}

type listEquipmentResponse struct {
	Equipment []equipmentDTO `json:"equipment"`
}

type readingResponse struct {
	Reading readingDTO `json:"reading"`
}

type listReadingsResponse struct {
	Readings []readingDTO `json:"readings"`
}

type equipmentDTO struct {
	ID              string   `json:"id"`
	Brand           string   `json:"brand"`
	Model           string   `json:"model"`
	Serial          string   `json:"serial"`
	GasTypes        []string `json:"gas_types"`
	Status          string   `json:"status"`
	Site            string   `json:"site,omitempty"`
	MaintenanceHold bool     `json:"maintenance_hold"`
	ResumeStatus    string   `json:"resume_status,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

func toEquipmentDTO(equipment persistence.Equipment) equipmentDTO {
	dto := equipmentDTO{
		ID:              equipment.ID,
		Brand:           equipment.Brand,
		Model:           equipment.Model,
		Serial:          equipment.Serial,
		GasTypes:        equipment.GasTypes,
		Status:          string(equipment.Status),
		Site:            equipment.Site,
		MaintenanceHold: equipment.MaintenanceHold,
		CreatedAt:       formatInstant(equipment.CreatedAt),
		UpdatedAt:       formatInstant(equipment.UpdatedAt),
	}
	if dto.GasTypes == nil {
		dto.GasTypes = []string{}
	}
	if equipment.MaintenanceHold {
		dto.ResumeStatus = string(equipment.ResumeStatus)
	}
	return dto
}

func toEquipmentDTOs(list []persistence.Equipment) []equipmentDTO {
	out := make([]equipmentDTO, 0, len(list))
	for _, equipment := range list {
		out = append(out, toEquipmentDTO(equipment))
	}
	return out
}

type readingDTO struct {
	EquipmentID string  `json:"equipment_id"`
	GasLevel    float64 `json:"gas_level"`
	Timestamp   string  `json:"timestamp"`
}

func toReadingDTO(reading persistence.Reading) readingDTO {
	return readingDTO{
		EquipmentID: reading.EquipmentID,
		GasLevel:    reading.GasLevel,
		Timestamp:   formatInstant(reading.Timestamp),
	}
}

func toReadingDTOs(list []persistence.Reading) []readingDTO {
	out := make([]readingDTO, 0, len(list))
	for _, reading := range list {
		out = append(out, toReadingDTO(reading))
	}
	return out
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
