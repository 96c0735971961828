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

type stockService interface {
	AddStock(ctx context.Context, input application.AddStockInput) (persistence.StockItem, error)
	SetStockQuantity(ctx context.Context, id string, quantity int) (persistence.StockItem, error)
	ConsumeStock(ctx context.Context, id string, n int) (persistence.StockItem, error)
	RemoveStock(ctx context.Context, id string) error
	GetStockItem(ctx context.Context, id string) (persistence.StockItem, error)
	ListStockItems(ctx context.Context) ([]persistence.StockItem, error)
}

// StockHandler manages consumable stock levels.
type StockHandler struct {
	service   stockService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewStockHandler(service stockService, location *time.Location, logger *slog.Logger) *StockHandler {
	base := defaultLogger(logger)
	if location == nil {
		location = time.UTC
	}
	return &StockHandler{service: service, location: location, responder: newResponder(base), logger: base}
}

func (h *StockHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "StockHandler", operation, attrs...)
}

func (h *StockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil || req.MinThreshold == nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode stock request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	input := application.AddStockInput{
		Name:         strings.TrimSpace(req.Name),
		Quantity:     *req.Quantity,
		MinThreshold: *req.MinThreshold,
	}
	if raw := strings.TrimSpace(req.ExpirationDate); raw != "" {
		date, err := application.ParseDate(raw, h.location)
		if err != nil {
			h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
				ErrorCode: "VALIDATION_FAILED",
				Message:   "request validation failed",
				Errors:    map[string]string{"expiration_date": "must be a YYYY-MM-DD date"},
			})
			return
		}
		input.ExpirationDate = date
	}

	logger := h.log(r.Context(), "Create", "name", input.Name)
	item, err := h.service.AddStock(r.Context(), input)
	if err != nil {
		logger.WarnContext(r.Context(), "stock creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("stock_id", item.ID).InfoContext(r.Context(), "stock item added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, stockResponse{Item: toStockDTO(item)})
}

func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetStockItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stockResponse{Item: toStockDTO(item)})
}

func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListStockItems(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listStockResponse{Items: toStockDTOs(list)})
}

func (h *StockHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil || req.Quantity == nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetQuantity", "stock_id", id)
	item, err := h.service.SetStockQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		logger.WarnContext(r.Context(), "stock quantity update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "stock quantity updated", "quantity", item.Quantity)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stockResponse{Item: toStockDTO(item)})
}

func (h *StockHandler) Consume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req consumeRequest
	if err := decodeJSON(r, &req); err != nil || req.Count == nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "BAD_REQUEST", errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Consume", "stock_id", id)
	item, err := h.service.ConsumeStock(r.Context(), id, *req.Count)
	if err != nil {
		logger.WarnContext(r.Context(), "stock consumption failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "stock consumed", "quantity", item.Quantity)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, stockResponse{Item: toStockDTO(item)})
}

func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := h.log(r.Context(), "Delete", "stock_id", id)
	if err := h.service.RemoveStock(r.Context(), id); err != nil {
		logger.WarnContext(r.Context(), "stock removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	logger.InfoContext(r.Context(), "stock item removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type stockRequest struct {
	Name           string `json:"name"`
	Quantity       *int   `json:"quantity"`
	MinThreshold   *int   `json:"min_threshold"`
	ExpirationDate string `json:"expiration_date"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type consumeRequest struct {
	Count *int `json:"count"`
}

type stockResponse struct {
	Item stockDTO `json:"item"`
}

type listStockResponse struct {
	Items []stockDTO `json:"items"`
}

type stockDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	MinThreshold   int    `json:"min_threshold"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	Low            bool   `json:"low"`
}

func toStockDTO(item persistence.StockItem) stockDTO {
	return stockDTO{
		ID:             item.ID,
		Name:           item.Name,
		Quantity:       item.Quantity,
		MinThreshold:   item.MinThreshold,
		ExpirationDate: application.FormatDate(item.ExpirationDate),
		Low:            item.Quantity <= item.MinThreshold,
	}
}

func toStockDTOs(list []persistence.StockItem) []stockDTO {
	out := make([]stockDTO, 0, len(list))
	for _, item := range list {
		out = append(out, toStockDTO(item))
	}
	return out
}
