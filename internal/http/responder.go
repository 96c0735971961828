package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/engine"
)

var errBadRequestBody = errors.New("request body is not valid JSON")

func errInvalidQuery(name string) error {
	return fmt.Errorf("query parameter %q is invalid", name)
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "request validation failed",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: message})
}

// statusFor maps engine and application errors to an HTTP status and a
// stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable, "ENGINE_STOPPED"
	case errors.Is(err, application.ErrUnknownEquipment):
		return http.StatusNotFound, "UNKNOWN_EQUIPMENT"
	case errors.Is(err, application.ErrUnknownIntervention):
		return http.StatusNotFound, "UNKNOWN_INTERVENTION"
	case errors.Is(err, application.ErrUnknownTechnician):
		return http.StatusNotFound, "UNKNOWN_TECHNICIAN"
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, application.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, application.ErrInvalidArgument):
		return http.StatusUnprocessableEntity, "INVALID_ARGUMENT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
