package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/gasguard/internal/logging"
	"github.com/example/gasguard/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// serviceLogger scopes a logger to one service operation. A logger carried in
// ctx (an HTTP request or an engine task) wins over the service's base logger.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := make([]any, 0, 4+len(attrs))
	pairs = append(pairs, "service", serviceName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	return logger.With(append(pairs, attrs...)...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict), errors.Is(err, persistence.ErrDuplicate):
		return "conflict"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrUnknownEquipment):
		return "unknown_equipment"
	case errors.Is(err, ErrUnknownIntervention):
		return "unknown_intervention"
	case errors.Is(err, ErrUnknownTechnician):
		return "unknown_technician"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	}

	return "unexpected"
}
