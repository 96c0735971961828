package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/gasguard/internal/persistence"
)

// EquipmentService registers, updates and retires gas detectors.
type EquipmentService struct {
	equipment   persistence.EquipmentRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEquipmentService constructs an equipment service with the provided dependencies.
func NewEquipmentService(equipment persistence.EquipmentRepository, idGenerator func() string, now func() time.Time) *EquipmentService {
	return NewEquipmentServiceWithLogger(equipment, idGenerator, now, nil)
}

// NewEquipmentServiceWithLogger constructs an equipment service with a specified logger.
func NewEquipmentServiceWithLogger(equipment persistence.EquipmentRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EquipmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EquipmentService{equipment: equipment, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *EquipmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EquipmentService", operation, attrs...)
}

// Register validates input and stores a new detector.
func (s *EquipmentService) Register(ctx context.Context, input RegisterEquipmentInput) (equipment persistence.Equipment, err error) {
	if s == nil || s.equipment == nil {
		err = fmt.Errorf("equipment repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Register", "serial", input.Serial)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register equipment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("equipment_id", equipment.ID).InfoContext(ctx, "equipment registered")
	}()

	vErr := validateEquipmentInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	status := input.Status
	if status == "" {
		status = persistence.EquipmentInStock
	}
	resume := status
	if resume == persistence.EquipmentMaintenance {
		resume = persistence.EquipmentInStock
	}

	equipment = persistence.Equipment{
		ID:           s.idGenerator(),
		Brand:        strings.TrimSpace(input.Brand),
		Model:        strings.TrimSpace(input.Model),
		Serial:       strings.TrimSpace(input.Serial),
		GasTypes:     normalizeGasTypes(input.GasTypes),
		Status:       status,
		ResumeStatus: resume,
		Site:         strings.TrimSpace(input.Site),
		CreatedAt:    s.now(),
	}
	equipment.UpdatedAt = equipment.CreatedAt

	if err = s.equipment.CreateEquipment(ctx, equipment); err != nil {
		err = mapRepoError(err, ErrNotFound)
		equipment = persistence.Equipment{}
		return
	}
	return
}

// Update changes the site and the explicit operational status. While a
// maintenance hold is active the requested operational status is recorded as
// the status to resume once the hold ends.
func (s *EquipmentService) Update(ctx context.Context, id string, input UpdateEquipmentInput) (equipment persistence.Equipment, err error) {
	if s == nil || s.equipment == nil {
		err = fmt.Errorf("equipment repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Update", "equipment_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update equipment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", equipment.Status).InfoContext(ctx, "equipment updated")
	}()

	vErr := &ValidationError{}
	if input.Site != nil && strings.TrimSpace(*input.Site) == "" {
		vErr.add("site", "site must not be blank")
	}
	if input.Status != nil && !input.Status.Valid() {
		vErr.add("status", "status must be one of stock, in_use, maintenance")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	equipment, err = s.equipment.UpdateEquipment(ctx, id, func(e *persistence.Equipment) error {
		if input.Site != nil {
			e.Site = strings.TrimSpace(*input.Site)
		}
		if input.Status != nil {
			applyExplicitStatus(e, *input.Status)
		}
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		err = mapRepoError(err, ErrNotFound)
	}
	return
}

func applyExplicitStatus(e *persistence.Equipment, status persistence.EquipmentStatus) {
	if e.MaintenanceHold {
		if status != persistence.EquipmentMaintenance {
			e.ResumeStatus = status
		}
		return
	}
	e.Status = status
	if status != persistence.EquipmentMaintenance {
		e.ResumeStatus = status
	}
}

// Retire deletes the detector together with its maintenance events.
func (s *EquipmentService) Retire(ctx context.Context, id string) error {
	if s == nil || s.equipment == nil {
		return fmt.Errorf("equipment repository not configured")
	}

	logger := s.loggerWith(ctx, "Retire", "equipment_id", id)
	if err := s.equipment.DeleteEquipment(ctx, id); err != nil {
		err = mapRepoError(err, ErrNotFound)
		logger.ErrorContext(ctx, "failed to retire equipment", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "equipment retired")
	return nil
}

// Get returns a single detector.
func (s *EquipmentService) Get(ctx context.Context, id string) (persistence.Equipment, error) {
	if s == nil || s.equipment == nil {
		return persistence.Equipment{}, fmt.Errorf("equipment repository not configured")
	}
	equipment, err := s.equipment.GetEquipment(ctx, id)
	if err != nil {
		return persistence.Equipment{}, mapRepoError(err, ErrNotFound)
	}
	return equipment, nil
}

// List returns detectors matching filter ordered by registration time.
func (s *EquipmentService) List(ctx context.Context, filter EquipmentFilter) ([]persistence.Equipment, error) {
	if s == nil || s.equipment == nil {
		return nil, nil
	}
	return s.equipment.ListEquipment(ctx, filter.Match)
}

func validateEquipmentInput(input RegisterEquipmentInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Brand) == "" {
		vErr.add("brand", "brand is required")
	}
	if strings.TrimSpace(input.Model) == "" {
		vErr.add("model", "model is required")
	}
	if strings.TrimSpace(input.Serial) == "" {
		vErr.add("serial", "serial is required")
	}
	if len(normalizeGasTypes(input.GasTypes)) == 0 {
		vErr.add("gas_types", "at least one gas type is required")
	}
	if input.Status != "" && !input.Status.Valid() {
		vErr.add("status", "status must be one of stock, in_use, maintenance")
	}

	return vErr
}

// normalizeGasTypes trims entries and drops blanks and case-insensitive duplicates.
func normalizeGasTypes(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := strings.ToUpper(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
