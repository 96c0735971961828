package application

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/example/gasguard/internal/persistence"
)

// AssignmentResolver records which technician handles an intervention.
// Assignment is always an explicit decision; nothing is matched automatically.
type AssignmentResolver struct {
	interventions persistence.InterventionRepository
	technicians   persistence.TechnicianRepository
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
}

// NewAssignmentResolver constructs a resolver with the provided dependencies.
func NewAssignmentResolver(interventions persistence.InterventionRepository, technicians persistence.TechnicianRepository, idGenerator func() string, now func() time.Time) *AssignmentResolver {
	return NewAssignmentResolverWithLogger(interventions, technicians, idGenerator, now, nil)
}

// NewAssignmentResolverWithLogger constructs a resolver with a specified logger.
func NewAssignmentResolverWithLogger(interventions persistence.InterventionRepository, technicians persistence.TechnicianRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AssignmentResolver {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AssignmentResolver{
		interventions: interventions,
		technicians:   technicians,
		idGenerator:   idGenerator,
		now:           now,
		logger:        defaultLogger(logger),
	}
}

func (r *AssignmentResolver) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, r.logger, "AssignmentResolver", operation, attrs...)
}

// AddTechnician stores a technician.
func (r *AssignmentResolver) AddTechnician(ctx context.Context, input AddTechnicianInput) (technician persistence.Technician, err error) {
	logger := r.loggerWith(ctx, "AddTechnician", "name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add technician", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("technician_id", technician.ID).InfoContext(ctx, "technician added")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if math.IsNaN(input.Location.Lat) || input.Location.Lat < -90 || input.Location.Lat > 90 {
		vErr.add("lat", "latitude must be within [-90, 90]")
	}
	if math.IsNaN(input.Location.Lng) || input.Location.Lng < -180 || input.Location.Lng > 180 {
		vErr.add("lng", "longitude must be within [-180, 180]")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	technician = persistence.Technician{
		ID:       r.idGenerator(),
		Name:     strings.TrimSpace(input.Name),
		Location: input.Location,
	}
	if err = r.technicians.CreateTechnician(ctx, technician); err != nil {
		err = mapRepoError(err, ErrNotFound)
		technician = persistence.Technician{}
	}
	return
}

// AddIntervention stores an unassigned intervention.
func (r *AssignmentResolver) AddIntervention(ctx context.Context, label string) (intervention persistence.Intervention, err error) {
	logger := r.loggerWith(ctx, "AddIntervention", "label", label)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add intervention", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("intervention_id", intervention.ID).InfoContext(ctx, "intervention added")
	}()

	if strings.TrimSpace(label) == "" {
		err = invalidField("label", "label is required")
		return
	}

	intervention = persistence.Intervention{ID: r.idGenerator(), Label: strings.TrimSpace(label)}
	if err = r.interventions.CreateIntervention(ctx, intervention); err != nil {
		err = mapRepoError(err, ErrNotFound)
		intervention = persistence.Intervention{}
	}
	return
}

// Assign sets the technician of an intervention. Assigning the current
// technician again is a no-op; a different technician overwrites.
func (r *AssignmentResolver) Assign(ctx context.Context, interventionID, technicianID string) (intervention persistence.Intervention, err error) {
	logger := r.loggerWith(ctx, "Assign", "intervention_id", interventionID, "technician_id", technicianID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign intervention", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "intervention assigned")
	}()

	if intervention, err = r.interventions.GetIntervention(ctx, interventionID); err != nil {
		err = mapRepoError(err, ErrUnknownIntervention)
		return
	}
	if _, err = r.technicians.GetTechnician(ctx, technicianID); err != nil {
		err = mapRepoError(err, ErrUnknownTechnician)
		return
	}
	if intervention.AssignedTo != nil && *intervention.AssignedTo == technicianID {
		return
	}

	now := r.now()
	intervention, err = r.interventions.UpdateIntervention(ctx, interventionID, func(i *persistence.Intervention) error {
		assignee := technicianID
		assignedAt := now
		i.AssignedTo = &assignee
		i.AssignedAt = &assignedAt
		return nil
	})
	if err != nil {
		err = mapRepoError(err, ErrUnknownIntervention)
	}
	return
}

// Unassign clears the technician of an intervention.
func (r *AssignmentResolver) Unassign(ctx context.Context, interventionID string) (intervention persistence.Intervention, err error) {
	logger := r.loggerWith(ctx, "Unassign", "intervention_id", interventionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to unassign intervention", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "intervention unassigned")
	}()

	intervention, err = r.interventions.UpdateIntervention(ctx, interventionID, func(i *persistence.Intervention) error {
		i.AssignedTo = nil
		i.AssignedAt = nil
		return nil
	})
	if err != nil {
		err = mapRepoError(err, ErrUnknownIntervention)
	}
	return
}

// Technicians lists every technician ordered by name.
func (r *AssignmentResolver) Technicians(ctx context.Context) ([]persistence.Technician, error) {
	return r.technicians.ListTechnicians(ctx, nil)
}

// Interventions lists interventions matching filter ordered by label.
func (r *AssignmentResolver) Interventions(ctx context.Context, filter InterventionFilter) ([]persistence.Intervention, error) {
	return r.interventions.ListInterventions(ctx, filter.Match)
}
