package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/gasguard/internal/notify"
	"github.com/example/gasguard/internal/persistence"
)

// DefaultReminderWindow is how far ahead planned events trigger a reminder.
const DefaultReminderWindow = 24 * time.Hour

// MaintenanceSchedulerConfig tunes the scheduler time rules.
type MaintenanceSchedulerConfig struct {
	// LookAheadDays extends the maintenance hold to events due within that
	// many days. Zero holds equipment only for events due today or overdue.
	LookAheadDays  int
	ReminderWindow time.Duration
	Location       *time.Location
}

// MaintenanceScheduler owns the planned -> done|missed state machine and
// mirrors outstanding events onto the equipment status. It is not safe for
// concurrent use; callers serialize access.
type MaintenanceScheduler struct {
	equipment persistence.EquipmentRepository
	events    persistence.MaintenanceRepository
	alerts    AlertEmitter
	documents DocumentSink

	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	lookAheadDays  int
	reminderWindow time.Duration
	location       *time.Location

	reminded map[string]struct{}
}

// NewMaintenanceScheduler constructs a scheduler with the provided dependencies.
func NewMaintenanceScheduler(equipment persistence.EquipmentRepository, events persistence.MaintenanceRepository, alerts AlertEmitter, documents DocumentSink, cfg MaintenanceSchedulerConfig, idGenerator func() string, now func() time.Time) *MaintenanceScheduler {
	return NewMaintenanceSchedulerWithLogger(equipment, events, alerts, documents, cfg, idGenerator, now, nil)
}

// NewMaintenanceSchedulerWithLogger constructs a scheduler with a specified logger.
func NewMaintenanceSchedulerWithLogger(equipment persistence.EquipmentRepository, events persistence.MaintenanceRepository, alerts AlertEmitter, documents DocumentSink, cfg MaintenanceSchedulerConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MaintenanceScheduler {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = DefaultReminderWindow
	}
	if cfg.LookAheadDays < 0 {
		cfg.LookAheadDays = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &MaintenanceScheduler{
		equipment:      equipment,
		events:         events,
		alerts:         defaultEmitter(alerts),
		documents:      documents,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
		lookAheadDays:  cfg.LookAheadDays,
		reminderWindow: cfg.ReminderWindow,
		location:       cfg.Location,
		reminded:       make(map[string]struct{}),
	}
}

func (s *MaintenanceScheduler) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MaintenanceScheduler", operation, attrs...)
}

func (s *MaintenanceScheduler) today() time.Time {
	return CalendarDate(s.now(), s.location)
}

// Schedule plans a maintenance event for existing equipment.
func (s *MaintenanceScheduler) Schedule(ctx context.Context, input ScheduleMaintenanceInput) (event persistence.MaintenanceEvent, err error) {
	if s == nil {
		err = fmt.Errorf("MaintenanceScheduler is nil")
		return
	}

	logger := s.loggerWith(ctx, "Schedule", "equipment_id", input.EquipmentID, "type", input.Type)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule maintenance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID, "date", FormatDate(event.Date)).InfoContext(ctx, "maintenance scheduled")
	}()

	vErr := &ValidationError{}
	if !input.Type.Valid() {
		vErr.add("type", "type must be one of calibration, maintenance, bump")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.equipment.GetEquipment(ctx, input.EquipmentID); err != nil {
		err = mapRepoError(err, ErrUnknownEquipment)
		return
	}

	now := s.now()
	event = persistence.MaintenanceEvent{
		ID:          s.idGenerator(),
		EquipmentID: input.EquipmentID,
		Type:        input.Type,
		Date:        CalendarDate(input.Date, s.location),
		Status:      persistence.MaintenancePlanned,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.events.CreateMaintenanceEvent(ctx, event); err != nil {
		err = mapRepoError(err, ErrUnknownEquipment)
		event = persistence.MaintenanceEvent{}
		return
	}

	if rErr := s.reconcileEquipment(ctx, event.EquipmentID); rErr != nil {
		logger.WarnContext(ctx, "failed to reconcile equipment status", "error", rErr, "error_kind", ErrorKind(rErr))
	}
	return
}

// Complete marks a planned event as done and forwards the outcome to the
// document collaborator.
func (s *MaintenanceScheduler) Complete(ctx context.Context, eventID string, outcome map[string]string) (event persistence.MaintenanceEvent, err error) {
	if s == nil {
		err = fmt.Errorf("MaintenanceScheduler is nil")
		return
	}

	logger := s.loggerWith(ctx, "Complete", "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete maintenance", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("equipment_id", event.EquipmentID).InfoContext(ctx, "maintenance completed")
	}()

	now := s.now()
	event, err = s.events.UpdateMaintenanceEvent(ctx, eventID, func(e *persistence.MaintenanceEvent) error {
		if e.Status != persistence.MaintenancePlanned {
			return fmt.Errorf("%w: event %s is %s", ErrInvalidTransition, e.ID, e.Status)
		}
		e.Status = persistence.MaintenanceDone
		e.Outcome = copyOutcome(outcome)
		completed := now
		e.CompletedAt = &completed
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		err = mapRepoError(err, ErrNotFound)
		return
	}
	delete(s.reminded, event.ID)

	if rErr := s.reconcileEquipment(ctx, event.EquipmentID); rErr != nil {
		logger.WarnContext(ctx, "failed to reconcile equipment status", "error", rErr, "error_kind", ErrorKind(rErr))
	}
	s.requestDocument(ctx, logger, event)
	return
}

func (s *MaintenanceScheduler) requestDocument(ctx context.Context, logger *slog.Logger, event persistence.MaintenanceEvent) {
	if s.documents == nil {
		return
	}
	request := DocumentRequest{
		Kind:            documentKindFor(event.Type),
		EventID:         event.ID,
		EquipmentID:     event.EquipmentID,
		MaintenanceType: event.Type,
		Date:            FormatDate(event.Date),
		Outcome:         copyOutcome(event.Outcome),
	}
	if event.CompletedAt != nil {
		request.CompletedAt = *event.CompletedAt
	}
	if equipment, err := s.equipment.GetEquipment(ctx, event.EquipmentID); err == nil {
		request.EquipmentSerial = equipment.Serial
	}
	if err := s.documents.RequestDocument(ctx, request); err != nil {
		logger.WarnContext(ctx, "document request dropped", "error", err, "kind", request.Kind)
	}
}

// Get returns a maintenance event by id.
func (s *MaintenanceScheduler) Get(ctx context.Context, eventID string) (persistence.MaintenanceEvent, error) {
	event, err := s.events.GetMaintenanceEvent(ctx, eventID)
	if err != nil {
		return persistence.MaintenanceEvent{}, mapRepoError(err, ErrNotFound)
	}
	return event, nil
}

// List returns events matching filter ordered by date.
func (s *MaintenanceScheduler) List(ctx context.Context, filter MaintenanceFilter) ([]persistence.MaintenanceEvent, error) {
	return s.events.ListMaintenanceEvents(ctx, filter.Match)
}

// SweepOverdue marks every planned event dated before today as missed, emits
// one MaintenanceOverdue alert per transition and reconciles equipment
// status. Failures on one record are logged and the sweep continues.
func (s *MaintenanceScheduler) SweepOverdue(ctx context.Context) int {
	logger := s.loggerWith(ctx, "SweepOverdue")
	today := s.today()
	now := s.now()

	overdue, err := s.events.ListMaintenanceEvents(ctx, func(e persistence.MaintenanceEvent) bool {
		return e.Status == persistence.MaintenancePlanned && e.Date.Before(today)
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to list overdue events", "error", err, "error_kind", ErrorKind(err))
		return 0
	}

	missed := 0
	for _, candidate := range overdue {
		event, uErr := s.events.UpdateMaintenanceEvent(ctx, candidate.ID, func(e *persistence.MaintenanceEvent) error {
			if e.Status != persistence.MaintenancePlanned {
				return ErrInvalidTransition
			}
			e.Status = persistence.MaintenanceMissed
			e.UpdatedAt = now
			return nil
		})
		if uErr != nil {
			if !errors.Is(uErr, ErrInvalidTransition) {
				logger.WarnContext(ctx, "failed to mark event missed", "event_id", candidate.ID, "error", uErr, "error_kind", ErrorKind(uErr))
			}
			continue
		}
		missed++
		delete(s.reminded, event.ID)
		s.alerts.Emit(ctx, Alert{
			Code:     AlertMaintenanceOverdue,
			Severity: notify.SeverityError,
			Message: fmt.Sprintf("Maintenance overdue: %s %s for equipment %s was planned on %s",
				event.Type, event.ID, event.EquipmentID, FormatDate(event.Date)),
			Subject: event.ID,
		})
	}

	s.ReconcileAll(ctx)
	if missed > 0 {
		logger.With("missed_count", missed).InfoContext(ctx, "overdue maintenance marked missed")
	}
	return missed
}

// SweepReminders emits one MaintenanceReminder per planned event falling due
// within the reminder window. An event is reminded at most once.
func (s *MaintenanceScheduler) SweepReminders(ctx context.Context) int {
	logger := s.loggerWith(ctx, "SweepReminders")
	now := s.now()
	today := CalendarDate(now, s.location)
	horizon := now.Add(s.reminderWindow)

	planned, err := s.events.ListMaintenanceEvents(ctx, func(e persistence.MaintenanceEvent) bool {
		return e.Status == persistence.MaintenancePlanned
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to list planned events", "error", err, "error_kind", ErrorKind(err))
		return 0
	}

	live := make(map[string]struct{}, len(planned))
	sent := 0
	for _, event := range planned {
		live[event.ID] = struct{}{}
		if event.Date.Before(today) || !event.Date.Before(horizon) {
			continue
		}
		if _, ok := s.reminded[event.ID]; ok {
			continue
		}
		s.reminded[event.ID] = struct{}{}
		sent++
		s.alerts.Emit(ctx, Alert{
			Code:     AlertMaintenanceReminder,
			Severity: notify.SeverityWarning,
			Message: fmt.Sprintf("Maintenance planned within %s: %s %s for equipment %s on %s",
				formatWindow(s.reminderWindow), event.Type, event.ID, event.EquipmentID, FormatDate(event.Date)),
			Subject: event.ID,
		})
	}

	for id := range s.reminded {
		if _, ok := live[id]; !ok {
			delete(s.reminded, id)
		}
	}
	return sent
}

// ReconcileAll recomputes the maintenance hold of every equipment.
func (s *MaintenanceScheduler) ReconcileAll(ctx context.Context) {
	logger := s.loggerWith(ctx, "ReconcileAll")
	equipment, err := s.equipment.ListEquipment(ctx, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list equipment", "error", err, "error_kind", ErrorKind(err))
		return
	}
	for _, e := range equipment {
		if rErr := s.reconcileEquipment(ctx, e.ID); rErr != nil {
			logger.WarnContext(ctx, "failed to reconcile equipment status", "equipment_id", e.ID, "error", rErr, "error_kind", ErrorKind(rErr))
		}
	}
}

// reconcileEquipment puts equipment under a maintenance hold while a planned
// event is due within the look-ahead window and restores the resume status
// once none remains.
func (s *MaintenanceScheduler) reconcileEquipment(ctx context.Context, equipmentID string) error {
	limit := s.today().AddDate(0, 0, s.lookAheadDays)
	due, err := s.events.ListMaintenanceEvents(ctx, func(e persistence.MaintenanceEvent) bool {
		return e.EquipmentID == equipmentID && e.Status == persistence.MaintenancePlanned && !e.Date.After(limit)
	})
	if err != nil {
		return err
	}
	hold := len(due) > 0

	current, err := s.equipment.GetEquipment(ctx, equipmentID)
	if err != nil {
		return mapRepoError(err, ErrUnknownEquipment)
	}
	if current.MaintenanceHold == hold {
		return nil
	}

	now := s.now()
	_, err = s.equipment.UpdateEquipment(ctx, equipmentID, func(e *persistence.Equipment) error {
		if hold {
			if e.Status != persistence.EquipmentMaintenance {
				e.ResumeStatus = e.Status
			}
			e.Status = persistence.EquipmentMaintenance
		} else {
			e.Status = e.ResumeStatus
			if !e.Status.Valid() || e.Status == persistence.EquipmentMaintenance {
				e.Status = persistence.EquipmentInStock
			}
		}
		e.MaintenanceHold = hold
		e.UpdatedAt = now
		return nil
	})
	return mapRepoError(err, ErrUnknownEquipment)
}

func copyOutcome(outcome map[string]string) map[string]string {
	if len(outcome) == 0 {
		return nil
	}
	clone := make(map[string]string, len(outcome))
	for key, value := range outcome {
		clone[key] = value
	}
	return clone
}

func formatWindow(window time.Duration) string {
	if window%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(window/time.Hour))
	}
	return window.String()
}
