package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/gasguard/internal/notify"
	"github.com/example/gasguard/internal/persistence"
)

// stockCondition is the last evaluated state of one stock item.
type stockCondition struct {
	low        bool
	quantity   int
	expiring   bool
	expiration time.Time
}

// StockMonitor mutates stock items and raises LowStock and StockExpiring
// alerts on condition transitions. It is not safe for concurrent use.
type StockMonitor struct {
	stock       persistence.StockRepository
	alerts      AlertEmitter
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger

	conditions map[string]stockCondition
}

// NewStockMonitor constructs a stock monitor with the provided dependencies.
func NewStockMonitor(stock persistence.StockRepository, alerts AlertEmitter, location *time.Location, idGenerator func() string, now func() time.Time) *StockMonitor {
	return NewStockMonitorWithLogger(stock, alerts, location, idGenerator, now, nil)
}

// NewStockMonitorWithLogger constructs a stock monitor with a specified logger.
func NewStockMonitorWithLogger(stock persistence.StockRepository, alerts AlertEmitter, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *StockMonitor {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &StockMonitor{
		stock:       stock,
		alerts:      defaultEmitter(alerts),
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		logger:      defaultLogger(logger),
		conditions:  make(map[string]stockCondition),
	}
}

func (m *StockMonitor) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, m.logger, "StockMonitor", operation, attrs...)
}

// AddItem stores a new stock item and evaluates both thresholds.
func (m *StockMonitor) AddItem(ctx context.Context, input AddStockInput) (item persistence.StockItem, err error) {
	if m == nil {
		err = fmt.Errorf("StockMonitor is nil")
		return
	}

	logger := m.loggerWith(ctx, "AddItem", "name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add stock item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("stock_id", item.ID, "quantity", item.Quantity).InfoContext(ctx, "stock item added")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Quantity < 0 {
		vErr.add("quantity", "quantity must not be negative")
	}
	if input.MinThreshold < 0 {
		vErr.add("min_threshold", "min threshold must not be negative")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := m.now()
	item = persistence.StockItem{
		ID:           m.idGenerator(),
		Name:         strings.TrimSpace(input.Name),
		Quantity:     input.Quantity,
		MinThreshold: input.MinThreshold,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !input.ExpirationDate.IsZero() {
		item.ExpirationDate = CalendarDate(input.ExpirationDate, m.location)
	}

	if err = m.stock.CreateStockItem(ctx, item); err != nil {
		err = mapRepoError(err, ErrNotFound)
		item = persistence.StockItem{}
		return
	}

	m.evaluate(ctx, item, CalendarDate(now, m.location))
	return
}

// SetQuantity replaces the quantity of an item and re-evaluates thresholds.
func (m *StockMonitor) SetQuantity(ctx context.Context, id string, quantity int) (item persistence.StockItem, err error) {
	if m == nil {
		err = fmt.Errorf("StockMonitor is nil")
		return
	}

	logger := m.loggerWith(ctx, "SetQuantity", "stock_id", id, "quantity", quantity)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to set stock quantity", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "stock quantity set")
	}()

	if quantity < 0 {
		err = invalidField("quantity", "quantity must not be negative")
		return
	}

	return m.mutateQuantity(ctx, id, func(current int) (int, error) { return quantity, nil })
}

// Consume decrements the quantity by n. Consuming more than is held fails
// with a validation error and leaves the item unchanged.
func (m *StockMonitor) Consume(ctx context.Context, id string, n int) (item persistence.StockItem, err error) {
	if m == nil {
		err = fmt.Errorf("StockMonitor is nil")
		return
	}

	logger := m.loggerWith(ctx, "Consume", "stock_id", id, "consumed", n)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to consume stock", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("quantity", item.Quantity).InfoContext(ctx, "stock consumed")
	}()

	if n <= 0 {
		err = invalidField("quantity", "consumed quantity must be positive")
		return
	}

	return m.mutateQuantity(ctx, id, func(current int) (int, error) {
		if current-n < 0 {
			return 0, invalidField("quantity", fmt.Sprintf("only %d left in stock", current))
		}
		return current - n, nil
	})
}

func (m *StockMonitor) mutateQuantity(ctx context.Context, id string, next func(current int) (int, error)) (persistence.StockItem, error) {
	now := m.now()
	item, err := m.stock.UpdateStockItem(ctx, id, func(i *persistence.StockItem) error {
		quantity, qErr := next(i.Quantity)
		if qErr != nil {
			return qErr
		}
		i.Quantity = quantity
		i.UpdatedAt = now
		return nil
	})
	if err != nil {
		return persistence.StockItem{}, mapRepoError(err, ErrNotFound)
	}

	m.evaluate(ctx, item, CalendarDate(now, m.location))
	return item, nil
}

// Remove deletes a stock item and forgets its condition flags.
func (m *StockMonitor) Remove(ctx context.Context, id string) error {
	if m == nil {
		return fmt.Errorf("StockMonitor is nil")
	}
	logger := m.loggerWith(ctx, "Remove", "stock_id", id)
	if err := m.stock.DeleteStockItem(ctx, id); err != nil {
		err = mapRepoError(err, ErrNotFound)
		logger.ErrorContext(ctx, "failed to remove stock item", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	delete(m.conditions, id)
	logger.InfoContext(ctx, "stock item removed")
	return nil
}

// Get returns a single stock item.
func (m *StockMonitor) Get(ctx context.Context, id string) (persistence.StockItem, error) {
	item, err := m.stock.GetStockItem(ctx, id)
	if err != nil {
		return persistence.StockItem{}, mapRepoError(err, ErrNotFound)
	}
	return item, nil
}

// List returns every stock item ordered by name.
func (m *StockMonitor) List(ctx context.Context) ([]persistence.StockItem, error) {
	return m.stock.ListStockItems(ctx, nil)
}

// Sweep re-evaluates every item against today's date. Persisting conditions
// do not fire again.
func (m *StockMonitor) Sweep(ctx context.Context) int {
	logger := m.loggerWith(ctx, "Sweep")
	items, err := m.stock.ListStockItems(ctx, nil)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list stock items", "error", err, "error_kind", ErrorKind(err))
		return 0
	}

	today := CalendarDate(m.now(), m.location)
	fired := 0
	live := make(map[string]struct{}, len(items))
	for _, item := range items {
		live[item.ID] = struct{}{}
		fired += m.evaluate(ctx, item, today)
	}
	for id := range m.conditions {
		if _, ok := live[id]; !ok {
			delete(m.conditions, id)
		}
	}
	return fired
}

// Rebuild primes the condition flags from current state without emitting,
// so that restored conditions are not reported as new transitions.
func (m *StockMonitor) Rebuild(ctx context.Context) error {
	items, err := m.stock.ListStockItems(ctx, nil)
	if err != nil {
		return err
	}
	today := CalendarDate(m.now(), m.location)
	m.conditions = make(map[string]stockCondition, len(items))
	for _, item := range items {
		m.conditions[item.ID] = conditionOf(item, today)
	}
	return nil
}

func conditionOf(item persistence.StockItem, today time.Time) stockCondition {
	return stockCondition{
		low:        item.Quantity <= item.MinThreshold,
		quantity:   item.Quantity,
		expiring:   !item.ExpirationDate.IsZero() && !item.ExpirationDate.After(today),
		expiration: item.ExpirationDate,
	}
}

// evaluate compares the item against its last known condition and emits an
// alert for each condition entered. A quantity change while still low
// re-fires LowStock; a changed expiration date re-fires StockExpiring.
func (m *StockMonitor) evaluate(ctx context.Context, item persistence.StockItem, today time.Time) int {
	previous, known := m.conditions[item.ID]
	current := conditionOf(item, today)
	m.conditions[item.ID] = current

	fired := 0
	if current.low && (!known || !previous.low || previous.quantity != current.quantity) {
		fired++
		m.alerts.Emit(ctx, Alert{
			Code:     AlertLowStock,
			Severity: notify.SeverityWarning,
			Message:  fmt.Sprintf("Low stock: %s has %d left (minimum %d)", item.Name, item.Quantity, item.MinThreshold),
			Subject:  item.ID,
		})
	}
	if current.expiring && (!known || !previous.expiring || !previous.expiration.Equal(current.expiration)) {
		fired++
		m.alerts.Emit(ctx, Alert{
			Code:     AlertStockExpiring,
			Severity: notify.SeverityWarning,
			Message:  fmt.Sprintf("Stock expiring: %s expires on %s", item.Name, FormatDate(item.ExpirationDate)),
			Subject:  item.ID,
		})
	}
	return fired
}
