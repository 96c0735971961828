package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/gasguard/internal/persistence/memory"
)

func newStockHarness() (*StockMonitor, *alertLog, *testClock) {
	clock := newTestClock()
	alerts := &alertLog{}
	return NewStockMonitor(memory.New(), alerts, time.UTC, sequence("st"), clock.Now), alerts, clock
}

func TestStockMonitor_AddItemRaisesLowStockImmediately(t *testing.T) {
	monitor, alerts, clock := newStockHarness()

	item, err := monitor.AddItem(context.Background(), AddStockInput{
		Name:           "Filter",
		Quantity:       2,
		MinThreshold:   5,
		ExpirationDate: clock.DaysFromToday(30),
	})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if got := alerts.count(AlertLowStock); got != 1 {
		t.Fatalf("expected one LowStock alert, got %d", got)
	}
	if alerts.alerts[0].Subject != item.ID {
		t.Fatalf("expected alert subject %s, got %s", item.ID, alerts.alerts[0].Subject)
	}

	if fired := monitor.Sweep(context.Background()); fired != 0 {
		t.Fatalf("expected no duplicate on sweep, got %d", fired)
	}
}

func TestStockMonitor_LowStockEdgeTriggering(t *testing.T) {
	ctx := context.Background()
	monitor, alerts, clock := newStockHarness()

	item, err := monitor.AddItem(ctx, AddStockInput{Name: "Capteur gaz CO2", Quantity: 5, MinThreshold: 3, ExpirationDate: clock.DaysFromToday(100)})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if len(alerts.alerts) != 0 {
		t.Fatalf("expected no alert for healthy stock, got %+v", alerts.alerts)
	}

	steps := []struct {
		quantity int
		want     int
	}{
		{quantity: 3, want: 1}, // enters low
		{quantity: 3, want: 1}, // unchanged
		{quantity: 2, want: 2}, // changed while low
		{quantity: 8, want: 2}, // recovered
		{quantity: 1, want: 3}, // enters low again
	}
	for _, step := range steps {
		if _, err := monitor.SetQuantity(ctx, item.ID, step.quantity); err != nil {
			t.Fatalf("SetQuantity(%d) returned error: %v", step.quantity, err)
		}
		monitor.Sweep(ctx)
		monitor.Sweep(ctx)
		if got := alerts.count(AlertLowStock); got != step.want {
			t.Fatalf("after quantity %d expected %d LowStock alerts, got %d", step.quantity, step.want, got)
		}
	}
}

func TestStockMonitor_ExpiryDetectedBySweep(t *testing.T) {
	ctx := context.Background()
	monitor, alerts, clock := newStockHarness()

	if _, err := monitor.AddItem(ctx, AddStockInput{Name: "Filtre H2S", Quantity: 10, MinThreshold: 1, ExpirationDate: clock.DaysFromToday(1)}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if got := monitor.Sweep(ctx); got != 0 {
		t.Fatalf("expected nothing before expiry, got %d", got)
	}

	clock.AdvanceDays(1)
	if got := monitor.Sweep(ctx); got != 1 {
		t.Fatalf("expected StockExpiring on expiration day, got %d", got)
	}
	clock.AdvanceDays(1)
	if got := monitor.Sweep(ctx); got != 0 {
		t.Fatalf("expected no repeat while expired, got %d", got)
	}
	if got := alerts.count(AlertStockExpiring); got != 1 {
		t.Fatalf("expected one StockExpiring alert, got %d", got)
	}
}

func TestStockMonitor_AlreadyExpiredItemFiresBoth(t *testing.T) {
	monitor, alerts, clock := newStockHarness()

	if _, err := monitor.AddItem(context.Background(), AddStockInput{Name: "Old", Quantity: 0, MinThreshold: 0, ExpirationDate: clock.DaysFromToday(-3)}); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if alerts.count(AlertLowStock) != 1 || alerts.count(AlertStockExpiring) != 1 {
		t.Fatalf("expected LowStock and StockExpiring, got %+v", alerts.alerts)
	}
}

func TestStockMonitor_Validation(t *testing.T) {
	ctx := context.Background()
	monitor, alerts, _ := newStockHarness()

	_, err := monitor.AddItem(ctx, AddStockInput{Name: " ", Quantity: -1, MinThreshold: -2})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "quantity", "min_threshold"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
		}
	}

	item, err := monitor.AddItem(ctx, AddStockInput{Name: "Pompe", Quantity: 4, MinThreshold: 1})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if _, err := monitor.SetQuantity(ctx, item.ID, -1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := monitor.SetQuantity(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(alerts.alerts) != 0 {
		t.Fatalf("expected failed commands to emit nothing, got %+v", alerts.alerts)
	}
}

func TestStockMonitor_Consume(t *testing.T) {
	ctx := context.Background()
	monitor, alerts, _ := newStockHarness()

	item, err := monitor.AddItem(ctx, AddStockInput{Name: "Cartouche", Quantity: 4, MinThreshold: 2})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	if _, err := monitor.Consume(ctx, item.ID, 5); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected over-consumption to fail, got %v", err)
	}
	unchanged, _ := monitor.Get(ctx, item.ID)
	if unchanged.Quantity != 4 {
		t.Fatalf("expected quantity unchanged, got %d", unchanged.Quantity)
	}

	consumed, err := monitor.Consume(ctx, item.ID, 2)
	if err != nil {
		t.Fatalf("Consume returned error: %v", err)
	}
	if consumed.Quantity != 2 || alerts.count(AlertLowStock) != 1 {
		t.Fatalf("expected quantity 2 and one LowStock, got %d and %d", consumed.Quantity, alerts.count(AlertLowStock))
	}
	if _, err := monitor.Consume(ctx, item.ID, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected zero consumption to fail, got %v", err)
	}
}

func TestStockMonitor_RemoveAndRebuild(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clock := newTestClock()
	alerts := &alertLog{}
	monitor := NewStockMonitor(store, alerts, time.UTC, sequence("st"), clock.Now)

	item, err := monitor.AddItem(ctx, AddStockInput{Name: "Filter", Quantity: 1, MinThreshold: 5})
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}

	restarted := NewStockMonitor(store, alerts, time.UTC, sequence("st"), clock.Now)
	if err := restarted.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if fired := restarted.Sweep(ctx); fired != 0 {
		t.Fatalf("expected rebuilt flags to suppress repeats, got %d", fired)
	}

	if err := restarted.Remove(ctx, item.ID); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if err := restarted.Remove(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	list, _ := restarted.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty stock, got %+v", list)
	}
}
