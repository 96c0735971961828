package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/example/gasguard/internal/persistence"
	"github.com/example/gasguard/internal/persistence/memory"
)

var referenceNow = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

type testClock struct{ current time.Time }

func newTestClock() *testClock { return &testClock{current: referenceNow} }

func (c *testClock) Now() time.Time { return c.current }

func (c *testClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func (c *testClock) AdvanceDays(days int) { c.current = c.current.AddDate(0, 0, days) }

func (c *testClock) Today() time.Time { return CalendarDate(c.current, time.UTC) }

func (c *testClock) DaysFromToday(n int) time.Time { return c.Today().AddDate(0, 0, n) }

func sequence(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

type alertLog struct{ alerts []Alert }

func (l *alertLog) Emit(ctx context.Context, alert Alert) { l.alerts = append(l.alerts, alert) }

func (l *alertLog) count(code AlertCode) int {
	n := 0
	for _, alert := range l.alerts {
		if alert.Code == code {
			n++
		}
	}
	return n
}

type documentLog struct {
	requests []DocumentRequest
	err      error
}

func (l *documentLog) RequestDocument(ctx context.Context, request DocumentRequest) error {
	l.requests = append(l.requests, request)
	return l.err
}

func mustRegister(t *testing.T, store *memory.Storage, id, serial string, status persistence.EquipmentStatus) persistence.Equipment {
	t.Helper()
	equipment := persistence.Equipment{
		ID:           id,
		Brand:        "MSA",
		Model:        "Altair 4XR",
		Serial:       serial,
		GasTypes:     []string{"CO"},
		Status:       status,
		ResumeStatus: status,
		Site:         "Toulouse",
		CreatedAt:    referenceNow,
		UpdatedAt:    referenceNow,
	}
	if err := store.CreateEquipment(context.Background(), equipment); err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	return equipment
}

func mustGetEquipment(t *testing.T, store *memory.Storage, id string) persistence.Equipment {
	t.Helper()
	equipment, err := store.GetEquipment(context.Background(), id)
	if err != nil {
		t.Fatalf("get equipment %s: %v", id, err)
	}
	return equipment
}
