package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestClockNowFunc(t *testing.T) {
	clock := NewClock(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC))
	nowFn := clock.NowFunc()

	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected %v from NowFunc, got %v", clock.Now(), got)
	}

	clock.Advance(time.Minute)
	if got := nowFn(); !got.Equal(clock.Now()) {
		t.Fatalf("expected updated time %v, got %v", clock.Now(), got)
	}
}

func TestClockAdvanceDaysAndToday(t *testing.T) {
	clock := NewClock(time.Time{})

	if got := clock.Today(); !got.Equal(time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected today %v", got)
	}

	updated := clock.AdvanceDays(-1)
	if !updated.Equal(ReferenceTime().AddDate(0, 0, -1)) {
		t.Fatalf("advance days returned %v", updated)
	}
	if got := clock.Today(); got.Day() != 1 {
		t.Fatalf("expected January 1st, got %v", got)
	}
}

func TestClockDaysFromToday(t *testing.T) {
	clock := NewClock(time.Date(2024, time.February, 28, 17, 45, 0, 0, time.UTC))

	if got := clock.DaysFromToday(2); !got.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}
	if got := clock.DaysFromToday(0); !got.Equal(clock.Today()) {
		t.Fatalf("expected today, got %v", got)
	}
}
