package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/hrflow/internal/domain"
)

func TestCalculateNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{IntervalSec: 3600, Timezone: "UTC"}
	from := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(from.Add(time.Hour)) {
		t.Errorf("expected from+1h, got %v", next)
	}
}

func TestCalculateNextDue_Cron(t *testing.T) {
	// Every Monday at 09:00
	sched := &domain.Schedule{CronExpr: "0 9 * * 1", Timezone: "UTC"}
	// Monday 2026-03-02 10:00 — next run is the following Monday
	from := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_CronTakesPrecedenceOverInterval(t *testing.T) {
	sched := &domain.Schedule{CronExpr: "0 9 * * *", IntervalSec: 60, Timezone: "UTC"}
	from := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Next 09:00, not from+60s
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	sched := &domain.Schedule{IntervalSec: 60, Timezone: "Mars/Olympus_Mons"}
	from := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(from.Add(time.Minute)) {
		t.Errorf("expected from+60s, got %v", next)
	}
}

func TestCalculateNextDue_NeitherCronNorInterval(t *testing.T) {
	sched := &domain.Schedule{Timezone: "UTC"}

	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Error("expected error for schedule without cron or interval")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 9 1 * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("invalid expression accepted")
	}
}

func TestSchedule_IsDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	sched := &domain.Schedule{Enabled: true, NextDueAt: &past}
	if !sched.IsDue(now) {
		t.Error("past next_due_at should be due")
	}

	sched.NextDueAt = &future
	if sched.IsDue(now) {
		t.Error("future next_due_at should not be due")
	}

	sched.NextDueAt = &past
	sched.Enabled = false
	if sched.IsDue(now) {
		t.Error("disabled schedule should never be due")
	}

	sched.Enabled = true
	sched.NextDueAt = nil
	if sched.IsDue(now) {
		t.Error("schedule without next_due_at should not be due")
	}
}
