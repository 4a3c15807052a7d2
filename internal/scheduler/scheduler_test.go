package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/engine"
	"github.com/shaiso/hrflow/internal/repo"
)

// --- Fakes ---

type fakeEngine struct {
	started   []engine.StartRequest
	startErr  error
	rechecked []uuid.UUID
	reErr     error
}

func (e *fakeEngine) Start(ctx context.Context, req engine.StartRequest) (*domain.Instance, error) {
	if e.startErr != nil {
		return nil, e.startErr
	}
	e.started = append(e.started, req)
	return &domain.Instance{ID: uuid.New(), IdempotencyKey: req.IdempotencyKey}, nil
}

func (e *fakeEngine) Recheck(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	if e.reErr != nil {
		return nil, e.reErr
	}
	e.rechecked = append(e.rechecked, id)
	return &domain.Instance{ID: id}, nil
}

type fakeScheduleStore struct {
	due     []domain.Schedule
	updated []domain.Schedule
}

func (s *fakeScheduleStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	return s.due, nil
}

func (s *fakeScheduleStore) Update(ctx context.Context, schedule *domain.Schedule) error {
	s.updated = append(s.updated, *schedule)
	return nil
}

type fakeWakeStore struct {
	due      []domain.Instance
	existing map[string]*domain.Instance
}

func (s *fakeWakeStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Instance, error) {
	return s.due, nil
}

func (s *fakeWakeStore) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Instance, error) {
	if inst, ok := s.existing[key]; ok {
		return inst, nil
	}
	return nil, repo.ErrNotFound
}

func newTestScheduler(eng *fakeEngine, schedules *fakeScheduleStore, instances *fakeWakeStore) *Scheduler {
	return New(Config{
		Schedules: schedules,
		Instances: instances,
		Engine:    eng,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func dueSchedule() domain.Schedule {
	due := time.Now().Add(-time.Minute).Truncate(time.Second)
	return domain.Schedule{
		ID:          uuid.New(),
		TemplateID:  uuid.New(),
		Name:        "quarterly access review",
		IntervalSec: 3600,
		Timezone:    "UTC",
		Enabled:     true,
		InitiatedBy: "scheduler",
		Subject:     "Q1 access review",
		NextDueAt:   &due,
	}
}

// --- Tests ---

func TestScheduler_Tick_StartsDueSchedule(t *testing.T) {
	sched := dueSchedule()
	eng := &fakeEngine{}
	schedules := &fakeScheduleStore{due: []domain.Schedule{sched}}
	instances := &fakeWakeStore{existing: map[string]*domain.Instance{}}

	s := newTestScheduler(eng, schedules, instances)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(eng.started) != 1 {
		t.Fatalf("expected 1 started instance, got %d", len(eng.started))
	}

	req := eng.started[0]
	wantKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())
	if req.IdempotencyKey != wantKey {
		t.Errorf("idempotency key: expected %s, got %s", wantKey, req.IdempotencyKey)
	}
	if req.TemplateID != sched.TemplateID {
		t.Errorf("unexpected template id: %s", req.TemplateID)
	}
	if req.InitiatedBy != "scheduler" {
		t.Errorf("unexpected initiator: %s", req.InitiatedBy)
	}

	// Schedule advanced past the run
	if len(schedules.updated) != 1 {
		t.Fatalf("expected schedule update, got %d", len(schedules.updated))
	}
	updated := schedules.updated[0]
	if updated.NextDueAt == nil || !updated.NextDueAt.After(*sched.NextDueAt) {
		t.Errorf("next_due_at should advance, got %v", updated.NextDueAt)
	}
	if updated.LastInstanceID == nil {
		t.Error("last_instance_id should be recorded")
	}
}

func TestScheduler_Tick_DuplicateRunSkipped(t *testing.T) {
	sched := dueSchedule()
	key := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())
	existing := &domain.Instance{ID: uuid.New(), IdempotencyKey: key}

	eng := &fakeEngine{}
	schedules := &fakeScheduleStore{due: []domain.Schedule{sched}}
	instances := &fakeWakeStore{existing: map[string]*domain.Instance{key: existing}}

	s := newTestScheduler(eng, schedules, instances)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(eng.started) != 0 {
		t.Errorf("duplicate run should not start an instance, got %d", len(eng.started))
	}

	// Schedule still advances, pointing at the existing instance
	if len(schedules.updated) != 1 {
		t.Fatalf("expected schedule update, got %d", len(schedules.updated))
	}
	if schedules.updated[0].LastInstanceID == nil || *schedules.updated[0].LastInstanceID != existing.ID {
		t.Error("last_instance_id should point at the existing instance")
	}
}

func TestScheduler_Tick_MissingTemplateSkipsSchedule(t *testing.T) {
	sched := dueSchedule()
	eng := &fakeEngine{startErr: repo.ErrNotFound}
	schedules := &fakeScheduleStore{due: []domain.Schedule{sched}}
	instances := &fakeWakeStore{existing: map[string]*domain.Instance{}}

	s := newTestScheduler(eng, schedules, instances)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick should not fail on a missing template: %v", err)
	}

	// next_due_at stays so the problem is visible, schedule is not advanced
	if len(schedules.updated) != 0 {
		t.Errorf("schedule should not be updated, got %d updates", len(schedules.updated))
	}
}

func TestScheduler_Tick_WakesDueInstances(t *testing.T) {
	a := domain.Instance{ID: uuid.New()}
	b := domain.Instance{ID: uuid.New()}

	eng := &fakeEngine{}
	schedules := &fakeScheduleStore{}
	instances := &fakeWakeStore{due: []domain.Instance{a, b}}

	s := newTestScheduler(eng, schedules, instances)
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(eng.rechecked) != 2 {
		t.Fatalf("expected 2 rechecks, got %d", len(eng.rechecked))
	}
}

func TestScheduler_Tick_TerminalInstanceIgnored(t *testing.T) {
	inst := domain.Instance{ID: uuid.New()}

	eng := &fakeEngine{reErr: engine.ErrAlreadyTerminal}
	schedules := &fakeScheduleStore{}
	instances := &fakeWakeStore{due: []domain.Instance{inst}}

	s := newTestScheduler(eng, schedules, instances)
	if err := s.Tick(context.Background()); err != nil {
		t.Errorf("terminal race should not fail the tick: %v", err)
	}
}
