package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/executor"
	"github.com/shaiso/hrflow/internal/registry"
	"github.com/shaiso/hrflow/internal/repo"
)

// --- Fakes ---

// fakeInstanceStore is an in-memory InstanceStore with CAS semantics.
type fakeInstanceStore struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*domain.Instance
	updates   int
}

func newFakeInstanceStore() *fakeInstanceStore {
	return &fakeInstanceStore{instances: make(map[uuid.UUID]*domain.Instance)}
}

func (s *fakeInstanceStore) Create(ctx context.Context, inst *domain.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *fakeInstanceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return inst.Clone(), nil
}

func (s *fakeInstanceStore) Update(ctx context.Context, inst *domain.Instance, prevIndex int, prevStatus domain.InstanceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.instances[inst.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if stored.CurrentStepIndex != prevIndex || stored.Status != prevStatus {
		return repo.ErrConflict
	}
	s.instances[inst.ID] = inst.Clone()
	s.updates++
	return nil
}

func (s *fakeInstanceStore) List(ctx context.Context, filter domain.InstanceFilter) ([]domain.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Instance
	for _, inst := range s.instances {
		out = append(out, *inst.Clone())
	}
	return out, nil
}

// fakeTemplateStore backs the registry in tests.
type fakeTemplateStore struct {
	templates map[uuid.UUID]*domain.Template
}

func (s *fakeTemplateStore) Create(ctx context.Context, tpl *domain.Template) error {
	s.templates[tpl.ID] = tpl.Clone()
	return nil
}

func (s *fakeTemplateStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	tpl, ok := s.templates[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return tpl.Clone(), nil
}

func (s *fakeTemplateStore) List(ctx context.Context, filter repo.TemplateFilter) ([]domain.Template, error) {
	return nil, nil
}

func (s *fakeTemplateStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tpl, ok := s.templates[id]
	if !ok {
		return repo.ErrNotFound
	}
	tpl.Active = active
	return nil
}

// recorder collects audit events.
type recorder struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (r *recorder) Record(ctx context.Context, event domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) kinds() []domain.AuditKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) has(kind domain.AuditKind) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// completedPublisher records instance.completed publications.
type completedPublisher struct {
	mu        sync.Mutex
	completed []uuid.UUID
}

func (p *completedPublisher) PublishInstanceCompleted(ctx context.Context, inst *domain.Instance) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, inst.ID)
	return nil
}

// --- Test harness ---

type env struct {
	eng     *Engine
	store   *fakeInstanceStore
	audit   *recorder
	events  *completedPublisher
	invoker *executor.FuncInvoker
	source  *executor.FuncSource
	tpl     *domain.Template

	mu  sync.Mutex
	now time.Time
}

func (e *env) setNow(t time.Time) {
	e.mu.Lock()
	e.now = t
	e.mu.Unlock()
}

func (e *env) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func newEnv(t *testing.T, steps []domain.Step) *env {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tplStore := &fakeTemplateStore{templates: make(map[uuid.UUID]*domain.Template)}
	templates := registry.New(tplStore)

	tpl := &domain.Template{Name: "Test process", Steps: steps}
	if err := templates.Register(context.Background(), tpl); err != nil {
		t.Fatalf("register template: %v", err)
	}

	invoker := executor.NewFuncInvoker()
	source := executor.NewFuncSource()

	executors := executor.NewRegistry()
	executors.Register(executor.NewApprovalExecutor())
	executors.Register(executor.NewNotificationExecutor(
		executor.NotifierFunc(func(ctx context.Context, n executor.Notification) error { return nil }),
		logger))
	executors.Register(executor.NewSystemActionExecutor(invoker))
	executors.Register(executor.NewConditionExecutor(source, 30*time.Second, logger))
	executors.Register(executor.NewDelayExecutor())

	e := &env{
		store:   newFakeInstanceStore(),
		audit:   &recorder{},
		events:  &completedPublisher{},
		invoker: invoker,
		source:  source,
		tpl:     tpl,
		now:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	e.eng = New(Config{
		Templates: templates,
		Store:     e.store,
		Executors: executors,
		Audit:     e.audit,
		Events:    e.events,
		Now:       e.clock,
		Logger:    logger,
	})

	return e
}

func (e *env) start(t *testing.T) *domain.Instance {
	t.Helper()
	inst, err := e.eng.Start(context.Background(), StartRequest{
		TemplateID:  e.tpl.ID,
		InitiatedBy: "hr_portal",
		Subject:     "J. Smith onboarding",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return inst
}

// --- Start ---

func TestEngine_Start_AutoAdvancesToCompletion(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "notify", Kind: domain.StepKindNotification},
		{ID: "create_accounts", Kind: domain.StepKindSystemAction, ActionRef: "it.create_accounts"},
	})
	e.invoker.RegisterAction("it.create_accounts", func(ctx context.Context, inst *domain.Instance) error {
		return nil
	})

	inst := e.start(t)

	if inst.Status != domain.InstanceStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", inst.Status)
	}
	if inst.CurrentStepIndex != 2 {
		t.Errorf("expected index 2, got %d", inst.CurrentStepIndex)
	}
	for i, s := range inst.Steps {
		if !s.Completed {
			t.Errorf("step %d should be completed", i)
		}
		if s.CompletedBy != "system" {
			t.Errorf("step %d: auto steps are completed by system, got %q", i, s.CompletedBy)
		}
	}
	if inst.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
	if !e.audit.has(domain.AuditInstanceCompleted) {
		t.Error("instance.completed audit event expected")
	}
	if len(e.events.completed) != 1 {
		t.Errorf("instance.completed should be published once, got %d", len(e.events.completed))
	}
}

func TestEngine_Start_StopsAtApproval(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "manager_approval", Kind: domain.StepKindApproval, RequiredRole: "manager"},
		{ID: "notify", Kind: domain.StepKindNotification},
	})

	inst := e.start(t)

	if inst.Status != domain.InstanceStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", inst.Status)
	}
	if inst.CurrentStepIndex != 0 {
		t.Errorf("expected index 0, got %d", inst.CurrentStepIndex)
	}
	if inst.WakeAt != nil {
		t.Error("approval wait must not schedule a wake")
	}
	if inst.Steps[0].StartedAt == nil {
		t.Error("step StartedAt should be set on first visit")
	}
}

func TestEngine_Start_UnknownTemplate(t *testing.T) {
	e := newEnv(t, []domain.Step{{ID: "n", Kind: domain.StepKindNotification}})

	_, err := e.eng.Start(context.Background(), StartRequest{TemplateID: uuid.New(), InitiatedBy: "x"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEngine_Start_SideEffectFailureKeepsInstanceActive(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "create_accounts", Kind: domain.StepKindSystemAction, ActionRef: "it.create_accounts"},
	})
	broken := true
	e.invoker.RegisterAction("it.create_accounts", func(ctx context.Context, inst *domain.Instance) error {
		if broken {
			return errors.New("ldap unavailable")
		}
		return nil
	})

	inst := e.start(t)

	if inst.Status != domain.InstanceStatusInProgress {
		t.Errorf("expected IN_PROGRESS after side effect failure, got %s", inst.Status)
	}
	if inst.Steps[0].Completed {
		t.Error("failed step must stay incomplete")
	}
	if !e.audit.has(domain.AuditStepFailed) {
		t.Error("step.failed audit event expected")
	}

	// Recheck is the retry mechanism: after the cause is fixed
	// the same instance completes.
	broken = false
	again, err := e.eng.Recheck(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if again.Status != domain.InstanceStatusCompleted {
		t.Errorf("expected COMPLETED after retry, got %s", again.Status)
	}
}

// --- Approve / Reject ---

func TestEngine_Approve_WrongRole(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "manager_approval", Kind: domain.StepKindApproval, RequiredRole: "manager"},
	})
	inst := e.start(t)

	_, err := e.eng.Approve(context.Background(), inst.ID, "intern", "")
	if !errors.Is(err, ErrWrongActor) {
		t.Fatalf("expected ErrWrongActor, got %v", err)
	}

	// No advancement on a failed approval
	stored, _ := e.store.GetByID(context.Background(), inst.ID)
	if stored.CurrentStepIndex != 0 {
		t.Errorf("step index should not move, got %d", stored.CurrentStepIndex)
	}
}

func TestEngine_Approve_AdvancesThroughAutoSteps(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "manager_approval", Kind: domain.StepKindApproval, RequiredRole: "manager"},
		{ID: "create_accounts", Kind: domain.StepKindSystemAction, ActionRef: "it.create_accounts"},
		{ID: "notify", Kind: domain.StepKindNotification},
	})
	e.invoker.RegisterAction("it.create_accounts", func(ctx context.Context, inst *domain.Instance) error {
		return nil
	})
	inst := e.start(t)

	approved, err := e.eng.Approve(context.Background(), inst.ID, "manager", "ok")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	if approved.Status != domain.InstanceStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", approved.Status)
	}
	if approved.CurrentStepIndex != 3 {
		t.Errorf("expected index 3, got %d", approved.CurrentStepIndex)
	}
	if approved.Steps[0].CompletedBy != "manager" {
		t.Errorf("approval step completed_by: got %q", approved.Steps[0].CompletedBy)
	}
	if approved.Steps[0].Comment != "ok" {
		t.Errorf("approval comment: got %q", approved.Steps[0].Comment)
	}
	if approved.Steps[1].CompletedBy != "system" {
		t.Errorf("auto step completed_by: got %q", approved.Steps[1].CompletedBy)
	}
}

func TestEngine_Approve_NotAwaitingApproval(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "wait", Kind: domain.StepKindDelay, WaitSec: 3600},
	})
	inst := e.start(t)

	_, err := e.eng.Approve(context.Background(), inst.ID, "manager", "")
	if !errors.Is(err, ErrNotAwaitingApproval) {
		t.Errorf("expected ErrNotAwaitingApproval, got %v", err)
	}
}

func TestEngine_Reject(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "manager_approval", Kind: domain.StepKindApproval, RequiredRole: "manager"},
		{ID: "notify", Kind: domain.StepKindNotification},
	})
	inst := e.start(t)

	rejected, err := e.eng.Reject(context.Background(), inst.ID, "manager", "headcount freeze")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}

	if rejected.Status != domain.InstanceStatusRejected {
		t.Errorf("expected REJECTED, got %s", rejected.Status)
	}
	// Rejection does not complete the approval step
	if rejected.Steps[0].Completed {
		t.Error("rejected approval step must stay incomplete")
	}
	if rejected.CurrentStepIndex != 0 {
		t.Errorf("step index should not move, got %d", rejected.CurrentStepIndex)
	}
	if rejected.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
	if !e.audit.has(domain.AuditInstanceRejected) {
		t.Error("instance.rejected audit event expected")
	}
}

func TestEngine_Reject_Terminal(t *testing.T) {
	e := newEnv(t, []domain.Step{{ID: "n", Kind: domain.StepKindNotification}})
	inst := e.start(t) // completes immediately

	_, err := e.eng.Reject(context.Background(), inst.ID, "manager", "")
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal, got %v", err)
	}
}

// --- Cancel ---

func TestEngine_Cancel(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "manager_approval", Kind: domain.StepKindApproval, RequiredRole: "manager"},
	})
	inst := e.start(t)

	cancelled, err := e.eng.Cancel(context.Background(), inst.ID, "hr_admin", "duplicate request")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.InstanceStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}

	// Terminal statuses are final
	if _, err := e.eng.Cancel(context.Background(), inst.ID, "hr_admin", "again"); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal, got %v", err)
	}
}

// --- Delay ---

func TestEngine_DelayStep_FakeClock(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "cooling_off", Kind: domain.StepKindDelay, WaitSec: 48 * 3600},
		{ID: "notify", Kind: domain.StepKindNotification},
	})

	t0 := e.clock()
	inst := e.start(t)

	if inst.Status != domain.InstanceStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", inst.Status)
	}
	if inst.WakeAt == nil || !inst.WakeAt.Equal(t0.Add(48*time.Hour)) {
		t.Fatalf("expected wake at t0+48h, got %v", inst.WakeAt)
	}

	// One hour later the delay has not elapsed
	e.setNow(t0.Add(time.Hour))
	after1h, err := e.eng.Recheck(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if after1h.Status != domain.InstanceStatusInProgress || after1h.CurrentStepIndex != 0 {
		t.Errorf("delay must still be waiting: status=%s index=%d", after1h.Status, after1h.CurrentStepIndex)
	}

	// The deadline is anchored to the step start, not the recheck time
	if after1h.WakeAt == nil || !after1h.WakeAt.Equal(t0.Add(48*time.Hour)) {
		t.Errorf("wake should stay at t0+48h, got %v", after1h.WakeAt)
	}

	// 49 hours later the delay has elapsed and the instance completes
	e.setNow(t0.Add(49 * time.Hour))
	after49h, err := e.eng.Recheck(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if after49h.Status != domain.InstanceStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", after49h.Status)
	}
}

// --- Condition ---

func TestEngine_ConditionStep_PollsUntilTrue(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "docs", Kind: domain.StepKindCondition, ConditionRef: "docs.signed"},
	})
	signed := false
	e.source.RegisterCondition("docs.signed", func(ctx context.Context, inst *domain.Instance) (bool, error) {
		return signed, nil
	})

	inst := e.start(t)

	if inst.Status != domain.InstanceStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", inst.Status)
	}
	if inst.WakeAt == nil || !inst.WakeAt.Equal(e.clock().Add(30*time.Second)) {
		t.Errorf("expected recheck in 30s, got %v", inst.WakeAt)
	}

	signed = true
	done, err := e.eng.Recheck(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if done.Status != domain.InstanceStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", done.Status)
	}
}

// --- Recheck ---

func TestEngine_Recheck_IdempotentOnWaitingApproval(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "manager_approval", Kind: domain.StepKindApproval, RequiredRole: "manager"},
	})
	inst := e.start(t)

	updatesBefore := e.store.updates
	again, err := e.eng.Recheck(context.Background(), inst.ID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}

	if again.Status != inst.Status || again.CurrentStepIndex != inst.CurrentStepIndex {
		t.Error("recheck must not change a waiting approval")
	}
	if e.store.updates != updatesBefore {
		t.Errorf("no-progress recheck should not write to the store, got %d extra updates",
			e.store.updates-updatesBefore)
	}
}

func TestEngine_Recheck_Terminal(t *testing.T) {
	e := newEnv(t, []domain.Step{{ID: "n", Kind: domain.StepKindNotification}})
	inst := e.start(t)

	_, err := e.eng.Recheck(context.Background(), inst.ID)
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestEngine_Recheck_SurfacesSideEffectFailure(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "create_accounts", Kind: domain.StepKindSystemAction, ActionRef: "it.create_accounts"},
	})
	e.invoker.RegisterAction("it.create_accounts", func(ctx context.Context, inst *domain.Instance) error {
		return errors.New("ldap unavailable")
	})
	inst := e.start(t)

	_, err := e.eng.Recheck(context.Background(), inst.ID)
	if !errors.Is(err, ErrSideEffect) {
		t.Errorf("expected ErrSideEffect, got %v", err)
	}
}

// --- Concurrency ---

func TestEngine_ConcurrentApprove_OnlyOneWins(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "manager_approval", Kind: domain.StepKindApproval, RequiredRole: "manager"},
	})
	inst := e.start(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.eng.Approve(context.Background(), inst.ID, "manager", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var okCount int
	for err := range errs {
		if err == nil {
			okCount++
			continue
		}
		// Losers see the already-advanced instance
		if !errors.Is(err, ErrNotAwaitingApproval) && !errors.Is(err, ErrAlreadyTerminal) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if okCount != 1 {
		t.Errorf("exactly one approve should win, got %d", okCount)
	}

	stored, _ := e.store.GetByID(context.Background(), inst.ID)
	if stored.Status != domain.InstanceStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", stored.Status)
	}
	if stored.CurrentStepIndex != 1 {
		t.Errorf("expected index 1, got %d", stored.CurrentStepIndex)
	}
}

// --- Audit trail ---

func TestEngine_AuditTrailOrder(t *testing.T) {
	e := newEnv(t, []domain.Step{
		{ID: "notify", Kind: domain.StepKindNotification},
	})
	e.start(t)

	kinds := e.audit.kinds()
	want := []domain.AuditKind{
		domain.AuditInstanceStarted,
		domain.AuditStepStarted,
		domain.AuditStepCompleted,
		domain.AuditInstanceCompleted,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}
