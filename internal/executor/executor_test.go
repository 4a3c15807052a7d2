package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRequest(step domain.Step, now time.Time) *Request {
	inst := &domain.Instance{
		ID:           uuid.New(),
		TemplateName: "Onboarding",
		Subject:      "J. Smith",
		Steps:        domain.SnapshotSteps([]domain.Step{step}),
	}
	return &Request{
		Instance: inst,
		Step:     &inst.Steps[0],
		Now:      now,
	}
}

// --- Approval ---

func TestApprovalExecutor_NeverCompletes(t *testing.T) {
	e := NewApprovalExecutor()
	req := testRequest(domain.Step{ID: "a", Kind: domain.StepKindApproval, RequiredRole: "manager"}, time.Now())

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Error("approval step must not complete automatically")
	}
	if res.WakeAt != nil {
		t.Error("approval step must not schedule a recheck")
	}
}

// --- Notification ---

func TestNotificationExecutor_SendsAndCompletes(t *testing.T) {
	var sent []Notification
	notify := NotifierFunc(func(ctx context.Context, n Notification) error {
		sent = append(sent, n)
		return nil
	})

	e := NewNotificationExecutor(notify, discardLogger())
	req := testRequest(domain.Step{ID: "n", Name: "Welcome mail", Kind: domain.StepKindNotification}, time.Now())

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Done {
		t.Error("notification step should complete")
	}
	if len(sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(sent))
	}
	if sent[0].StepName != "Welcome mail" || sent[0].TemplateName != "Onboarding" {
		t.Errorf("unexpected notification: %+v", sent[0])
	}
}

func TestNotificationExecutor_DeliveryFailureStillCompletes(t *testing.T) {
	notify := NotifierFunc(func(ctx context.Context, n Notification) error {
		return errors.New("smtp down")
	})

	e := NewNotificationExecutor(notify, discardLogger())
	req := testRequest(domain.Step{ID: "n", Kind: domain.StepKindNotification}, time.Now())

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("delivery failure must not fail the step: %v", err)
	}
	if !res.Done {
		t.Error("notification step should complete despite delivery failure")
	}
}

// --- System action ---

func TestSystemActionExecutor_Success(t *testing.T) {
	invoker := NewFuncInvoker()
	called := false
	invoker.RegisterAction("it.create_accounts", func(ctx context.Context, inst *domain.Instance) error {
		called = true
		return nil
	})

	e := NewSystemActionExecutor(invoker)
	req := testRequest(domain.Step{ID: "s", Kind: domain.StepKindSystemAction, ActionRef: "it.create_accounts"}, time.Now())

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Done {
		t.Error("step should complete on success")
	}
	if !called {
		t.Error("action should have been invoked")
	}
}

func TestSystemActionExecutor_FailurePropagates(t *testing.T) {
	invoker := NewFuncInvoker()
	invoker.RegisterAction("it.create_accounts", func(ctx context.Context, inst *domain.Instance) error {
		return errors.New("ldap unavailable")
	})

	e := NewSystemActionExecutor(invoker)
	req := testRequest(domain.Step{ID: "s", Kind: domain.StepKindSystemAction, ActionRef: "it.create_accounts"}, time.Now())

	if _, err := e.Execute(context.Background(), req); err == nil {
		t.Error("action failure should propagate")
	}
}

func TestSystemActionExecutor_UnknownRef(t *testing.T) {
	e := NewSystemActionExecutor(NewFuncInvoker())
	req := testRequest(domain.Step{ID: "s", Kind: domain.StepKindSystemAction, ActionRef: "no.such"}, time.Now())

	_, err := e.Execute(context.Background(), req)
	if !errors.Is(err, ErrActionNotFound) {
		t.Errorf("expected ErrActionNotFound, got %v", err)
	}
}

// --- Condition ---

func TestConditionExecutor_TrueCompletes(t *testing.T) {
	source := NewFuncSource()
	source.RegisterCondition("docs.signed", func(ctx context.Context, inst *domain.Instance) (bool, error) {
		return true, nil
	})

	e := NewConditionExecutor(source, time.Minute, discardLogger())
	req := testRequest(domain.Step{ID: "c", Kind: domain.StepKindCondition, ConditionRef: "docs.signed"}, time.Now())

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Done {
		t.Error("true predicate should complete the step")
	}
}

func TestConditionExecutor_FalseSchedulesRecheck(t *testing.T) {
	source := NewFuncSource()
	source.RegisterCondition("docs.signed", func(ctx context.Context, inst *domain.Instance) (bool, error) {
		return false, nil
	})

	now := time.Now()
	e := NewConditionExecutor(source, time.Minute, discardLogger())
	req := testRequest(domain.Step{ID: "c", Kind: domain.StepKindCondition, ConditionRef: "docs.signed"}, now)

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Error("false predicate must not complete the step")
	}
	if res.WakeAt == nil || !res.WakeAt.Equal(now.Add(time.Minute)) {
		t.Errorf("expected recheck at now+1m, got %v", res.WakeAt)
	}
}

func TestConditionExecutor_EvaluationErrorTreatedAsFalse(t *testing.T) {
	source := NewFuncSource()
	source.RegisterCondition("docs.signed", func(ctx context.Context, inst *domain.Instance) (bool, error) {
		return false, errors.New("source timeout")
	})

	now := time.Now()
	e := NewConditionExecutor(source, time.Minute, discardLogger())
	req := testRequest(domain.Step{ID: "c", Kind: domain.StepKindCondition, ConditionRef: "docs.signed"}, now)

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("evaluation error must not fail the step: %v", err)
	}
	if res.Done {
		t.Error("step must stay incomplete on evaluation error")
	}
	if res.WakeAt == nil {
		t.Error("recheck should be scheduled on evaluation error")
	}
}

func TestConditionExecutor_DefaultInterval(t *testing.T) {
	e := NewConditionExecutor(NewFuncSource(), 0, discardLogger())
	if e.recheckInterval != DefaultRecheckInterval {
		t.Errorf("expected default interval, got %v", e.recheckInterval)
	}
}

// --- Delay ---

func TestDelayExecutor_FirstVisitSchedulesWake(t *testing.T) {
	now := time.Now()
	e := NewDelayExecutor()
	req := testRequest(domain.Step{ID: "d", Kind: domain.StepKindDelay, WaitSec: 3600}, now)

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Error("delay must not complete on first visit")
	}
	if res.WakeAt == nil || !res.WakeAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expected wake at now+1h, got %v", res.WakeAt)
	}
}

func TestDelayExecutor_NotElapsed(t *testing.T) {
	started := time.Now()
	now := started.Add(30 * time.Minute)

	e := NewDelayExecutor()
	req := testRequest(domain.Step{ID: "d", Kind: domain.StepKindDelay, WaitSec: 3600}, now)
	req.Step.StartedAt = &started

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Done {
		t.Error("delay must not complete before the deadline")
	}
	if res.WakeAt == nil || !res.WakeAt.Equal(started.Add(time.Hour)) {
		t.Errorf("expected wake at started+1h, got %v", res.WakeAt)
	}
}

func TestDelayExecutor_Elapsed(t *testing.T) {
	started := time.Now()
	now := started.Add(2 * time.Hour)

	e := NewDelayExecutor()
	req := testRequest(domain.Step{ID: "d", Kind: domain.StepKindDelay, WaitSec: 3600}, now)
	req.Step.StartedAt = &started

	res, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Done {
		t.Error("delay should complete after the deadline")
	}
}

// --- Registry ---

func TestRegistry_GetAndHas(t *testing.T) {
	r := NewRegistry()
	r.Register(NewApprovalExecutor())

	if !r.Has(domain.StepKindApproval) {
		t.Error("approval executor should be registered")
	}

	e, err := r.Get(domain.StepKindApproval)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Kind() != domain.StepKindApproval {
		t.Errorf("unexpected kind: %s", e.Kind())
	}

	if _, err := r.Get(domain.StepKindDelay); !errors.Is(err, ErrExecutorNotFound) {
		t.Errorf("expected ErrExecutorNotFound, got %v", err)
	}
}

// --- Func invoker/source ---

func TestFuncSource_UnknownRef(t *testing.T) {
	s := NewFuncSource()
	_, err := s.Evaluate(context.Background(), "no.such", &domain.Instance{})
	if !errors.Is(err, ErrConditionNotFound) {
		t.Errorf("expected ErrConditionNotFound, got %v", err)
	}
}
