package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testInstance() *Instance {
	return &Instance{
		ID:           uuid.New(),
		TemplateID:   uuid.New(),
		TemplateName: "Onboarding",
		InitiatedBy:  "hr_portal",
		Status:       InstanceStatusPending,
		Steps: SnapshotSteps([]Step{
			{ID: "manager_approval", Kind: StepKindApproval, RequiredRole: "manager"},
			{ID: "create_accounts", Kind: StepKindSystemAction, ActionRef: "it.create_accounts"},
			{ID: "notify_team", Kind: StepKindNotification},
		}),
	}
}

func TestSnapshotSteps(t *testing.T) {
	steps := []Step{
		{ID: "s1", Kind: StepKindNotification},
		{ID: "s2", Kind: StepKindDelay, WaitSec: 30},
	}

	snapshot := SnapshotSteps(steps)

	if len(snapshot) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(snapshot))
	}
	for i, s := range snapshot {
		if s.ID != steps[i].ID {
			t.Errorf("step %d: expected id %s, got %s", i, steps[i].ID, s.ID)
		}
		if s.Completed {
			t.Errorf("step %d should start incomplete", i)
		}
	}
}

func TestInstance_CurrentStep(t *testing.T) {
	inst := testInstance()

	step := inst.CurrentStep()
	if step == nil || step.ID != "manager_approval" {
		t.Fatalf("expected first step, got %v", step)
	}

	inst.CurrentStepIndex = len(inst.Steps)
	if inst.CurrentStep() != nil {
		t.Error("expected nil past the last step")
	}
}

func TestInstance_MarkInProgress_OnlyFromPending(t *testing.T) {
	now := time.Now()

	inst := testInstance()
	inst.MarkInProgress(now)
	if inst.Status != InstanceStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", inst.Status)
	}

	// No effect on terminal statuses
	inst.Status = InstanceStatusRejected
	inst.MarkInProgress(now)
	if inst.Status != InstanceStatusRejected {
		t.Errorf("expected REJECTED to stay, got %s", inst.Status)
	}
}

func TestInstance_MarkCompleted(t *testing.T) {
	now := time.Now()
	wake := now.Add(time.Hour)

	inst := testInstance()
	inst.Status = InstanceStatusInProgress
	inst.WakeAt = &wake

	inst.MarkCompleted(now)

	if inst.Status != InstanceStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", inst.Status)
	}
	if inst.FinishedAt == nil || !inst.FinishedAt.Equal(now) {
		t.Error("FinishedAt should be set")
	}
	if inst.WakeAt != nil {
		t.Error("WakeAt should be cleared on completion")
	}
}

func TestInstance_MarkRejected_KeepsStepIncomplete(t *testing.T) {
	now := time.Now()

	inst := testInstance()
	inst.Status = InstanceStatusInProgress

	inst.MarkRejected(now)

	if inst.Status != InstanceStatusRejected {
		t.Errorf("expected REJECTED, got %s", inst.Status)
	}
	// Rejection is not a completion of the approval step
	if inst.Steps[0].Completed {
		t.Error("current step should remain incomplete after rejection")
	}
	if inst.CurrentStepIndex != 0 {
		t.Errorf("step index should not advance, got %d", inst.CurrentStepIndex)
	}
}

func TestInstance_CompleteCurrentStep(t *testing.T) {
	now := time.Now()

	inst := testInstance()
	inst.CompleteCurrentStep(now, "manager", "looks good")

	if !inst.Steps[0].Completed {
		t.Error("step should be completed")
	}
	if inst.Steps[0].CompletedBy != "manager" {
		t.Errorf("expected completed_by=manager, got %s", inst.Steps[0].CompletedBy)
	}
	if inst.Steps[0].Comment != "looks good" {
		t.Errorf("unexpected comment: %s", inst.Steps[0].Comment)
	}
	if inst.CurrentStepIndex != 1 {
		t.Errorf("expected index 1, got %d", inst.CurrentStepIndex)
	}
}

func TestInstance_CompleteCurrentStep_PastEnd(t *testing.T) {
	inst := testInstance()
	inst.CurrentStepIndex = len(inst.Steps)

	// Must be a no-op, not a panic
	inst.CompleteCurrentStep(time.Now(), "system", "")

	if inst.CurrentStepIndex != len(inst.Steps) {
		t.Errorf("index should not move past the end, got %d", inst.CurrentStepIndex)
	}
}

func TestInstance_Clone_Independent(t *testing.T) {
	inst := testInstance()
	inst.Payload = map[string]any{"employee": "J. Smith"}

	clone := inst.Clone()
	clone.Steps[0].Completed = true
	clone.Payload["employee"] = "other"

	if inst.Steps[0].Completed {
		t.Error("clone should not share the steps slice")
	}
	if inst.Payload["employee"] != "J. Smith" {
		t.Error("clone should not share the payload map")
	}
}
