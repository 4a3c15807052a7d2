package domain

import (
	"errors"
	"testing"
)

func validTemplate() *Template {
	return &Template{
		Name:     "Annual leave",
		Category: "leave",
		Priority: PriorityMedium,
		Steps: []Step{
			{ID: "manager_approval", Kind: StepKindApproval, RequiredRole: "manager"},
			{ID: "notify_hr", Kind: StepKindNotification},
		},
	}
}

func TestTemplate_Validate_OK(t *testing.T) {
	tpl := validTemplate()
	if err := tpl.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTemplate_Validate_EmptyName(t *testing.T) {
	tpl := validTemplate()
	tpl.Name = ""

	if err := tpl.Validate(); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate, got %v", err)
	}
}

func TestTemplate_Validate_NoSteps(t *testing.T) {
	tpl := validTemplate()
	tpl.Steps = nil

	if err := tpl.Validate(); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate, got %v", err)
	}
}

func TestTemplate_Validate_BadPriority(t *testing.T) {
	tpl := validTemplate()
	tpl.Priority = Priority("URGENT")

	if err := tpl.Validate(); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate, got %v", err)
	}
}

func TestTemplate_Validate_DuplicateStepIDs(t *testing.T) {
	tpl := validTemplate()
	tpl.Steps = append(tpl.Steps, Step{ID: "manager_approval", Kind: StepKindNotification})

	if err := tpl.Validate(); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("expected ErrInvalidTemplate, got %v", err)
	}
}

func TestStep_Validate_KindRequirements(t *testing.T) {
	cases := []struct {
		name string
		step Step
		ok   bool
	}{
		{"approval needs role", Step{ID: "a", Kind: StepKindApproval}, false},
		{"approval with role", Step{ID: "a", Kind: StepKindApproval, RequiredRole: "hr"}, true},
		{"action needs ref", Step{ID: "b", Kind: StepKindSystemAction}, false},
		{"action with ref", Step{ID: "b", Kind: StepKindSystemAction, ActionRef: "it.create_accounts"}, true},
		{"condition needs ref", Step{ID: "c", Kind: StepKindCondition}, false},
		{"condition with ref", Step{ID: "c", Kind: StepKindCondition, ConditionRef: "docs.signed"}, true},
		{"delay needs positive wait", Step{ID: "d", Kind: StepKindDelay}, false},
		{"delay with wait", Step{ID: "d", Kind: StepKindDelay, WaitSec: 60}, true},
		{"notification has no extras", Step{ID: "e", Kind: StepKindNotification}, true},
		{"unknown kind", Step{ID: "f", Kind: StepKind("WEBHOOK")}, false},
		{"missing id", Step{Kind: StepKindNotification}, false},
	}

	for _, tc := range cases {
		err := tc.step.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTemplate) {
			t.Errorf("%s: expected ErrInvalidTemplate, got %v", tc.name, err)
		}
	}
}

func TestTemplate_Deactivate_Idempotent(t *testing.T) {
	tpl := validTemplate()
	tpl.Active = true

	tpl.Deactivate()
	if tpl.Active {
		t.Error("template should be inactive")
	}

	// Second call is a no-op
	tpl.Deactivate()
	if tpl.Active {
		t.Error("template should stay inactive")
	}
}

func TestTemplate_Clone_IndependentSteps(t *testing.T) {
	tpl := validTemplate()
	clone := tpl.Clone()

	clone.Steps[0].RequiredRole = "director"
	if tpl.Steps[0].RequiredRole != "manager" {
		t.Error("clone should not share the steps slice")
	}
}

func TestParsePriority(t *testing.T) {
	if got := ParsePriority("HIGH"); got != PriorityHigh {
		t.Errorf("expected HIGH, got %s", got)
	}
	if got := ParsePriority(""); got != PriorityMedium {
		t.Errorf("empty input should default to MEDIUM, got %s", got)
	}
	if got := ParsePriority("whatever"); got != PriorityMedium {
		t.Errorf("unknown input should default to MEDIUM, got %s", got)
	}
}

func TestInstanceStatus_IsTerminal(t *testing.T) {
	terminal := []InstanceStatus{InstanceStatusCompleted, InstanceStatusRejected, InstanceStatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	active := []InstanceStatus{InstanceStatusPending, InstanceStatusInProgress}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
