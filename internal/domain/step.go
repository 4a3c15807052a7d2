package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTemplate — template не прошёл валидацию.
var ErrInvalidTemplate = errors.New("invalid template")

// Step — описание одного шага внутри template.
//
// Step — value type: после включения в template он не меняется.
// Поля RequiredRole/ActionRef/ConditionRef/WaitSec имеют смысл
// только для соответствующего Kind.
type Step struct {
	// ID — уникальный идентификатор шага в рамках template.
	ID string `json:"id"`

	// Name — человекочитаемое имя шага (например, "Manager approval").
	Name string `json:"name,omitempty"`

	// Kind — тип шага.
	Kind StepKind `json:"kind"`

	// RequiredRole — роль, которой разрешено согласовать/отклонить.
	// Только для Kind=APPROVAL.
	RequiredRole string `json:"required_role,omitempty"`

	// ActionRef — идентификатор побочного эффекта для вызова.
	// Только для Kind=SYSTEM_ACTION. Непрозрачен для движка:
	// разрешается через ActionInvoker.
	ActionRef string `json:"action_ref,omitempty"`

	// ConditionRef — идентификатор внешнего предиката для опроса.
	// Только для Kind=CONDITION.
	ConditionRef string `json:"condition_ref,omitempty"`

	// WaitSec — выдержка в секундах. Только для Kind=DELAY.
	WaitSec int `json:"wait_sec,omitempty"`
}

// Wait возвращает выдержку delay-шага как time.Duration.
func (s Step) Wait() time.Duration {
	return time.Duration(s.WaitSec) * time.Second
}

// Validate проверяет корректность определения шага.
func (s Step) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: step without id", ErrInvalidTemplate)
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("%w: step %q: unknown kind %q", ErrInvalidTemplate, s.ID, s.Kind)
	}

	switch s.Kind {
	case StepKindApproval:
		if s.RequiredRole == "" {
			return fmt.Errorf("%w: approval step %q: required_role is mandatory", ErrInvalidTemplate, s.ID)
		}
	case StepKindSystemAction:
		if s.ActionRef == "" {
			return fmt.Errorf("%w: system action step %q: action_ref is mandatory", ErrInvalidTemplate, s.ID)
		}
	case StepKindCondition:
		if s.ConditionRef == "" {
			return fmt.Errorf("%w: condition step %q: condition_ref is mandatory", ErrInvalidTemplate, s.ID)
		}
	case StepKindDelay:
		if s.WaitSec <= 0 {
			return fmt.Errorf("%w: delay step %q: wait_sec must be positive", ErrInvalidTemplate, s.ID)
		}
	}

	return nil
}
