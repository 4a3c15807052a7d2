package executor

import (
	"context"
	"errors"
	"time"

	"github.com/shaiso/hrflow/internal/domain"
)

// Ошибки исполнителей.
var (
	// ErrExecutorNotFound — для типа шага нет исполнителя в реестре.
	ErrExecutorNotFound = errors.New("executor not found")

	// ErrActionNotFound — action_ref не зарегистрирован в ActionInvoker.
	ErrActionNotFound = errors.New("action not found")

	// ErrConditionNotFound — condition_ref не зарегистрирован в ConditionSource.
	ErrConditionNotFound = errors.New("condition not found")
)

// Executor — исполнитель одного типа шага.
//
// Каждому значению domain.StepKind соответствует ровно один Executor.
// Новый тип шага — это новый Executor плюс новая константа StepKind:
// набор закрыт и расширяется только кодом.
type Executor interface {
	// Kind возвращает тип шага, который обслуживает исполнитель.
	Kind() domain.StepKind

	// Execute пытается продвинуть шаг и сообщает, завершён ли он.
	// Ошибка означает сбой побочного эффекта: шаг остаётся текущим.
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Request — входные данные для выполнения шага.
type Request struct {
	// Instance — instance, которому принадлежит шаг. Read-only для
	// исполнителя: состояние меняет движок, не исполнители.
	Instance *domain.Instance

	// Step — текущий шаг с состоянием выполнения.
	Step *domain.InstanceStep

	// Now — текущее время движка. Передаётся явно, чтобы исполнители
	// (прежде всего delay) были детерминированными в тестах.
	Now time.Time
}

// Result — результат попытки продвижения шага.
type Result struct {
	// Done — шаг завершён, движок переходит к следующему.
	Done bool

	// WakeAt — когда имеет смысл перепроверить шаг снова.
	// Заполняется для незавершённых delay- и condition-шагов;
	// nil означает "ждать внешнего события" (approve).
	WakeAt *time.Time
}

// done — завершённый шаг.
func done() *Result {
	return &Result{Done: true}
}

// waitUntil — шаг не завершён, перепроверить в указанное время.
func waitUntil(t time.Time) *Result {
	return &Result{WakeAt: &t}
}

// wait — шаг не завершён, перепроверка по расписанию не нужна.
func wait() *Result {
	return &Result{}
}
