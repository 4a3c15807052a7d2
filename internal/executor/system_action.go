package executor

import (
	"context"
	"fmt"

	"github.com/shaiso/hrflow/internal/domain"
)

// ActionInvoker — разрешает action_ref в вызов побочного эффекта
// (создание учётной записи, заказ пропуска, запись в кадровую систему).
type ActionInvoker interface {
	Invoke(ctx context.Context, ref string, inst *domain.Instance) error
}

// SystemActionExecutor — исполнитель system-action-шагов.
//
// Вызывает побочный эффект синхронно. Успех завершает шаг; ошибка
// оставляет шаг текущим, instance остаётся IN_PROGRESS и может быть
// повторён через Recheck после устранения причины.
type SystemActionExecutor struct {
	invoker ActionInvoker
}

// NewSystemActionExecutor создаёт новый SystemActionExecutor.
func NewSystemActionExecutor(invoker ActionInvoker) *SystemActionExecutor {
	return &SystemActionExecutor{invoker: invoker}
}

// Kind возвращает тип шага.
func (e *SystemActionExecutor) Kind() domain.StepKind {
	return domain.StepKindSystemAction
}

// Execute вызывает побочный эффект шага.
func (e *SystemActionExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	if err := e.invoker.Invoke(ctx, req.Step.ActionRef, req.Instance); err != nil {
		return nil, fmt.Errorf("invoke %q: %w", req.Step.ActionRef, err)
	}
	return done(), nil
}
