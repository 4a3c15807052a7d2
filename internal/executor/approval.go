package executor

import (
	"context"

	"github.com/shaiso/hrflow/internal/domain"
)

// ApprovalExecutor — исполнитель approval-шагов.
//
// Approval-шаг никогда не завершается автоматически: единственный путь
// вперёд — явный Approve от роли, указанной в RequiredRole. Исполнитель
// лишь фиксирует, что движок дошёл до шага и ждёт внешнего решения.
type ApprovalExecutor struct{}

// NewApprovalExecutor создаёт новый ApprovalExecutor.
func NewApprovalExecutor() *ApprovalExecutor {
	return &ApprovalExecutor{}
}

// Kind возвращает тип шага.
func (e *ApprovalExecutor) Kind() domain.StepKind {
	return domain.StepKindApproval
}

// Execute всегда оставляет шаг незавершённым без перепроверки:
// будить instance будет Approve, а не scheduler.
func (e *ApprovalExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	return wait(), nil
}
