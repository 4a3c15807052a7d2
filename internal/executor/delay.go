package executor

import (
	"context"

	"github.com/shaiso/hrflow/internal/domain"
)

// DelayExecutor — исполнитель delay-шагов.
//
// Выдержка отсчитывается от StartedAt шага, а не от стенных часов
// процесса: рестарт сервиса не сбрасывает и не удлиняет паузу.
// Исполнитель никогда не блокируется — он только сравнивает время
// и сообщает, когда перепроверить.
type DelayExecutor struct{}

// NewDelayExecutor создаёт новый DelayExecutor.
func NewDelayExecutor() *DelayExecutor {
	return &DelayExecutor{}
}

// Kind возвращает тип шага.
func (e *DelayExecutor) Kind() domain.StepKind {
	return domain.StepKindDelay
}

// Execute проверяет, истекла ли выдержка шага.
func (e *DelayExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	started := req.Step.StartedAt
	if started == nil {
		// Первый визит: шаг только начался, выдержка впереди.
		return waitUntil(req.Now.Add(req.Step.Wait())), nil
	}

	deadline := started.Add(req.Step.Wait())
	if req.Now.Before(deadline) {
		return waitUntil(deadline), nil
	}
	return done(), nil
}
