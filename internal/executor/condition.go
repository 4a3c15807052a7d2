package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/hrflow/internal/domain"
)

// DefaultRecheckInterval — интервал перепроверки condition-шагов
// по умолчанию.
const DefaultRecheckInterval = 30 * time.Second

// ConditionSource — разрешает condition_ref во внешний предикат
// ("документы загружены", "оборудование выдано").
type ConditionSource interface {
	Evaluate(ctx context.Context, ref string, inst *domain.Instance) (bool, error)
}

// ConditionExecutor — исполнитель condition-шагов.
//
// Опрашивает предикат: true завершает шаг, false оставляет его
// текущим с перепроверкой через recheckInterval. Ошибка вычисления
// трактуется как false (логируется, перепроверка по расписанию):
// временный сбой источника не должен ронять instance.
type ConditionExecutor struct {
	source          ConditionSource
	recheckInterval time.Duration
	logger          *slog.Logger
}

// NewConditionExecutor создаёт новый ConditionExecutor.
// При interval <= 0 используется DefaultRecheckInterval.
func NewConditionExecutor(source ConditionSource, interval time.Duration, logger *slog.Logger) *ConditionExecutor {
	if interval <= 0 {
		interval = DefaultRecheckInterval
	}
	return &ConditionExecutor{
		source:          source,
		recheckInterval: interval,
		logger:          logger,
	}
}

// Kind возвращает тип шага.
func (e *ConditionExecutor) Kind() domain.StepKind {
	return domain.StepKindCondition
}

// Execute опрашивает предикат шага.
func (e *ConditionExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	ok, err := e.source.Evaluate(ctx, req.Step.ConditionRef, req.Instance)
	if err != nil {
		e.logger.Warn("condition evaluation failed",
			"instance_id", req.Instance.ID,
			"step_id", req.Step.ID,
			"condition_ref", req.Step.ConditionRef,
			"error", err)
		return waitUntil(req.Now.Add(e.recheckInterval)), nil
	}
	if !ok {
		return waitUntil(req.Now.Add(e.recheckInterval)), nil
	}
	return done(), nil
}
