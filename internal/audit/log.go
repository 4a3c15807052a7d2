package audit

import (
	"context"
	"log/slog"

	"github.com/shaiso/hrflow/internal/domain"
)

// LogEmitter пишет audit-события в структурированный лог.
// Используется как дублирующий канал рядом с журналом в БД
// и как единственный канал в тестах и локальной разработке.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter создаёт новый LogEmitter.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Record логирует событие.
func (e *LogEmitter) Record(ctx context.Context, event domain.AuditEvent) error {
	e.logger.Info("audit event",
		"event_id", event.ID,
		"instance_id", event.InstanceID,
		"step_id", event.StepID,
		"kind", event.Kind,
		"actor", event.Actor,
		"detail", event.Detail,
	)
	return nil
}
