package audit

import (
	"context"
	"log/slog"

	"github.com/shaiso/hrflow/internal/domain"
)

// Multi рассылает событие всем вложенным emitters.
//
// Сбой любого из них логируется и НЕ возвращается наверх: операция
// движка не должна падать из-за недоступного audit-канала. Цена этого
// решения — возможная потеря событий при сбоях; для строгого
// compliance-контура журнал в БД пишется первым в списке.
type Multi struct {
	emitters []Emitter
	logger   *slog.Logger
}

// NewMulti создаёт составной emitter.
func NewMulti(logger *slog.Logger, emitters ...Emitter) *Multi {
	return &Multi{
		emitters: emitters,
		logger:   logger,
	}
}

// Record рассылает событие. Всегда возвращает nil.
func (m *Multi) Record(ctx context.Context, event domain.AuditEvent) error {
	for _, e := range m.emitters {
		if err := e.Record(ctx, event); err != nil {
			m.logger.Error("audit emitter failed",
				"event_id", event.ID,
				"instance_id", event.InstanceID,
				"kind", event.Kind,
				"error", err)
		}
	}
	return nil
}
