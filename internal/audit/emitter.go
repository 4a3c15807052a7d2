package audit

import (
	"context"

	"github.com/shaiso/hrflow/internal/domain"
)

// Emitter — приёмник audit-событий.
//
// Движок эмитит событие на каждом переходе состояния. Реализации:
// журнал в БД (repo.AuditRepo), структурированный лог (LogEmitter),
// публикация в MQ (PublisherEmitter) и их композиция (Multi).
type Emitter interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// EmitterFunc — адаптер функции к интерфейсу Emitter.
type EmitterFunc func(ctx context.Context, event domain.AuditEvent) error

// Record вызывает функцию.
func (f EmitterFunc) Record(ctx context.Context, event domain.AuditEvent) error {
	return f(ctx, event)
}
