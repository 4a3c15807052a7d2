package audit

import (
	"context"

	"github.com/shaiso/hrflow/internal/domain"
)

// AuditPublisher — публикация audit-событий во внешнюю шину.
// Реализуется mq.Publisher.
type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event domain.AuditEvent) error
}

// PublisherEmitter транслирует audit-события в шину сообщений —
// для внешних потребителей (отчётность, SIEM), которым не нужен
// доступ к БД движка.
type PublisherEmitter struct {
	publisher AuditPublisher
}

// NewPublisherEmitter создаёт новый PublisherEmitter.
func NewPublisherEmitter(publisher AuditPublisher) *PublisherEmitter {
	return &PublisherEmitter{publisher: publisher}
}

// Record публикует событие.
func (e *PublisherEmitter) Record(ctx context.Context, event domain.AuditEvent) error {
	return e.publisher.PublishAuditEvent(ctx, event)
}
