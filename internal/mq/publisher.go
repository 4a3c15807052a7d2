package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/executor"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeAuditEvent           MessageType = "audit.event"
	MessageTypeInstanceCompleted    MessageType = "instance.completed"
	MessageTypeNotificationOutbound MessageType = "notification.outbound"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// InstanceCompletedPayload — payload события о завершённом instance.
type InstanceCompletedPayload struct {
	InstanceID   uuid.UUID  `json:"instance_id"`
	TemplateID   uuid.UUID  `json:"template_id"`
	TemplateName string     `json:"template_name"`
	InitiatedBy  string     `json:"initiated_by"`
	Subject      string     `json:"subject,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishAuditEvent публикует audit-событие для внешних потребителей.
func (p *Publisher) PublishAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeAuditEvent,
		Payload:   event,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeAudit, RoutingKeyAuditEvent, msg)
}

// PublishInstanceCompleted публикует событие о завершённом instance.
// Потребители: модули-инициаторы (форма заявки, цикл review).
func (p *Publisher) PublishInstanceCompleted(ctx context.Context, inst *domain.Instance) error {
	msg := &Message{
		ID:   uuid.New().String(),
		Type: MessageTypeInstanceCompleted,
		Payload: InstanceCompletedPayload{
			InstanceID:   inst.ID,
			TemplateID:   inst.TemplateID,
			TemplateName: inst.TemplateName,
			InitiatedBy:  inst.InitiatedBy,
			Subject:      inst.Subject,
			FinishedAt:   inst.FinishedAt,
		},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeInstances, RoutingKeyCompleted, msg)
}

// PublishNotification публикует уведомление для доставки.
// Потребитель: Notifier.
func (p *Publisher) PublishNotification(ctx context.Context, n executor.Notification) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeNotificationOutbound,
		Payload:   n,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeNotifications, RoutingKeyOutbound, msg)
}
