package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeAudit         Exchange = "hrflow.audit"
	ExchangeInstances     Exchange = "hrflow.instances"
	ExchangeNotifications Exchange = "hrflow.notifications"
	ExchangeDLQ           Exchange = "hrflow.dlq"
)

// Queues — имена очередей.
const (
	QueueAuditEvents           Queue = "audit.events"
	QueueInstancesCompleted    Queue = "instances.completed"
	QueueNotificationsOutbound Queue = "notifications.outbound"
	QueueDLQNotifications      Queue = "dlq.notifications"
)

// Routing keys.
const (
	RoutingKeyAuditEvent       RoutingKey = "event"
	RoutingKeyCompleted        RoutingKey = "completed"
	RoutingKeyOutbound         RoutingKey = "outbound"
	RoutingKeyDLQNotifications RoutingKey = "notifications"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeAudit, "direct"},
		{ExchangeInstances, "direct"},
		{ExchangeNotifications, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQNotifications),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// audit.events — без DLQ (append-only поток, потребители догоняют)
		{QueueAuditEvents, nil},

		// instances.completed — без DLQ (события завершения)
		{QueueInstancesCompleted, nil},

		// notifications.outbound — с DLQ (доставка может падать)
		{QueueNotificationsOutbound, dlqArgs},

		// dlq.notifications — сама DLQ очередь
		{QueueDLQNotifications, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueAuditEvents, RoutingKeyAuditEvent, ExchangeAudit},
		{QueueInstancesCompleted, RoutingKeyCompleted, ExchangeInstances},
		{QueueNotificationsOutbound, RoutingKeyOutbound, ExchangeNotifications},
		{QueueDLQNotifications, RoutingKeyDLQNotifications, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  HRFlow RabbitMQ Topology:

    hrflow.audit (direct)
    └── audit.events [routing: event]
            Consumer: external reporting

    hrflow.instances (direct)
    └── instances.completed [routing: completed]
            Consumer: initiating modules

    hrflow.notifications (direct)
    └── notifications.outbound [routing: outbound]
            Consumer: Notifier
            DLQ: dlq.notifications

    hrflow.dlq (direct)
    └── dlq.notifications [routing: notifications]
            Manual processing
  `
}
