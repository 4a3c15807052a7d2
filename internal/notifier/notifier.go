package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/hrflow/internal/executor"
	"github.com/shaiso/hrflow/internal/mq"
)

// Deliverer — конечный канал доставки уведомления (почтовый шлюз,
// мессенджер). Совпадает с executor.Notifier намеренно: один и тот же
// контракт на обоих концах очереди.
type Deliverer = executor.Notifier

// Notifier — потребитель очереди notifications.outbound.
//
// Stateless компонент: читает уведомления из очереди и передаёт их
// в Deliverer. Ошибка доставки возвращает сообщение в очередь;
// повторно недоставляемые уведомления уходят в DLQ по настройкам
// очереди. Масштабируется горизонтально.
type Notifier struct {
	conn      *mq.Connection
	deliverer Deliverer

	consumer *mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Notifier.
type Config struct {
	Conn      *mq.Connection
	Deliverer Deliverer
	Logger    *slog.Logger

	// Prefetch — количество сообщений в обработке одновременно
	// (default: 5).
	Prefetch int
}

// New создаёт новый Notifier.
func New(cfg Config) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	n := &Notifier{
		conn:      cfg.Conn,
		deliverer: cfg.Deliverer,
		logger:    logger,
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 5
	}

	n.consumer = mq.NewConsumer(cfg.Conn, logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueNotificationsOutbound),
		Handler:  n.handleOutbound,
		Prefetch: prefetch,
	})

	return n
}

// Start запускает потребление уведомлений.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancelFunc = cancel

	n.logger.Info("starting notifier")

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			n.logger.Error("notification consumer error", "error", err)
		}
	}()

	return nil
}

// Stop останавливает Notifier.
func (n *Notifier) Stop() {
	n.logger.Info("stopping notifier...")

	if n.cancelFunc != nil {
		n.cancelFunc()
	}
	n.consumer.Stop()
	n.wg.Wait()

	n.logger.Info("notifier stopped")
}

// handleOutbound обрабатывает одно уведомление из очереди.
func (n *Notifier) handleOutbound(ctx context.Context, msg *mq.Delivery) error {
	notification, err := mq.ParsePayload[executor.Notification](&msg.Message)
	if err != nil {
		n.logger.Error("failed to parse notification payload",
			"message_id", msg.Message.ID, "error", err)
		return err
	}

	if err := n.deliverer.Send(ctx, notification); err != nil {
		return err
	}

	n.logger.Info("notification delivered",
		"instance_id", notification.InstanceID,
		"step_id", notification.StepID,
		"step_name", notification.StepName,
	)
	return nil
}
