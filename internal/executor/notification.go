package executor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
)

// Notification — уведомление, которое нужно доставить.
type Notification struct {
	// InstanceID — instance, породивший уведомление.
	InstanceID uuid.UUID `json:"instance_id"`

	// StepID — шаг-источник уведомления.
	StepID string `json:"step_id"`

	// StepName — имя шага (обычно и есть текст уведомления).
	StepName string `json:"step_name,omitempty"`

	// TemplateName — имя процесса для контекста получателя.
	TemplateName string `json:"template_name,omitempty"`

	// Subject — описание кейса.
	Subject string `json:"subject,omitempty"`
}

// Notifier — канал доставки уведомлений.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotifierFunc — адаптер функции к интерфейсу Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Send вызывает функцию.
func (f NotifierFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// NotificationExecutor — исполнитель notification-шагов.
//
// Отправляет уведомление и завершает шаг НЕЗАВИСИМО от результата
// отправки: уведомления не блокируют продвижение процесса. Ошибка
// доставки логируется и теряется.
type NotificationExecutor struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewNotificationExecutor создаёт новый NotificationExecutor.
func NewNotificationExecutor(notifier Notifier, logger *slog.Logger) *NotificationExecutor {
	return &NotificationExecutor{
		notifier: notifier,
		logger:   logger,
	}
}

// Kind возвращает тип шага.
func (e *NotificationExecutor) Kind() domain.StepKind {
	return domain.StepKindNotification
}

// Execute отправляет уведомление и завершает шаг.
func (e *NotificationExecutor) Execute(ctx context.Context, req *Request) (*Result, error) {
	n := Notification{
		InstanceID:   req.Instance.ID,
		StepID:       req.Step.ID,
		StepName:     req.Step.Name,
		TemplateName: req.Instance.TemplateName,
		Subject:      req.Instance.Subject,
	}

	if err := e.notifier.Send(ctx, n); err != nil {
		e.logger.Warn("notification delivery failed",
			"instance_id", req.Instance.ID,
			"step_id", req.Step.ID,
			"error", err)
	}

	return done(), nil
}
