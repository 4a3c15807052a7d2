package notifier

import (
	"context"
	"log/slog"

	"github.com/shaiso/hrflow/internal/executor"
)

// LogDeliverer пишет уведомления в лог вместо реальной доставки.
// Канал по умолчанию: интеграция с почтовым шлюзом подключается
// отдельным Deliverer, не изменением движка.
type LogDeliverer struct {
	logger *slog.Logger
}

// NewLogDeliverer создаёт новый LogDeliverer.
func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

// Send логирует уведомление.
func (d *LogDeliverer) Send(ctx context.Context, n executor.Notification) error {
	d.logger.Info("notification",
		"instance_id", n.InstanceID,
		"step_id", n.StepID,
		"step_name", n.StepName,
		"template_name", n.TemplateName,
		"subject", n.Subject,
	)
	return nil
}
