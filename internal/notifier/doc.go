// Package notifier доставляет уведомления из очереди notifications.outbound.
//
// Движок не доставляет уведомления сам: notification-шаг публикует
// сообщение в очередь и сразу завершается. Notifier — отдельный
// stateless процесс, который читает очередь и передаёт уведомления
// в Deliverer. Реальная интеграция (почта, мессенджер) — это ещё одна
// реализация Deliverer; по умолчанию используется LogDeliverer.
package notifier
