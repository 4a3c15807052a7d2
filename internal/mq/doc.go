// Package mq реализует обмен сообщениями через RabbitMQ.
//
// # Топология
//
//   - hrflow.audit / audit.events — поток audit-событий для внешней
//     отчётности (SIEM, compliance-выгрузки)
//   - hrflow.instances / instances.completed — события завершения
//     процессов для модулей-инициаторов
//   - hrflow.notifications / notifications.outbound — уведомления
//     для доставки Notifier'ом, с DLQ dlq.notifications
//
// # Компоненты
//
//   - Connection — AMQP соединение с автоматическим reconnect
//   - Publisher  — публикация типизированных сообщений (envelope Message)
//   - Consumer   — потребление с ручным ack/nack и переживанием reconnect
//
// Сообщения публикуются persistent и переживают рестарт брокера.
// Ошибка обработчика возвращает сообщение в очередь; окончательно
// сломанные сообщения уходят в DLQ по настройкам очереди.
package mq
