// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает structured logging через slog: единый формат (JSON/text),
// уровень из окружения, передача логгера через context.
//
// Prometheus-метрики определяются рядом с точками использования
// в cmd/* и экспортируются на /metrics endpoint.
package telemetry
