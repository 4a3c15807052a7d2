// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (registry, engine, репозитории, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - template_handler.go — обработчики для /templates
//   - instance_handler.go — обработчики для /instances
//   - schedule_handler.go — обработчики для /schedules
//
// API предоставляет REST endpoints для управления templates,
// instances и schedules.
package api
