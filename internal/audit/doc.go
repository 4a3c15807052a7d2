// Package audit определяет приёмники audit-событий движка.
//
// Движок эмитит domain.AuditEvent на каждом переходе состояния
// instance и шага. Пакет предоставляет интерфейс Emitter и набор
// реализаций:
//
//   - LogEmitter       — структурированный лог (slog)
//   - PublisherEmitter — публикация в шину сообщений
//   - Multi            — композиция нескольких emitters
//
// Журнал в БД реализует Emitter напрямую (repo.AuditRepo.Record).
//
// Multi глотает ошибки вложенных emitters: движок продолжает работу
// при недоступном audit-канале, события при этом могут теряться.
package audit
