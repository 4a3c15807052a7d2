// Package scheduler реализует периодическую работу движка по времени.
//
// Scheduler.Tick вызывается по таймеру из cmd/hrflow-scheduler и делает
// две вещи:
//
//  1. Находит due schedules (enabled, next_due_at <= now), создаёт для
//     них instances через Engine.Start и вычисляет новое next_due_at
//     (cron через robfig/cron либо фиксированный интервал, с учётом
//     timezone). Дубликаты при падении между Start и записью
//     next_due_at отсекаются idempotency key.
//
//  2. Находит instances с истёкшим wake_at (delay истёк, condition
//     пора опросить) и дёргает Engine.Recheck. Завершившиеся и
//     конкурентно изменённые instances пропускаются молча.
//
// Единственность активного экземпляра обеспечивается advisory lock
// в main, а не внутри пакета.
package scheduler
