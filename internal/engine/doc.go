// Package engine реализует жизненный цикл workflow instances.
//
// # Обзор
//
// Engine — центральный компонент системы, который:
//   - Создаёт instances из активных templates (Start)
//   - Принимает решения согласующих (Approve, Reject)
//   - Отменяет процессы административно (Cancel)
//   - Перепроверяет застрявшие шаги (Recheck)
//   - Отдаёт состояние (Get, List)
//
// # Статусы
//
//	PENDING → IN_PROGRESS → COMPLETED
//	                      ↘ REJECTED
//	          (или) → CANCELLED
//
// Терминальные статусы необратимы: любая мутирующая операция над
// завершённым instance возвращает ErrAlreadyTerminal.
//
// # Sweep
//
// После каждой мутации движок прогоняет sweep: цикл, который выполняет
// шаги через executor.Registry до первой точки ожидания (approval,
// неистёкший delay, ложный condition). Сколько шагов пройдёт один
// вызов — зависит только от данных instance.
//
// # Конкурентность
//
// Операции над одним instance сериализуются через внутренний набор
// блокировок по ID; запись в store дополнительно защищена проверкой
// (prevIndex, prevStatus) — конкурентное изменение из другого процесса
// даёт repo.ErrConflict вместо потерянного обновления.
//
// # Сбои побочных эффектов
//
// Ошибка system action не роняет instance: шаг остаётся текущим,
// эмитится step.failed, наружу уходит ErrSideEffect. Approve и Start
// такие ошибки глотают (решение согласующего уже записано), Recheck —
// возвращает, потому что Recheck и есть механизм повтора.
//
// # Audit
//
// Каждый переход эмитит audit-событие. Сбой emitter логируется и не
// прерывает операцию — движок доступен при недоступном audit-канале,
// ценой возможной потери событий.
package engine
