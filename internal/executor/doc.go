// Package executor содержит исполнители типов шагов workflow.
//
// # Обзор
//
// Каждому domain.StepKind соответствует свой Executor. Движок не знает
// деталей шагов: он берёт исполнитель из Registry и спрашивает,
// завершён ли текущий шаг. Набор типов закрыт — новый тип шага
// добавляется кодом (новый Executor + новая константа StepKind),
// не конфигурацией.
//
// # Интерфейс Executor
//
//	type Executor interface {
//	    Kind() domain.StepKind
//	    Execute(ctx context.Context, req *Request) (*Result, error)
//	}
//
// Result описывает исход попытки продвижения:
//   - Done=true            — шаг завершён, движок идёт дальше
//   - Done=false, WakeAt=t — перепроверить шаг в момент t (delay, condition)
//   - Done=false, WakeAt=nil — ждать внешнего события (approval)
//
// Ошибка из Execute означает сбой побочного эффекта: шаг остаётся
// текущим, instance остаётся активным.
//
// # Типы шагов
//
//   - ApprovalExecutor     — ждёт явного Approve нужной роли
//   - NotificationExecutor — отправляет уведомление, никогда не блокирует
//   - SystemActionExecutor — синхронный вызов ActionInvoker
//   - ConditionExecutor    — опрос ConditionSource с перепроверкой
//   - DelayExecutor        — выдержка от StartedAt шага, без блокировки
//
// # Внешние зависимости
//
// Исполнители не ходят во внешние системы напрямую — только через
// узкие интерфейсы ActionInvoker, ConditionSource и Notifier.
// FuncInvoker и FuncSource — готовые реализации на основе карты
// функций, регистрируемых при старте процесса.
package executor
