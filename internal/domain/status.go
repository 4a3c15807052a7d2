package domain

// InstanceStatus — статус выполнения workflow instance.
//
// Жизненный цикл:
//
//	PENDING → IN_PROGRESS → COMPLETED
//	                      ↘ REJECTED
//	          (или) → CANCELLED (из PENDING или IN_PROGRESS)
type InstanceStatus string

const (
	// InstanceStatusPending — instance создан, ни один шаг ещё не начался.
	InstanceStatusPending InstanceStatus = "PENDING"

	// InstanceStatusInProgress — хотя бы один шаг начал выполняться.
	InstanceStatusInProgress InstanceStatus = "IN_PROGRESS"

	// InstanceStatusCompleted — все шаги завершены.
	InstanceStatusCompleted InstanceStatus = "COMPLETED"

	// InstanceStatusRejected — отклонён согласующим. Финальный статус,
	// повторное рассмотрение возможно только через новый instance.
	InstanceStatusRejected InstanceStatus = "REJECTED"

	// InstanceStatusCancelled — отменён административно.
	InstanceStatusCancelled InstanceStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (instance завершён).
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case InstanceStatusCompleted, InstanceStatusRejected, InstanceStatusCancelled:
		return true
	default:
		return false
	}
}

// IsValid проверяет, что статус — одно из известных значений.
func (s InstanceStatus) IsValid() bool {
	switch s {
	case InstanceStatusPending, InstanceStatusInProgress,
		InstanceStatusCompleted, InstanceStatusRejected, InstanceStatusCancelled:
		return true
	default:
		return false
	}
}

// StepKind — тип шага workflow.
//
// Закрытый набор: новые типы добавляются только изменением кода
// (каждому типу соответствует свой executor), не конфигурацией.
type StepKind string

const (
	// StepKindApproval — шаг согласования. Завершается только явным
	// approve от роли, указанной в RequiredRole.
	StepKindApproval StepKind = "APPROVAL"

	// StepKindNotification — отправка уведомления. Завершается сразу
	// при достижении, никогда не блокирует продвижение.
	StepKindNotification StepKind = "NOTIFICATION"

	// StepKindSystemAction — синхронный вызов внешнего побочного эффекта
	// (ActionRef). При ошибке шаг остаётся незавершённым.
	StepKindSystemAction StepKind = "SYSTEM_ACTION"

	// StepKindCondition — опрос внешнего предиката (ConditionRef).
	// Завершается, когда предикат возвращает true.
	StepKindCondition StepKind = "CONDITION"

	// StepKindDelay — фиксированная выдержка времени. Завершается,
	// когда с момента начала шага прошло WaitSec секунд.
	StepKindDelay StepKind = "DELAY"
)

// IsValid проверяет, что kind — одно из известных значений.
func (k StepKind) IsValid() bool {
	switch k {
	case StepKindApproval, StepKindNotification, StepKindSystemAction,
		StepKindCondition, StepKindDelay:
		return true
	default:
		return false
	}
}

// Priority — приоритет template или instance.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// IsValid проверяет, что приоритет — одно из известных значений.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ParsePriority парсит строку в Priority.
// Для неизвестных значений возвращает PriorityMedium.
func ParsePriority(s string) Priority {
	p := Priority(s)
	if p.IsValid() {
		return p
	}
	return PriorityMedium
}
