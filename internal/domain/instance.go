package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStep — шаг в составе instance: определение шага из template
// плюс изменяемое состояние выполнения.
type InstanceStep struct {
	Step

	// Completed — шаг завершён.
	Completed bool `json:"completed"`

	// StartedAt — время, когда sweep впервые достиг этого шага.
	// Для delay-шагов от этого момента отсчитывается выдержка.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt — время завершения шага.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// CompletedBy — роль, завершившая approval-шаг.
	CompletedBy string `json:"completed_by,omitempty"`

	// Comment — комментарий согласующего.
	Comment string `json:"comment,omitempty"`
}

// Instance — один конкретный запуск template для конкретного кейса.
//
// Instance создаётся внешним модулем (форма заявки на отпуск,
// триггер продления сертификации, цикл performance review).
// Шаги клонируются из template в момент создания и дальше живут
// своей жизнью. Instances не удаляются — хранятся для compliance-истории.
//
// Инварианты:
//   - 0 <= CurrentStepIndex <= len(Steps);
//     равенство len(Steps) означает Status=COMPLETED
//   - шаги с индексом < CurrentStepIndex завершены, остальные — нет
//   - терминальный статус не меняется
type Instance struct {
	// ID — уникальный идентификатор instance.
	ID uuid.UUID `json:"id"`

	// TemplateID — ссылка на template (не владение: template может
	// быть деактивирован, instance продолжает выполняться).
	TemplateID uuid.UUID `json:"template_id"`

	// TemplateName — денормализованное имя template для отображения.
	TemplateName string `json:"template_name"`

	// InitiatedBy — кто инициировал процесс.
	InitiatedBy string `json:"initiated_by"`

	// InitiatedAt — время инициации.
	InitiatedAt time.Time `json:"initiated_at"`

	// Subject — описание конкретного кейса
	// (например, "Annual leave: J. Smith, 2026-09-01..2026-09-14").
	Subject string `json:"subject,omitempty"`

	// Payload — непрозрачные данные, принадлежащие модулю-инициатору.
	// Движок их не интерпретирует, только хранит и передаёт.
	Payload map[string]any `json:"payload,omitempty"`

	// Priority — приоритет instance.
	Priority Priority `json:"priority"`

	// IdempotencyKey — ключ дедупликации для автоматически создаваемых
	// instances (scheduler). Пустой для запусков вручную.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// DueAt — срок завершения процесса.
	DueAt *time.Time `json:"due_at,omitempty"`

	// CurrentStepIndex — индекс текущего шага (0-based).
	// Монотонно растёт, пока instance активен.
	CurrentStepIndex int `json:"current_step_index"`

	// Status — текущий статус instance.
	Status InstanceStatus `json:"status"`

	// Steps — собственная копия шагов template с состоянием выполнения.
	Steps []InstanceStep `json:"steps"`

	// WakeAt — время следующей автоматической перепроверки.
	// Устанавливается, когда sweep останавливается на delay- или
	// condition-шаге; nil, если перепроверка не требуется
	// (ожидание approve или instance завершён).
	WakeAt *time.Time `json:"wake_at,omitempty"`

	// FinishedAt — время перехода в терминальный статус.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotSteps клонирует шаги template в шаги instance.
func SnapshotSteps(steps []Step) []InstanceStep {
	snapshot := make([]InstanceStep, len(steps))
	for i, s := range steps {
		snapshot[i] = InstanceStep{Step: s}
	}
	return snapshot
}

// CurrentStep возвращает текущий шаг или nil, если все шаги пройдены.
func (i *Instance) CurrentStep() *InstanceStep {
	if i.CurrentStepIndex < 0 || i.CurrentStepIndex >= len(i.Steps) {
		return nil
	}
	return &i.Steps[i.CurrentStepIndex]
}

// IsTerminal возвращает true, если instance в финальном статусе.
func (i *Instance) IsTerminal() bool {
	return i.Status.IsTerminal()
}

// MarkInProgress переводит instance из PENDING в IN_PROGRESS.
func (i *Instance) MarkInProgress(now time.Time) {
	if i.Status == InstanceStatusPending {
		i.Status = InstanceStatusInProgress
		i.UpdatedAt = now
	}
}

// MarkCompleted переводит instance в COMPLETED.
func (i *Instance) MarkCompleted(now time.Time) {
	i.Status = InstanceStatusCompleted
	i.FinishedAt = &now
	i.WakeAt = nil
	i.UpdatedAt = now
}

// MarkRejected переводит instance в REJECTED.
// Текущий шаг НЕ помечается завершённым: отклонение — не прохождение шага.
func (i *Instance) MarkRejected(now time.Time) {
	i.Status = InstanceStatusRejected
	i.FinishedAt = &now
	i.WakeAt = nil
	i.UpdatedAt = now
}

// MarkCancelled переводит instance в CANCELLED.
func (i *Instance) MarkCancelled(now time.Time) {
	i.Status = InstanceStatusCancelled
	i.FinishedAt = &now
	i.WakeAt = nil
	i.UpdatedAt = now
}

// CompleteCurrentStep помечает текущий шаг завершённым и сдвигает
// указатель на следующий шаг.
func (i *Instance) CompleteCurrentStep(now time.Time, by, comment string) {
	step := i.CurrentStep()
	if step == nil {
		return
	}
	step.Completed = true
	step.CompletedAt = &now
	step.CompletedBy = by
	step.Comment = comment
	i.CurrentStepIndex++
	i.UpdatedAt = now
}

// Clone возвращает глубокую копию instance (read-only snapshot для callers).
func (i *Instance) Clone() *Instance {
	c := *i
	c.Steps = make([]InstanceStep, len(i.Steps))
	copy(c.Steps, i.Steps)
	if i.Payload != nil {
		c.Payload = make(map[string]any, len(i.Payload))
		for k, v := range i.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}

// InstanceFilter — параметры фильтрации списка instances.
// Незаполненные поля означают "любое значение".
type InstanceFilter struct {
	TemplateID *uuid.UUID
	Status     InstanceStatus
	Priority   Priority

	// SortByDueAt — сортировать по сроку завершения (ближайшие первыми)
	// вместо порядка создания.
	SortByDueAt bool

	Limit  int
	Offset int
}
