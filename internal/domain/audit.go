package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditKind — тип audit-события.
type AuditKind string

const (
	// AuditInstanceStarted — instance создан и запущен.
	AuditInstanceStarted AuditKind = "instance.started"

	// AuditStepStarted — sweep впервые достиг шага.
	AuditStepStarted AuditKind = "step.started"

	// AuditStepCompleted — шаг завершён (approve или авто-продвижение).
	AuditStepCompleted AuditKind = "step.completed"

	// AuditStepFailed — system action шага завершился ошибкой.
	AuditStepFailed AuditKind = "step.failed"

	// AuditInstanceCompleted — все шаги пройдены.
	AuditInstanceCompleted AuditKind = "instance.completed"

	// AuditInstanceRejected — instance отклонён согласующим.
	AuditInstanceRejected AuditKind = "instance.rejected"

	// AuditInstanceCancelled — instance отменён административно.
	AuditInstanceCancelled AuditKind = "instance.cancelled"
)

// AuditEvent — запись о переходе состояния для compliance-трассировки.
//
// События append-only: записываются при каждом переходе и никогда
// не изменяются и не удаляются.
type AuditEvent struct {
	// ID — уникальный идентификатор события.
	ID uuid.UUID `json:"id"`

	// InstanceID — instance, к которому относится событие.
	InstanceID uuid.UUID `json:"instance_id"`

	// StepID — шаг, к которому относится событие (пусто для событий
	// уровня instance).
	StepID string `json:"step_id,omitempty"`

	// Kind — тип события.
	Kind AuditKind `json:"kind"`

	// Actor — роль, вызвавшая переход (пусто для автоматических).
	Actor string `json:"actor,omitempty"`

	// Detail — произвольное текстовое пояснение (комментарий
	// согласующего, причина отмены, текст ошибки).
	Detail string `json:"detail,omitempty"`

	// CreatedAt — время эмиссии события.
	CreatedAt time.Time `json:"created_at"`
}

// NewAuditEvent создаёт событие с заполненным ID и временем.
func NewAuditEvent(instanceID uuid.UUID, kind AuditKind, now time.Time) AuditEvent {
	return AuditEvent{
		ID:         uuid.New(),
		InstanceID: instanceID,
		Kind:       kind,
		CreatedAt:  now,
	}
}
