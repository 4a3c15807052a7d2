package domain

import (
	"time"

	"github.com/google/uuid"
)

// Schedule — расписание автоматического создания instances.
//
// Позволяет запускать процессы без внешнего инициатора:
// - По cron-выражению: "0 9 1 * *" (первое число месяца в 9:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет next_due_at и создаёт instance, когда время подошло.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// TemplateID — template, из которого создаются instances.
	TemplateID uuid.UUID `json:"template_id"`

	// Name — имя расписания для удобства.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 9 * * 1"     — каждый понедельник в 9:00
	//   "0 0 1 */3 *"   — раз в квартал (ревизия доступов)
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между запусками.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	// Примеры: "Europe/Moscow", "America/New_York"
	Timezone string `json:"timezone"`

	// Enabled — флаг активности расписания.
	// Если false, scheduler игнорирует это расписание.
	Enabled bool `json:"enabled"`

	// InitiatedBy — кто будет указан инициатором создаваемых instances
	// (например, "scheduler" или имя службы).
	InitiatedBy string `json:"initiated_by"`

	// Subject — описание кейса для создаваемых instances.
	Subject string `json:"subject,omitempty"`

	// Payload — данные, передаваемые в каждый созданный instance.
	Payload map[string]any `json:"payload,omitempty"`

	// NextDueAt — время следующего запуска.
	// Scheduler создаёт instance, когда now >= NextDueAt.
	// После создания вычисляется новое NextDueAt.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastRunAt — время последнего запуска.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// LastInstanceID — ID последнего созданного instance.
	LastInstanceID *uuid.UUID `json:"last_instance_id,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextDueAt == nil {
		return false
	}
	return now.After(*s.NextDueAt) || now.Equal(*s.NextDueAt)
}

// RecordRun записывает информацию о запуске.
func (s *Schedule) RecordRun(instanceID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastRunAt = &now
	s.LastInstanceID = &instanceID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
