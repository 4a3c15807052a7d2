package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
)

// Template DTOs

// CreateTemplateRequest — запрос на регистрацию template.
type CreateTemplateRequest struct {
	Name               string        `json:"name"`
	Category           string        `json:"category,omitempty"`
	Priority           string        `json:"priority,omitempty"`
	Steps              []domain.Step `json:"steps"`
	ComplianceRequired bool          `json:"compliance_required,omitempty"`
}

// TemplateResponse — ответ с template.
type TemplateResponse struct {
	ID                 uuid.UUID     `json:"id"`
	Name               string        `json:"name"`
	Category           string        `json:"category,omitempty"`
	Priority           string        `json:"priority"`
	Steps              []domain.Step `json:"steps"`
	ComplianceRequired bool          `json:"compliance_required"`
	Active             bool          `json:"active"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// TemplateFromDomain конвертирует domain.Template в TemplateResponse.
func TemplateFromDomain(t domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:                 t.ID,
		Name:               t.Name,
		Category:           t.Category,
		Priority:           string(t.Priority),
		Steps:              t.Steps,
		ComplianceRequired: t.ComplianceRequired,
		Active:             t.Active,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// Instance DTOs

// StartInstanceRequest — запрос на создание instance.
type StartInstanceRequest struct {
	InitiatedBy string         `json:"initiated_by"`
	Subject     string         `json:"subject,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Priority    string         `json:"priority,omitempty"`
	DueAt       *time.Time     `json:"due_at,omitempty"`
}

// DecisionRequest — запрос на approve/reject.
type DecisionRequest struct {
	Role    string `json:"role"`
	Comment string `json:"comment,omitempty"`
}

// CancelRequest — запрос на отмену instance.
type CancelRequest struct {
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// InstanceStepResponse — ответ с шагом instance.
type InstanceStepResponse struct {
	ID           string     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Kind         string     `json:"kind"`
	RequiredRole string     `json:"required_role,omitempty"`
	ActionRef    string     `json:"action_ref,omitempty"`
	ConditionRef string     `json:"condition_ref,omitempty"`
	WaitSec      int        `json:"wait_sec,omitempty"`
	Completed    bool       `json:"completed"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CompletedBy  string     `json:"completed_by,omitempty"`
	Comment      string     `json:"comment,omitempty"`
}

// InstanceResponse — ответ с instance.
type InstanceResponse struct {
	ID               uuid.UUID              `json:"id"`
	TemplateID       uuid.UUID              `json:"template_id"`
	TemplateName     string                 `json:"template_name"`
	InitiatedBy      string                 `json:"initiated_by"`
	InitiatedAt      time.Time              `json:"initiated_at"`
	Subject          string                 `json:"subject,omitempty"`
	Payload          map[string]any         `json:"payload,omitempty"`
	Priority         string                 `json:"priority"`
	DueAt            *time.Time             `json:"due_at,omitempty"`
	CurrentStepIndex int                    `json:"current_step_index"`
	Status           string                 `json:"status"`
	Steps            []InstanceStepResponse `json:"steps"`
	WakeAt           *time.Time             `json:"wake_at,omitempty"`
	FinishedAt       *time.Time             `json:"finished_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// InstanceFromDomain конвертирует domain.Instance в InstanceResponse.
func InstanceFromDomain(i *domain.Instance) InstanceResponse {
	steps := make([]InstanceStepResponse, len(i.Steps))
	for n, s := range i.Steps {
		steps[n] = InstanceStepResponse{
			ID:           s.ID,
			Name:         s.Name,
			Kind:         string(s.Kind),
			RequiredRole: s.RequiredRole,
			ActionRef:    s.ActionRef,
			ConditionRef: s.ConditionRef,
			WaitSec:      s.WaitSec,
			Completed:    s.Completed,
			StartedAt:    s.StartedAt,
			CompletedAt:  s.CompletedAt,
			CompletedBy:  s.CompletedBy,
			Comment:      s.Comment,
		}
	}

	return InstanceResponse{
		ID:               i.ID,
		TemplateID:       i.TemplateID,
		TemplateName:     i.TemplateName,
		InitiatedBy:      i.InitiatedBy,
		InitiatedAt:      i.InitiatedAt,
		Subject:          i.Subject,
		Payload:          i.Payload,
		Priority:         string(i.Priority),
		DueAt:            i.DueAt,
		CurrentStepIndex: i.CurrentStepIndex,
		Status:           string(i.Status),
		Steps:            steps,
		WakeAt:           i.WakeAt,
		FinishedAt:       i.FinishedAt,
		CreatedAt:        i.CreatedAt,
		UpdatedAt:        i.UpdatedAt,
	}
}

// Audit DTOs

// AuditEventResponse — ответ с audit-событием.
type AuditEventResponse struct {
	ID         uuid.UUID `json:"id"`
	InstanceID uuid.UUID `json:"instance_id"`
	StepID     string    `json:"step_id,omitempty"`
	Kind       string    `json:"kind"`
	Actor      string    `json:"actor,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditEventFromDomain конвертирует domain.AuditEvent в AuditEventResponse.
func AuditEventFromDomain(e domain.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:         e.ID,
		InstanceID: e.InstanceID,
		StepID:     e.StepID,
		Kind:       string(e.Kind),
		Actor:      e.Actor,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	InitiatedBy string         `json:"initiated_by,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID             uuid.UUID      `json:"id"`
	TemplateID     uuid.UUID      `json:"template_id"`
	Name           string         `json:"name"`
	CronExpr       string         `json:"cron_expr,omitempty"`
	IntervalSec    int            `json:"interval_sec,omitempty"`
	Timezone       string         `json:"timezone"`
	Enabled        bool           `json:"enabled"`
	InitiatedBy    string         `json:"initiated_by"`
	Subject        string         `json:"subject,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	NextDueAt      *time.Time     `json:"next_due_at,omitempty"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
	LastInstanceID *uuid.UUID     `json:"last_instance_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:             s.ID,
		TemplateID:     s.TemplateID,
		Name:           s.Name,
		CronExpr:       s.CronExpr,
		IntervalSec:    s.IntervalSec,
		Timezone:       s.Timezone,
		Enabled:        s.Enabled,
		InitiatedBy:    s.InitiatedBy,
		Subject:        s.Subject,
		Payload:        s.Payload,
		NextDueAt:      s.NextDueAt,
		LastRunAt:      s.LastRunAt,
		LastInstanceID: s.LastInstanceID,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
