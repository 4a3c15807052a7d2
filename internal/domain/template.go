package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template — именованный blueprint бизнес-процесса.
//
// Template описывает упорядоченный список шагов для класса процессов
// (onboarding, согласование отпуска, продление сертификации).
// Каждый instance при создании снимает snapshot шагов template:
// последующие изменения template не влияют на уже запущенные instances.
type Template struct {
	// ID — уникальный идентификатор template.
	ID uuid.UUID `json:"id"`

	// Name — человекочитаемое имя template.
	Name string `json:"name"`

	// Category — категория процесса (например, "onboarding", "leave").
	Category string `json:"category,omitempty"`

	// Priority — приоритет по умолчанию для создаваемых instances.
	Priority Priority `json:"priority"`

	// Steps — упорядоченный список шагов. Всегда непустой.
	Steps []Step `json:"steps"`

	// ComplianceRequired — процесс подлежит compliance-отчётности.
	ComplianceRequired bool `json:"compliance_required"`

	// Active — флаг активности. Из неактивного template нельзя
	// создавать новые instances; уже запущенные не затрагиваются.
	Active bool `json:"active"`

	// CreatedAt — время создания template.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate проверяет template перед регистрацией.
//
// Требования:
//   - непустое имя
//   - хотя бы один шаг
//   - уникальные ID шагов
//   - каждый шаг валиден сам по себе (см. Step.Validate)
func (t *Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidTemplate)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("%w: template %q has no steps", ErrInvalidTemplate, t.Name)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: template %q: unknown priority %q", ErrInvalidTemplate, t.Name, t.Priority)
	}

	seen := make(map[string]bool, len(t.Steps))
	for _, step := range t.Steps {
		if err := step.Validate(); err != nil {
			return err
		}
		if seen[step.ID] {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalidTemplate, step.ID)
		}
		seen[step.ID] = true
	}

	return nil
}

// Deactivate помечает template как неактивный. Идемпотентно.
func (t *Template) Deactivate() {
	t.Active = false
	t.UpdatedAt = time.Now()
}

// Clone возвращает копию template с собственным слайсом шагов.
func (t *Template) Clone() *Template {
	c := *t
	c.Steps = make([]Step, len(t.Steps))
	copy(c.Steps, t.Steps)
	return &c
}
