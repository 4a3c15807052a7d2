package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/executor"
)

// autoActor — значение CompletedBy для шагов, завершённых движком.
const autoActor = "system"

// sweep продвигает instance через автоматические шаги, начиная от
// состояния, в котором он был прочитан из store.
func (e *Engine) sweep(ctx context.Context, inst *domain.Instance) error {
	return e.sweepFrom(ctx, inst, inst.CurrentStepIndex, inst.Status)
}

// sweepFrom — ядро движка: цикл по шагам до первой точки ожидания.
//
// Для каждого текущего шага вызывается его executor:
//   - Done            — шаг завершается, цикл идёт к следующему
//   - не Done         — цикл останавливается, WakeAt запоминается
//   - ошибка          — step.failed, состояние сохраняется, наружу
//     уходит ErrSideEffect
//
// Когда шаги закончились, instance переходит в COMPLETED. Изменения
// сохраняются одной записью Update с проверкой (prevIndex, prevStatus):
// конкурентное изменение даст repo.ErrConflict, а не потерянное
// обновление.
func (e *Engine) sweepFrom(ctx context.Context, inst *domain.Instance, prevIndex int, prevStatus domain.InstanceStatus) error {
	if inst.IsTerminal() {
		return nil
	}

	now := e.now()
	prevWake := inst.WakeAt
	inst.WakeAt = nil
	changed := false

	for {
		step := inst.CurrentStep()
		if step == nil {
			break
		}

		inst.MarkInProgress(now)

		if step.StartedAt == nil {
			step.StartedAt = &now
			changed = true

			event := domain.NewAuditEvent(inst.ID, domain.AuditStepStarted, now)
			event.StepID = step.ID
			e.emit(ctx, event)
		}

		exec, err := e.executors.Get(step.Kind)
		if err != nil {
			// Template с неизвестным типом шага не проходит валидацию,
			// сюда можно попасть только при неполной сборке реестра.
			return e.failStep(ctx, inst, step, prevIndex, prevStatus, now, err)
		}

		res, err := exec.Execute(ctx, &executor.Request{
			Instance: inst,
			Step:     step,
			Now:      now,
		})
		if err != nil {
			return e.failStep(ctx, inst, step, prevIndex, prevStatus, now, err)
		}

		if !res.Done {
			inst.WakeAt = res.WakeAt
			break
		}

		inst.CompleteCurrentStep(now, autoActor, "")
		changed = true

		event := domain.NewAuditEvent(inst.ID, domain.AuditStepCompleted, now)
		event.StepID = step.ID
		event.Actor = autoActor
		e.emit(ctx, event)
	}

	if inst.CurrentStep() == nil && !inst.IsTerminal() {
		inst.MarkCompleted(now)
		changed = true

		e.emit(ctx, domain.NewAuditEvent(inst.ID, domain.AuditInstanceCompleted, now))

		if e.events != nil {
			if err := e.events.PublishInstanceCompleted(ctx, inst); err != nil {
				e.logger.Warn("publish instance completed failed",
					"instance_id", inst.ID, "error", err)
			}
		}
	}

	if !changed && equalWake(prevWake, inst.WakeAt) && inst.CurrentStepIndex == prevIndex && inst.Status == prevStatus {
		// Продвижения не было (recheck уперся в ту же точку ожидания) —
		// запись в store не нужна.
		inst.WakeAt = prevWake
		return nil
	}

	if err := e.store.Update(ctx, inst, prevIndex, prevStatus); err != nil {
		return fmt.Errorf("persist instance: %w", err)
	}
	return nil
}

// failStep фиксирует сбой побочного эффекта: step.failed в audit,
// состояние instance сохраняется (шаг остаётся текущим, WakeAt снят —
// повтор только явным Recheck).
func (e *Engine) failStep(ctx context.Context, inst *domain.Instance, step *domain.InstanceStep, prevIndex int, prevStatus domain.InstanceStatus, now time.Time, cause error) error {
	event := domain.NewAuditEvent(inst.ID, domain.AuditStepFailed, now)
	event.StepID = step.ID
	event.Detail = cause.Error()
	e.emit(ctx, event)

	if err := e.store.Update(ctx, inst, prevIndex, prevStatus); err != nil {
		e.logger.Error("persist after step failure failed",
			"instance_id", inst.ID, "error", err)
	}

	return fmt.Errorf("%w: step %q: %v", ErrSideEffect, step.ID, cause)
}

// equalWake сравнивает два указателя на время по значению.
func equalWake(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
