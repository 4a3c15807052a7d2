package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/engine"
	"github.com/shaiso/hrflow/internal/repo"
)

// Engine — операции движка, которые нужны планировщику.
// Реализуется engine.Engine.
type Engine interface {
	Start(ctx context.Context, req engine.StartRequest) (*domain.Instance, error)
	Recheck(ctx context.Context, id uuid.UUID) (*domain.Instance, error)
}

// ScheduleStore — операции хранилища schedules, которые нужны
// планировщику. Реализуется repo.ScheduleRepo.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, schedule *domain.Schedule) error
}

// WakeStore — выборка instances, которым пора перепроверить текущий
// шаг. Реализуется repo.InstanceRepo.
type WakeStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Instance, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Instance, error)
}

// Scheduler — планировщик с двумя обязанностями:
//   - создаёт instances для due schedules (cron / интервал)
//   - будит instances с истёкшим wake_at (delay, condition)
//
// Предполагается один активный экземпляр (leader election через
// pg advisory lock в main), поэтому дубликаты возможны только
// в окне падения между созданием instance и записью next_due_at —
// от них защищает idempotency key.
type Scheduler struct {
	schedules ScheduleStore
	instances WakeStore
	engine    Engine
	logger    *slog.Logger
	batchSize int
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules ScheduleStore
	Instances WakeStore
	Engine    Engine
	Logger    *slog.Logger
	BatchSize int // количество записей за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		instances: cfg.Instances,
		engine:    cfg.Engine,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Tick выполняет один тик планировщика.
// Ошибки отдельных записей не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	if err := s.runDueSchedules(ctx, now); err != nil {
		return err
	}
	return s.wakeDueInstances(ctx, now)
}

// runDueSchedules создаёт instances для due schedules.
func (s *Scheduler) runDueSchedules(ctx context.Context, now time.Time) error {
	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, started int
	for i := range schedules {
		sched := &schedules[i]

		instStarted, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if instStarted {
			started++
		}
	}

	s.logger.Info("schedules processed",
		"due", len(schedules),
		"processed", processed,
		"instances_started", started,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если instance был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// Idempotency key "{schedule_id}_{next_due_at_unix}": для одного
	// schedule и конкретного времени создаётся только один instance.
	idempKey := fmt.Sprintf("%s_%d", sched.ID, sched.NextDueAt.Unix())

	existing, err := s.instances.GetByIdempotencyKey(ctx, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var instStarted bool
	var instanceID uuid.UUID

	if existing != nil {
		s.logger.Debug("instance already exists (idempotency)",
			"schedule_id", sched.ID,
			"instance_id", existing.ID,
			"idempotency_key", idempKey,
		)
		instanceID = existing.ID
	} else {
		inst, err := s.engine.Start(ctx, engine.StartRequest{
			TemplateID:     sched.TemplateID,
			InitiatedBy:    sched.InitiatedBy,
			Subject:        sched.Subject,
			Payload:        sched.Payload,
			IdempotencyKey: idempKey,
		})
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				s.logger.Warn("template not found for schedule, skipping",
					"schedule_id", sched.ID,
					"template_id", sched.TemplateID,
				)
				return false, nil
			}
			return false, fmt.Errorf("start instance: %w", err)
		}

		s.logger.Info("started instance from schedule",
			"instance_id", inst.ID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"template_id", sched.TemplateID,
		)

		instanceID = inst.ID
		instStarted = true
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		// Schedule некорректный — next_due_at не трогаем
		return instStarted, nil
	}

	sched.RecordRun(instanceID, nextDue)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return instStarted, fmt.Errorf("update schedule: %w", err)
	}

	return instStarted, nil
}

// wakeDueInstances перепроверяет instances с истёкшим wake_at.
func (s *Scheduler) wakeDueInstances(ctx context.Context, now time.Time) error {
	due, err := s.instances.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due instances: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	s.logger.Debug("found due instances", "count", len(due))

	var woken int
	for i := range due {
		inst := &due[i]

		if _, err := s.engine.Recheck(ctx, inst.ID); err != nil {
			switch {
			case errors.Is(err, engine.ErrAlreadyTerminal),
				errors.Is(err, repo.ErrConflict):
				// Instance успел завершиться или изменился — не ошибка
			case errors.Is(err, engine.ErrSideEffect):
				s.logger.Warn("recheck hit side effect failure",
					"instance_id", inst.ID, "error", err)
			default:
				s.logger.Error("failed to recheck instance",
					"instance_id", inst.ID, "error", err)
			}
			continue
		}
		woken++
	}

	s.logger.Info("due instances rechecked",
		"due", len(due),
		"progressed", woken,
	)

	return nil
}
