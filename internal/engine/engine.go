package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/audit"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/executor"
	"github.com/shaiso/hrflow/internal/registry"
)

// InstanceStore — хранилище instances.
// Реализуется repo.InstanceRepo.
//
// Update принимает состояние instance на момент чтения (prevIndex,
// prevStatus) и обязан отклонить запись с repo.ErrConflict, если
// запись успела измениться.
type InstanceStore interface {
	Create(ctx context.Context, inst *domain.Instance) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Instance, error)
	Update(ctx context.Context, inst *domain.Instance, prevIndex int, prevStatus domain.InstanceStatus) error
	List(ctx context.Context, filter domain.InstanceFilter) ([]domain.Instance, error)
}

// EventPublisher — публикация событий жизненного цикла во внешнюю шину.
// Опционален: nil выключает публикацию.
type EventPublisher interface {
	PublishInstanceCompleted(ctx context.Context, inst *domain.Instance) error
}

// Engine — движок жизненного цикла workflow instances.
//
// Все операции над instance выполняются под его эксклюзивной
// блокировкой, изменения сохраняются одной записью в store.
// Терминальные статусы необратимы.
type Engine struct {
	templates *registry.Registry
	store     InstanceStore
	executors *executor.Registry
	audit     audit.Emitter
	events    EventPublisher

	locks  *instanceLocks
	now    func() time.Time
	logger *slog.Logger
}

// Config — конфигурация Engine.
type Config struct {
	Templates *registry.Registry
	Store     InstanceStore
	Executors *executor.Registry
	Audit     audit.Emitter

	// Events — публикация instance.completed; nil выключает.
	Events EventPublisher

	// Now — источник времени; nil означает time.Now.
	// Подменяется в тестах delay-шагов.
	Now func() time.Time

	Logger *slog.Logger
}

// New создаёт новый Engine.
func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		templates: cfg.Templates,
		store:     cfg.Store,
		executors: cfg.Executors,
		audit:     cfg.Audit,
		events:    cfg.Events,
		locks:     newInstanceLocks(),
		now:       now,
		logger:    logger,
	}
}

// StartRequest — параметры создания instance.
type StartRequest struct {
	// TemplateID — активный template, из которого создаётся instance.
	TemplateID uuid.UUID

	// InitiatedBy — инициатор процесса.
	InitiatedBy string

	// Subject — описание кейса.
	Subject string

	// Payload — непрозрачные данные инициатора.
	Payload map[string]any

	// Priority — переопределение приоритета template; пустое значение
	// наследует приоритет template.
	Priority domain.Priority

	// IdempotencyKey — ключ дедупликации для автоматических запусков
	// (scheduler). Пустой для запусков вручную.
	IdempotencyKey string

	// DueAt — срок завершения процесса.
	DueAt *time.Time
}

// Start создаёт instance из активного template и сразу продвигает его
// через автоматические шаги до первой точки ожидания.
//
// Для несуществующего template возвращает repo.ErrNotFound, для
// неактивного — registry.ErrTemplateInactive.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*domain.Instance, error) {
	tpl, err := e.templates.GetActive(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	priority := req.Priority
	if priority == "" {
		priority = tpl.Priority
	}

	inst := &domain.Instance{
		ID:             uuid.New(),
		TemplateID:     tpl.ID,
		TemplateName:   tpl.Name,
		InitiatedBy:    req.InitiatedBy,
		InitiatedAt:    now,
		Subject:        req.Subject,
		Payload:        req.Payload,
		Priority:       priority,
		IdempotencyKey: req.IdempotencyKey,
		DueAt:          req.DueAt,
		Status:         domain.InstanceStatusPending,
		Steps:          domain.SnapshotSteps(tpl.Steps),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	event := domain.NewAuditEvent(inst.ID, domain.AuditInstanceStarted, now)
	event.Actor = req.InitiatedBy
	event.Detail = req.Subject
	e.emit(ctx, event)

	unlock := e.locks.Lock(inst.ID)
	defer unlock()

	if err := e.sweep(ctx, inst); err != nil {
		if !errors.Is(err, ErrSideEffect) {
			return nil, err
		}
		// Instance создан; сбой побочного эффекта оставляет его
		// активным, повтор — через Recheck.
		e.logger.Warn("initial sweep stopped on failure",
			"instance_id", inst.ID, "error", err)
	}

	return inst.Clone(), nil
}

// Approve завершает текущий approval-шаг от имени actorRole
// и продвигает instance дальше.
func (e *Engine) Approve(ctx context.Context, id uuid.UUID, actorRole, comment string) (*domain.Instance, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	inst, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkApprovable(inst, actorRole); err != nil {
		return nil, err
	}

	now := e.now()
	step := inst.CurrentStep()
	prevIndex, prevStatus := inst.CurrentStepIndex, inst.Status

	inst.MarkInProgress(now)
	inst.CompleteCurrentStep(now, actorRole, comment)

	event := domain.NewAuditEvent(inst.ID, domain.AuditStepCompleted, now)
	event.StepID = step.ID
	event.Actor = actorRole
	event.Detail = comment
	e.emit(ctx, event)

	if err := e.sweepFrom(ctx, inst, prevIndex, prevStatus); err != nil {
		if !errors.Is(err, ErrSideEffect) {
			return nil, err
		}
		// Согласование состоялось и записано; дальнейшее продвижение
		// упёрлось в сбой побочного эффекта — это не ошибка Approve.
		e.logger.Warn("sweep after approve stopped on failure",
			"instance_id", inst.ID, "error", err)
	}

	return inst.Clone(), nil
}

// Reject отклоняет instance на текущем approval-шаге.
// Текущий шаг не помечается завершённым, instance переходит в REJECTED.
func (e *Engine) Reject(ctx context.Context, id uuid.UUID, actorRole, comment string) (*domain.Instance, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	inst, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkApprovable(inst, actorRole); err != nil {
		return nil, err
	}

	now := e.now()
	step := inst.CurrentStep()
	prevIndex, prevStatus := inst.CurrentStepIndex, inst.Status

	inst.MarkRejected(now)

	if err := e.store.Update(ctx, inst, prevIndex, prevStatus); err != nil {
		return nil, fmt.Errorf("persist rejection: %w", err)
	}

	event := domain.NewAuditEvent(inst.ID, domain.AuditInstanceRejected, now)
	event.StepID = step.ID
	event.Actor = actorRole
	event.Detail = comment
	e.emit(ctx, event)

	return inst.Clone(), nil
}

// Cancel административно отменяет активный instance на любом шаге.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*domain.Instance, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	inst, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTerminal, inst.Status)
	}

	now := e.now()
	prevIndex, prevStatus := inst.CurrentStepIndex, inst.Status

	inst.MarkCancelled(now)

	if err := e.store.Update(ctx, inst, prevIndex, prevStatus); err != nil {
		return nil, fmt.Errorf("persist cancellation: %w", err)
	}

	event := domain.NewAuditEvent(inst.ID, domain.AuditInstanceCancelled, now)
	event.Actor = actor
	event.Detail = reason
	e.emit(ctx, event)

	return inst.Clone(), nil
}

// Recheck принудительно перепроверяет текущий шаг instance: опрос
// condition, проверка delay, повтор упавшего system action.
// Идемпотентен: если продвигаться некуда, состояние не меняется.
//
// В отличие от Approve, сбой побочного эффекта возвращается вызывающему
// (обёрнутым в ErrSideEffect): Recheck и есть механизм повтора.
func (e *Engine) Recheck(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	inst, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.IsTerminal() {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTerminal, inst.Status)
	}

	if err := e.sweep(ctx, inst); err != nil {
		return inst.Clone(), err
	}
	return inst.Clone(), nil
}

// Get возвращает instance по ID.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	inst, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// List возвращает список instances с фильтрацией.
func (e *Engine) List(ctx context.Context, filter domain.InstanceFilter) ([]domain.Instance, error) {
	return e.store.List(ctx, filter)
}

// checkApprovable проверяет, что instance ждёт согласования
// именно от actorRole. Порядок проверок фиксирован: терминальность,
// затем тип шага, затем роль.
func checkApprovable(inst *domain.Instance, actorRole string) error {
	if inst.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrAlreadyTerminal, inst.Status)
	}
	step := inst.CurrentStep()
	if step == nil || step.Kind != domain.StepKindApproval {
		return ErrNotAwaitingApproval
	}
	if step.RequiredRole != actorRole {
		return fmt.Errorf("%w: step requires %q, got %q",
			ErrWrongActor, step.RequiredRole, actorRole)
	}
	return nil
}

// emit отправляет audit-событие. Сбой логируется и не прерывает
// операцию: движок работает при недоступном audit-канале.
func (e *Engine) emit(ctx context.Context, event domain.AuditEvent) {
	if err := e.audit.Record(ctx, event); err != nil {
		e.logger.Error("audit record failed",
			"instance_id", event.InstanceID,
			"kind", event.Kind,
			"error", err)
	}
}
