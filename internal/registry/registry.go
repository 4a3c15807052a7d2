package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/hrflow/internal/domain"
	"github.com/shaiso/hrflow/internal/repo"
)

// ErrTemplateInactive — template деактивирован, новые instances
// создавать нельзя.
var ErrTemplateInactive = errors.New("template is inactive")

// TemplateStore — хранилище templates.
// Реализуется repo.TemplateRepo.
type TemplateStore interface {
	Create(ctx context.Context, tpl *domain.Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error)
	List(ctx context.Context, filter repo.TemplateFilter) ([]domain.Template, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// Registry — реестр workflow templates.
//
// Валидирует templates при регистрации и кэширует прочитанные:
// движок резолвит template на каждом Start, а templates меняются
// редко (регистрация и деактивация).
type Registry struct {
	store TemplateStore

	mu    sync.RWMutex
	cache map[uuid.UUID]*domain.Template
}

// New создаёт Registry поверх хранилища.
func New(store TemplateStore) *Registry {
	return &Registry{
		store: store,
		cache: make(map[uuid.UUID]*domain.Template),
	}
}

// Register валидирует и сохраняет новый template.
// Невалидный template отклоняется с domain.ErrInvalidTemplate.
func (r *Registry) Register(ctx context.Context, tpl *domain.Template) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	now := time.Now()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	tpl.Active = true
	if tpl.Priority == "" {
		tpl.Priority = domain.PriorityMedium
	}

	if err := tpl.Validate(); err != nil {
		return err
	}

	if err := r.store.Create(ctx, tpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}

	r.mu.Lock()
	r.cache[tpl.ID] = tpl.Clone()
	r.mu.Unlock()

	return nil
}

// Get возвращает template по ID независимо от активности.
// Неактивные templates остаются доступными: по ним отображается
// история уже созданных instances.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	r.mu.RLock()
	cached, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	tpl, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[id] = tpl.Clone()
	r.mu.Unlock()

	return tpl, nil
}

// GetActive возвращает template по ID, если он активен.
// Для неактивного возвращает ErrTemplateInactive.
func (r *Registry) GetActive(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	tpl, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tpl.Active {
		return nil, fmt.Errorf("%w: %s", ErrTemplateInactive, id)
	}
	return tpl, nil
}

// Deactivate выключает template. Идемпотентно: повторная деактивация
// не считается ошибкой.
func (r *Registry) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := r.store.SetActive(ctx, id, false); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()

	return nil
}

// List возвращает список templates с фильтрацией.
func (r *Registry) List(ctx context.Context, filter repo.TemplateFilter) ([]domain.Template, error) {
	return r.store.List(ctx, filter)
}
