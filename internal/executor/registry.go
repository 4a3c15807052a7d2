package executor

import (
	"fmt"

	"github.com/shaiso/hrflow/internal/domain"
)

// Registry — реестр исполнителей по типу шага.
//
// Заполняется один раз при старте процесса и дальше только читается,
// поэтому без мьютекса.
type Registry struct {
	executors map[domain.StepKind]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.StepKind]Executor),
	}
}

// Register регистрирует исполнитель в реестре.
// Если исполнитель для этого типа уже существует, он будет перезаписан.
func (r *Registry) Register(e Executor) {
	r.executors[e.Kind()] = e
}

// Get возвращает исполнитель по типу шага.
// Возвращает ErrExecutorNotFound, если исполнитель не найден.
func (r *Registry) Get(kind domain.StepKind) (Executor, error) {
	e, exists := r.executors[kind]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrExecutorNotFound, kind)
	}
	return e, nil
}

// Has проверяет, зарегистрирован ли исполнитель.
func (r *Registry) Has(kind domain.StepKind) bool {
	_, exists := r.executors[kind]
	return exists
}
