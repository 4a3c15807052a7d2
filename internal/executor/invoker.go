package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/shaiso/hrflow/internal/domain"
)

// ActionFunc — реализация одного системного действия.
type ActionFunc func(ctx context.Context, inst *domain.Instance) error

// FuncInvoker — ActionInvoker на основе карты зарегистрированных функций.
//
// Действия регистрируются при старте процесса по строковому ref,
// тому самому, который templates указывают в action_ref.
type FuncInvoker struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
}

// NewFuncInvoker создаёт пустой FuncInvoker.
func NewFuncInvoker() *FuncInvoker {
	return &FuncInvoker{
		actions: make(map[string]ActionFunc),
	}
}

// RegisterAction регистрирует действие по ref.
func (i *FuncInvoker) RegisterAction(ref string, fn ActionFunc) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.actions[ref] = fn
}

// Invoke выполняет действие по ref.
// Возвращает ErrActionNotFound для незарегистрированного ref.
func (i *FuncInvoker) Invoke(ctx context.Context, ref string, inst *domain.Instance) error {
	i.mu.RLock()
	fn, exists := i.actions[ref]
	i.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrActionNotFound, ref)
	}
	return fn(ctx, inst)
}

// ConditionFunc — реализация одного предиката.
type ConditionFunc func(ctx context.Context, inst *domain.Instance) (bool, error)

// FuncSource — ConditionSource на основе карты зарегистрированных функций.
type FuncSource struct {
	mu         sync.RWMutex
	conditions map[string]ConditionFunc
}

// NewFuncSource создаёт пустой FuncSource.
func NewFuncSource() *FuncSource {
	return &FuncSource{
		conditions: make(map[string]ConditionFunc),
	}
}

// RegisterCondition регистрирует предикат по ref.
func (s *FuncSource) RegisterCondition(ref string, fn ConditionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions[ref] = fn
}

// Evaluate вычисляет предикат по ref.
// Возвращает ErrConditionNotFound для незарегистрированного ref.
func (s *FuncSource) Evaluate(ctx context.Context, ref string, inst *domain.Instance) (bool, error) {
	s.mu.RLock()
	fn, exists := s.conditions[ref]
	s.mu.RUnlock()

	if !exists {
		return false, fmt.Errorf("%w: %s", ErrConditionNotFound, ref)
	}
	return fn(ctx, inst)
}
