package engine

import (
	"sync"

	"github.com/google/uuid"
)

// instanceLocks — набор мьютексов по ID instance.
//
// Все мутирующие операции движка выполняются под эксклюзивной
// блокировкой instance: два конкурентных Approve не могут пройти
// один и тот же шаг дважды. Записи со счётчиком ссылок удаляются,
// когда блокировку никто не держит и не ждёт.
type instanceLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]*lockRef
}

type lockRef struct {
	mu   sync.Mutex
	refs int
}

func newInstanceLocks() *instanceLocks {
	return &instanceLocks{
		held: make(map[uuid.UUID]*lockRef),
	}
}

// Lock блокирует instance и возвращает функцию разблокировки.
func (l *instanceLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	ref, exists := l.held[id]
	if !exists {
		ref = &lockRef{}
		l.held[id] = ref
	}
	ref.refs++
	l.mu.Unlock()

	ref.mu.Lock()

	return func() {
		ref.mu.Unlock()

		l.mu.Lock()
		ref.refs--
		if ref.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
