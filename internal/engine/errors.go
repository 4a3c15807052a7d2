package engine

import "errors"

// Ошибки операций движка.
var (
	// ErrWrongActor — роль актора не совпадает с required_role
	// текущего approval-шага.
	ErrWrongActor = errors.New("actor role mismatch")

	// ErrNotAwaitingApproval — instance не ждёт согласования:
	// текущий шаг не approval либо шагов больше нет.
	ErrNotAwaitingApproval = errors.New("instance is not awaiting approval")

	// ErrAlreadyTerminal — instance уже в финальном статусе.
	ErrAlreadyTerminal = errors.New("instance already in terminal status")

	// ErrSideEffect — сбой побочного эффекта шага (system action).
	// Instance остаётся активным, шаг можно повторить через Recheck.
	ErrSideEffect = errors.New("step side effect failed")
)
