package errors

import "fmt"

// ErrValidation rejects a request before any mutation happens; callers are
// guaranteed zero side effects.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Field + ": " + e.Message
}

// ErrPersistence wraps a storage failure raised inside a unit of work. The
// unit of work has been rolled back by the time it surfaces.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrStateInconsistency signals a violated invariant between the in-memory
// store and persisted state. It is a defect signal, never recovered from.
type ErrStateInconsistency struct {
	Message string
}

func (e *ErrStateInconsistency) Error() string {
	return "state inconsistency: " + e.Message
}
