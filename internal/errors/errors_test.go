package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrValidationError(t *testing.T) {
	err := &ErrValidation{Field: "amount", Message: "must be non-negative"}
	if got, want := err.Error(), "amount: must be non-negative"; got != want {
		t.Fatalf("unexpected error string: got %q want %q", got, want)
	}
}

func TestErrPersistenceUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := fmt.Errorf("saving: %w", &ErrPersistence{Op: "insert transaction", Err: cause})
	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	var pe *ErrPersistence
	if !stderrors.As(err, &pe) {
		t.Fatal("expected errors.As to find ErrPersistence")
	}
	if pe.Op != "insert transaction" {
		t.Fatalf("unexpected op: %q", pe.Op)
	}
}
