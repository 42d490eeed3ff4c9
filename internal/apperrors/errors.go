package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates that input data failed validation checks.
	ErrValidation = errors.New("validation error")
	// ErrNotFound indicates that a referenced entry, bank or currency does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates a unique-key violation on create.
	ErrDuplicate = errors.New("resource already exists")
	// ErrStateConflict indicates an illegal workflow transition.
	ErrStateConflict = errors.New("state conflict")
	// ErrPermission indicates an operation attempted without the required privilege.
	ErrPermission = errors.New("permission denied")
	// ErrDependencyMissing indicates a required catalog item is absent. It is a
	// configuration fault, not a user error.
	ErrDependencyMissing = errors.New("required dependency missing")
)

// TransitionError reports a workflow transition that the state machine does not allow.
type TransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition %s -> %s for %s", e.Entity, e.From, e.To, e.ID)
}

// Is lets callers match a TransitionError with errors.Is(err, ErrStateConflict).
func (e *TransitionError) Is(target error) bool {
	return target == ErrStateConflict
}
