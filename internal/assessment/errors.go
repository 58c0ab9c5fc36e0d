package assessment

import (
	"errors"
	"fmt"
)

// Sentinel errors. Concrete errors returned by the engine match one of these
// through errors.Is.
var (
	ErrValidation   = errors.New("invalid question set")
	ErrPrecondition = errors.New("operation not allowed")
	ErrNoCredential = errors.New("no credential available for submission")
)

// Precondition causes, reachable through errors.Is on a *PreconditionError.
var (
	ErrAlreadyStarted   = errors.New("session already started")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrNotFinished      = errors.New("session has not finished")
	ErrNoPendingAnswer  = errors.New("no answer selected")
	ErrOptionOutOfRange = errors.New("option out of range")
)

// ValidationError reports a malformed question set. Index is the offending
// record, or -1 when the problem concerns the set as a whole.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid question set: %s", e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid question %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid question %d (%s): %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PreconditionError is returned when an operation is invoked in a state or
// with an argument it does not accept. The session is left untouched.
type PreconditionError struct {
	Op     string
	State  State
	Reason string
	Cause  error
}

func (e *PreconditionError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s in state %s: %s", e.Op, e.State, e.Reason)
}

func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

func (e *PreconditionError) Unwrap() error { return e.Cause }
