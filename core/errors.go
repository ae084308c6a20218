package core

import "github.com/pkg/errors"

var (
	// ErrForbidden is returned when the actor lacks the role, ownership or grant needed.
	ErrForbidden = errors.New("permission denied")
	// ErrNotFound is returned when a message, thread, user or student does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when a transition is not valid from the current state.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrConflict is returned when a record changed between read and conditional write.
	ErrConflict = errors.New("record changed concurrently")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// IsForbidden, IsNotFound, IsInvalidState and IsConflict look through wrapped errors.
func IsForbidden(err error) bool    { return errors.Cause(err) == ErrForbidden }
func IsNotFound(err error) bool     { return errors.Cause(err) == ErrNotFound }
func IsInvalidState(err error) bool { return errors.Cause(err) == ErrInvalidState }
func IsConflict(err error) bool     { return errors.Cause(err) == ErrConflict }
