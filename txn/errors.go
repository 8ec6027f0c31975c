package txn

import (
	"errors"
	"fmt"
)

var ErrUpsertNotSupported = errors.New("insert if not found is not supported")

// UserError is a recoverable failure caused by the request itself.
// Inside a batch it is reported as a WriteError and does not affect sibling items.
type UserError struct {
	Message string
	Cause   error
}

func NewUserError(cause error) *UserError {
	return &UserError{Message: cause.Error(), Cause: cause}
}

func UserErrorf(format string, args ...interface{}) *UserError {
	err := fmt.Errorf(format, args...)
	return &UserError{Message: err.Error(), Cause: errors.Unwrap(err)}
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// FatalError signals a broken invariant or an infrastructure failure.
// It aborts the batch it occurs in.
type FatalError struct {
	Op    string
	Cause error
}

func NewFatalError(op string, cause error) *FatalError {
	return &FatalError{Op: op, Cause: cause}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: fatal error: %s", e.Op, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// IsUserError reports whether err carries a UserError.
// A FatalError is never considered a user error, even when it wraps one.
func IsUserError(err error) bool {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}
	var userErr *UserError
	return errors.As(err, &userErr)
}
