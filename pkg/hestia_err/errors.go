// pkg/hestia_err/errors.go

package hestia_err

import (
	"errors"

	cerr "github.com/cockroachdb/errors"
)

// UserError marks an error as expected and user-fixable. These are reported
// softly (warning, tip) rather than as internal failures.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}

// NewUserError creates an expected user error with a formatted message.
func NewUserError(format string, args ...interface{}) error {
	return &UserError{cause: cerr.Newf(format, args...)}
}

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}
