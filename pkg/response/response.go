package response

import (
	"errors"
)

type Error struct {
	Code   int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

// NewErrorWithReason attaches a machine readable reason that is returned to clients as "code".
func NewErrorWithReason(code int, reason string, err string) error {
	return &Error{Code: code, Reason: reason, Err: errors.New(err)}
}
