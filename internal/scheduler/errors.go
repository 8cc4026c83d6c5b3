package scheduler

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("workflow not found")
	ErrTransientUnavailable = errors.New("scheduler temporarily unavailable")
	ErrMalformedResponse    = errors.New("malformed scheduler response")
)

// QueryError is the typed failure of one Adapter query.
type QueryError struct {
	Kind error
	Msg  string
	Err  error
}

func (e *QueryError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *QueryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound builds an ErrNotFound query error.
func NotFound(format string, args ...any) error {
	return &QueryError{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Transient builds an ErrTransientUnavailable query error around cause.
func Transient(cause error, format string, args ...any) error {
	return &QueryError{Kind: ErrTransientUnavailable, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Malformed builds an ErrMalformedResponse query error around cause.
func Malformed(cause error, format string, args ...any) error {
	return &QueryError{Kind: ErrMalformedResponse, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// IsTransient reports whether err should be retried. Context deadline
// expiry counts as transient; cancellation does not.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
