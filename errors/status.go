package errors

import (
	stderrors "errors"
	"fmt"
)

// StatusError is a client-visible protocol error. The handler turns it into
// an HTML error page with Code and ShortMsg on the status line.
type StatusError struct {
	Code     int
	ShortMsg string
	LongMsg  string
	Cause    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s: %s", e.Code, e.ShortMsg, e.LongMsg, e.Cause)
}

// NotImplemented is returned for any method other than GET
func NotImplemented(method string) *StatusError {
	return &StatusError{
		Code:     501,
		ShortMsg: "Not Implemented",
		LongMsg:  "Tiny does not implement this method",
		Cause:    method,
	}
}

// NotFound is returned when the resolved target does not exist
func NotFound(path string) *StatusError {
	return &StatusError{
		Code:     404,
		ShortMsg: "Not Found",
		LongMsg:  "Tiny couldn't find this file",
		Cause:    path,
	}
}

// Forbidden is returned when the target fails the permission policy
func Forbidden(path, reason string) *StatusError {
	return &StatusError{
		Code:     403,
		ShortMsg: "Forbidden",
		LongMsg:  reason,
		Cause:    path,
	}
}

// As and Is forward to the standard library so callers importing this
// package under its own name don't need both.
func As(err error, target any) bool { return stderrors.As(err, target) }

func Is(err, target error) bool { return stderrors.Is(err, target) }
