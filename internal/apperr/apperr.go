package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the operation boundary.
type Kind string

const (
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindInvalid      Kind = "invalid"
)

// Error is a typed outcome surfaced to callers; operations never leak
// partial side effects alongside one.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a duplicate where at most one is allowed.
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

// NotFound reports a missing or wrong-state reference.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// Forbidden reports a failed role or enrollment check.
func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

// Unauthorized reports a bad identity or an invalid/expired token.
func Unauthorized(format string, args ...any) *Error { return newf(KindUnauthorized, format, args...) }

// Invalid reports malformed input.
func Invalid(format string, args ...any) *Error { return newf(KindInvalid, format, args...) }

// KindOf returns the kind of err, or "" for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps an error to the status a handler should answer with.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
