package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalid
	KindUnauthorized
	KindForbidden
	KindConflict
)

var (
	ErrNotFound     = &Error{kind: KindNotFound, msg: "not found"}
	ErrInvalid      = &Error{kind: KindInvalid, msg: "invalid request"}
	ErrUnauthorized = &Error{kind: KindUnauthorized, msg: "not authorized"}
	ErrForbidden    = &Error{kind: KindForbidden, msg: "forbidden"}
	ErrConflict     = &Error{kind: KindConflict, msg: "conflict"}
)

// Error is a classified error carrying the message shown to API callers.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

// Is matches any *Error of the same kind, so sentinels built with New
// compare equal to the generic ErrNotFound etc.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.kind == e.kind && (t.msg == e.msg || isGeneric(t))
}

func isGeneric(e *Error) bool {
	switch e {
	case ErrNotFound, ErrInvalid, ErrUnauthorized, ErrForbidden, ErrConflict:
		return true
	}
	return false
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func NotFound(format string, args ...any) error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Invalid(format string, args ...any) error {
	return New(KindInvalid, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) error {
	return New(KindUnauthorized, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return New(KindForbidden, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// Message returns the caller-facing message of the first *Error in err's chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}
