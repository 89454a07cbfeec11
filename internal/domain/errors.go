package domain

import (
	"errors"
	"fmt"
)

// ErrKind classifies failures so every caller can apply a single documented
// policy instead of inspecting error strings.
//
// Policy table:
//
//	KindValidation   surface to caller, never published to the log
//	KindUnauthorized surface, no state mutated
//	KindForbidden    surface, no state mutated
//	KindNotFound     surface
//	KindCapacity     surface, no partial participant rows
//	KindDuplicate    drop silently (idempotent absorption of redelivery)
//	KindTransient    bounded retry at the edge, then surface
type ErrKind int

const (
	KindUnknown ErrKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindCapacity
	KindDuplicate
	KindTransient
)

func (k ErrKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindDuplicate:
		return "duplicate"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error carries an error kind, the operation that produced it, and an
// optional wrapped cause.
type Error struct {
	Kind ErrKind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a kinded error without a cause.
func E(kind ErrKind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a kinded error around a cause.
func Wrap(kind ErrKind, op, msg string, err error) error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or KindUnknown.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrKind) bool {
	return KindOf(err) == kind
}
