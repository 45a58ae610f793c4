// Package apperr classifies failures so transports and retry loops can react
// to the kind of error rather than to individual sentinels.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindConflict   Kind = "conflict"
	KindCoupon     Kind = "coupon"
	KindNotFound   Kind = "not_found"
)

// Error carries a Kind plus an optional machine-readable reason.
type Error struct {
	Kind      Kind
	Op        string
	Reason    string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Storage wraps a persistence failure. Transient failures may be retried.
func Storage(op string, err error, transient bool) error {
	return &Error{Kind: KindStorage, Op: op, Err: err, Transient: transient}
}

func Conflict(op string, err error) error {
	return &Error{Kind: KindConflict, Op: op, Err: err}
}

func Coupon(op string, reason string, err error) error {
	return &Error{Kind: KindCoupon, Op: op, Reason: reason, Err: err}
}

func NotFound(op string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// KindOf reports the classification of err, or "" when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindStorage && e.Transient
	}
	return false
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Validationf is shorthand for a validation error with a formatted message.
func Validationf(op, format string, args ...any) error {
	return Validation(op, fmt.Errorf(format, args...))
}
