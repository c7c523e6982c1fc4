package core

import (
	"context"
	"errors"
	"fmt"
)

// OutcomeKind tags a submission result. Every kind except KindSuccess is a failure.
type OutcomeKind string

const (
	KindSuccess           OutcomeKind = "success"
	KindConfig            OutcomeKind = "config_error"
	KindSerialization     OutcomeKind = "serialization_error"
	KindCancelled         OutcomeKind = "cancelled"
	KindNetworkTimeout    OutcomeKind = "network_timeout"
	KindNetworkError      OutcomeKind = "network_error"
	KindAPIRejected       OutcomeKind = "api_rejected"
	KindEmptyResponse     OutcomeKind = "empty_response"
	KindUnknown           OutcomeKind = "unknown_error"
	KindInvalidSubmission OutcomeKind = "invalid_submission"
)

// Error is a failure tagged with its kind.
type Error struct {
	Kind OutcomeKind
	Op   string
	Err  error
}

// NewError builds a kind-tagged error for op.
func NewError(kind OutcomeKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kind-tagged error from a format string.
func Errorf(kind OutcomeKind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Op == "" && other.Err == nil
}

// KindOf classifies err. Context errors map to cancelled or network_timeout.
func KindOf(err error) OutcomeKind {
	if err == nil {
		return KindSuccess
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	switch {
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return KindNetworkTimeout
	default:
		return KindUnknown
	}
}

// Failed reports whether the kind is a failure.
func (k OutcomeKind) Failed() bool {
	return k != KindSuccess
}
