// Package domainerrors provides coded domain errors.
//
// Services return these so transport layers can map failures to responses
// without string matching. Stores return pkg/platform/sentinel errors;
// services translate them into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// Domain outcomes.
	CodeDuplicateEntry       Code = "duplicate_entry"
	CodeReferentialIntegrity Code = "referential_integrity"
	CodeNotFound             Code = "not_found"
	CodeValidation           Code = "validation"
	CodeHandlerFailure       Code = "handler_failure"

	// Ambient outcomes.
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
// For an Aggregate, any member carrying the code matches.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if errors.As(err, &de) && de.Code == code {
		return true
	}
	var agg *Aggregate
	if errors.As(err, &agg) {
		for _, member := range agg.Errors() {
			if HasCode(member, code) {
				return true
			}
		}
	}
	return false
}

// Is delegates to the standard library; kept so call sites need a single
// errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
