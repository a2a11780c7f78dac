// Package errors provides the journal's error taxonomy.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors. Every JournalError unwraps to exactly one of them.
var (
	ErrNotFound          = errors.New("not found")
	ErrMissingField      = errors.New("missing field")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrReadOnly          = errors.New("closed plan is read-only")
	ErrConflict          = errors.New("conflict")
	ErrValidationRange   = errors.New("value out of range")
)

// Stable error codes rendered to callers.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeMissingField      = "MISSING_FIELD"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeReadOnly          = "READ_ONLY"
	CodeConflict          = "CONFLICT"
	CodeValidationRange   = "VALIDATION_RANGE"
	CodeInternal          = "INTERNAL"
)

// JournalError is a typed failure of a journal operation.
type JournalError struct {
	Kind    error
	Field   string
	Message string
}

func (e *JournalError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%v [%s]: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *JournalError) Unwrap() error {
	return e.Kind
}

// Code returns the stable code for the error kind.
func (e *JournalError) Code() string {
	return codeFor(e.Kind)
}

// NotFound reports an absent record, or one not owned by the caller.
func NotFound(entity string) *JournalError {
	return &JournalError{Kind: ErrNotFound, Message: entity + " not found"}
}

// MissingField reports a required input that is null, absent or blank.
func MissingField(field string) *JournalError {
	return &JournalError{Kind: ErrMissingField, Field: field, Message: field + " required"}
}

// InvalidTransition reports a failed state-machine guard.
func InvalidTransition(format string, args ...interface{}) *JournalError {
	return &JournalError{Kind: ErrInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// ReadOnly reports a mutation attempted on a closed plan.
func ReadOnly(planID string) *JournalError {
	return &JournalError{Kind: ErrReadOnly, Field: "plan_id", Message: fmt.Sprintf("plan %s is closed", planID)}
}

// Conflict reports a duplicate record.
func Conflict(format string, args ...interface{}) *JournalError {
	return &JournalError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// OutOfRange reports a value outside its accepted range or set.
func OutOfRange(field string, value interface{}, accepted string) *JournalError {
	return &JournalError{
		Kind:    ErrValidationRange,
		Field:   field,
		Message: fmt.Sprintf("%v is not accepted, must be %s", value, accepted),
	}
}

// Code returns the stable code of err, or CodeInternal for untyped errors.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, kind := range []error{ErrNotFound, ErrMissingField, ErrInvalidTransition, ErrReadOnly, ErrConflict, ErrValidationRange} {
		if errors.Is(err, kind) {
			return codeFor(kind)
		}
	}
	return CodeInternal
}

func codeFor(kind error) string {
	switch kind {
	case ErrNotFound:
		return CodeNotFound
	case ErrMissingField:
		return CodeMissingField
	case ErrInvalidTransition:
		return CodeInvalidTransition
	case ErrReadOnly:
		return CodeReadOnly
	case ErrConflict:
		return CodeConflict
	case ErrValidationRange:
		return CodeValidationRange
	default:
		return CodeInternal
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
