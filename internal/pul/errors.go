package pul

import (
	"errors"
	"fmt"

	"github.com/ldoblies/ijsoniq/internal/target"
)

// ErrorCode categorizes PUL errors.
type ErrorCode string

const (
	// CodeStructuralConflict: two primitives need the same unique
	// location and no merge rule applies.
	CodeStructuralConflict ErrorCode = "STRUCTURAL_CONFLICT"

	// CodeKeyConflict: insert_into_object primitives merge overlapping keys.
	CodeKeyConflict ErrorCode = "KEY_CONFLICT"

	// CodeAggregation: a primitive could not be projected onto the value
	// held by another primitive.
	CodeAggregation ErrorCode = "AGGREGATION_FAILED"

	// CodeDocumentOp: a document operation addressed a missing location
	// or one of the wrong shape.
	CodeDocumentOp ErrorCode = "DOCUMENT_OP"

	// CodeContractViolation: a component received input it never accepts.
	CodeContractViolation ErrorCode = "CONTRACT_VIOLATION"

	// CodeInvalidInput: a primitive is malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Error is the error carried by a poisoned PUL or returned by the applier.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Kind is the primitive kind involved.
	Kind Kind

	// Target is the location involved, when known.
	Target target.Target

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind >= 0 && e.Kind < numKinds {
		msg = fmt.Sprintf("%s: %s %s", e.Code, e.Kind, e.Message)
	}
	if e.Target.Collection != "" {
		msg += fmt.Sprintf(" (target=%s)", e.Target)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, u *Primitive, format string, args ...any) *Error {
	return &Error{Code: code, Kind: u.Kind, Target: u.Target, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code ErrorCode, u *Primitive, err error, format string, args ...any) *Error {
	e := newError(code, u, format, args...)
	e.Err = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsConflict reports a structural or key conflict.
func IsConflict(err error) bool {
	code := CodeOf(err)
	return code == CodeStructuralConflict || code == CodeKeyConflict
}

// IsContractViolation reports a programming-contract violation.
func IsContractViolation(err error) bool {
	return CodeOf(err) == CodeContractViolation
}

// IsAggregationError reports a failed aggregation.
func IsAggregationError(err error) bool {
	return CodeOf(err) == CodeAggregation
}
