// Package types holds the result types shared by the sandbox, the validation
// engine and the attempt controller.
package types

import (
	"errors"
	"fmt"
)

// FailureKind categorizes why an attempt (or the whole run) failed.
type FailureKind int

const (
	FatalSetupError FailureKind = iota
	EmptyGeneration
	ContractViolation
	ExecutionError
	EmptyResult
	ShapeMismatch
	ColumnMismatch
	ContentMismatch
)

func (k FailureKind) String() string {
	switch k {
	case FatalSetupError:
		return "FatalSetupError"
	case EmptyGeneration:
		return "EmptyGeneration"
	case ContractViolation:
		return "ContractViolation"
	case ExecutionError:
		return "ExecutionError"
	case EmptyResult:
		return "EmptyResult"
	case ShapeMismatch:
		return "ShapeMismatch"
	case ColumnMismatch:
		return "ColumnMismatch"
	case ContentMismatch:
		return "ContentMismatch"
	default:
		return "UnknownFailure"
	}
}

// Fatal reports whether the kind aborts the run instead of feeding a retry.
func (k FailureKind) Fatal() bool { return k == FatalSetupError }

func (k FailureKind) describe() string {
	switch k {
	case FatalSetupError:
		return "setup failed before any attempt"
	case EmptyGeneration:
		return "The model returned empty code"
	case ContractViolation:
		return "generated code does not expose the Parse entry point"
	case ExecutionError:
		return "generated code failed while running"
	case EmptyResult:
		return "Parser returned an empty table"
	case ShapeMismatch:
		return "Shape mismatch"
	case ColumnMismatch:
		return "Column mismatch"
	case ContentMismatch:
		return "Content mismatch"
	default:
		return "unknown failure"
	}
}

// Failure is the discriminated failure result of one attempt. Message is the
// free text handed to the next prompt and is never empty.
type Failure struct {
	Kind    FailureKind
	Message string
	Cause   error
}

// NewFailure builds a Failure, substituting a description of the kind when
// message is blank.
func NewFailure(kind FailureKind, message string) *Failure {
	if message == "" {
		message = kind.describe()
	}
	return &Failure{Kind: kind, Message: message}
}

// Failuref is NewFailure with formatting.
func Failuref(kind FailureKind, format string, args ...interface{}) *Failure {
	return NewFailure(kind, fmt.Sprintf(format, args...))
}

// WrapFailure builds a Failure carrying cause; the message defaults to the
// cause's text.
func WrapFailure(kind FailureKind, cause error, message string) *Failure {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	f := NewFailure(kind, message)
	f.Cause = cause
	return f
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Cause }

// IsKind reports whether err is (or wraps) a Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}

// Verdict is the outcome of comparing one produced table with the reference.
type Verdict struct {
	Pass    bool
	Reason  string
	Failure *Failure // nil when Pass
}

// PassVerdict is the single successful verdict.
func PassVerdict() Verdict {
	return Verdict{Pass: true, Reason: "Validation successful"}
}

// FailVerdict wraps a failure as a verdict.
func FailVerdict(f *Failure) Verdict {
	return Verdict{Pass: false, Reason: f.Message, Failure: f}
}
