// Package exception defines the error taxonomy of chunkbatch.
// Every framework error is a *BatchError carrying the module it came from and
// a Kind that tells the step and job engines how far the failure reaches.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a BatchError.
type Kind int

const (
	// KindUnknown is used for errors that were not classified at their origin.
	KindUnknown Kind = iota
	// KindValidation is a malformed input record. Fatal to the current chunk.
	KindValidation
	// KindDataAccess is an I/O failure in a source or sink. Fatal to the step, never retried.
	KindDataAccess
	// KindBusinessRule is raised by application code to fail a step and drive a job branch.
	KindBusinessRule
	// KindRemoteService is a non-success answer from an enrichment service. Logged and degraded.
	KindRemoteService
	// KindConfiguration is an invalid component or job definition.
	KindConfiguration
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindDataAccess:
		return "DataAccessError"
	case KindBusinessRule:
		return "BusinessRuleError"
	case KindRemoteService:
		return "RemoteServiceError"
	case KindConfiguration:
		return "ConfigurationError"
	}
	return "BatchError"
}

// BatchError is the error type returned by framework components.
type BatchError struct {
	// Module is the component that raised the error (e.g. "reader", "writer", "chunk_step").
	Module string
	// Message is a short description.
	Message string
	// Kind is the taxonomy class.
	Kind Kind
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

// NewBatchError creates a BatchError of the given kind.
func NewBatchError(module string, kind Kind, message string, originalErr error) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return &BatchError{
		Module:      module,
		Message:     message,
		Kind:        kind,
		OriginalErr: originalErr,
		StackTrace:  string(buf[:n]),
	}
}

// NewBatchErrorf creates an unclassified BatchError from a format string.
// A trailing error argument is wrapped as the cause.
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var cause error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			cause = err
			a = a[:len(a)-1]
		}
	}
	return NewBatchError(module, KindUnknown, fmt.Sprintf(format, a...), cause)
}

// NewValidationError wraps a record-level parse or validation failure.
func NewValidationError(module, message string, err error) *BatchError {
	return NewBatchError(module, KindValidation, message, err)
}

// NewDataAccessError wraps a source or sink I/O failure.
func NewDataAccessError(module, message string, err error) *BatchError {
	return NewBatchError(module, KindDataAccess, message, err)
}

// NewBusinessRuleError reports a rule violation raised by application code.
func NewBusinessRuleError(module, message string) *BatchError {
	return NewBatchError(module, KindBusinessRule, message, nil)
}

// NewRemoteServiceError reports a non-success response from a remote collaborator.
func NewRemoteServiceError(module, message string, err error) *BatchError {
	return NewBatchError(module, KindRemoteService, message, err)
}

// NewConfigurationError reports an invalid component or job definition.
func NewConfigurationError(module, message string) *BatchError {
	return NewBatchError(module, KindConfiguration, message, nil)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// Is matches another *BatchError with the same Kind and Module, so callers can
// compare against a template such as &BatchError{Kind: KindDataAccess}.
// Empty Module in the target matches any module.
func (e *BatchError) Is(target error) bool {
	t, ok := target.(*BatchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Module == "" || t.Module == e.Module)
}

// KindOf returns the Kind of the outermost BatchError in err's chain,
// or KindUnknown when there is none.
func KindOf(err error) Kind {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsKind reports whether any BatchError in err's chain has kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		var be *BatchError
		if !errors.As(err, &be) {
			return false
		}
		if be.Kind == k {
			return true
		}
		err = be.OriginalErr
	}
	return false
}

// IsFatalToStep reports whether err must end the step. Remote service errors
// are the only kind that a chunk survives.
func IsFatalToStep(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) != KindRemoteService
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
