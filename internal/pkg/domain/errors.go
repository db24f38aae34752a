package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AppError so transports can map it to a status code.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindPrecondition ErrorKind = "precondition"
	KindUpstream     ErrorKind = "upstream"
	KindConflict     ErrorKind = "conflict"
	KindForbidden    ErrorKind = "forbidden"
	KindInvalidState ErrorKind = "invalid_state"
	KindInternal     ErrorKind = "internal"
)

// AppError is the error type shared by the domain and application layers.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewNotFoundError reports that the named entity could not be resolved.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewPreconditionError reports data that exists but is not in a usable state for the operation.
func NewPreconditionError(message string) *AppError {
	return &AppError{Kind: KindPrecondition, Message: message}
}

// NewUpstreamError wraps a failure of an external collaborator.
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Message: message, Err: err}
}

// NewConflictError reports a concurrent modification.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// NewForbiddenError reports that the caller may not act on the resource.
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// NewInvalidStateError reports a disallowed state transition.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
