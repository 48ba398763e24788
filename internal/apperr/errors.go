package apperr

import (
	"errors"
	"fmt"
)

// Error categories. Every ServiceError wraps exactly one of them so transports can map
// failures without inspecting codes.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrTransient  = errors.New("temporarily unavailable")
	ErrInternal   = errors.New("internal error")
)

// ServiceError carries a stable "<operation>.<reason>" code together with its category and cause.
type ServiceError struct {
	code   string
	reason string
	kind   error
	err    error
}

// New builds a ServiceError. A nil kind is treated as ErrInternal.
func New(operation, reason string, kind, cause error) error {
	if kind == nil {
		kind = ErrInternal
	}
	return &ServiceError{
		code:   fmt.Sprintf("%s.%s", operation, reason),
		reason: reason,
		kind:   kind,
		err:    cause,
	}
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

// Unwrap exposes both the category and the cause to errors.Is / errors.As.
func (e *ServiceError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// Code returns the "<operation>.<reason>" identifier.
func (e *ServiceError) Code() string {
	return e.code
}

// Reason returns the short machine-readable reason.
func (e *ServiceError) Reason() string {
	return e.reason
}

// Kind returns the category sentinel.
func (e *ServiceError) Kind() error {
	return e.kind
}

// As extracts the ServiceError from an error chain.
func As(err error) (*ServiceError, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return nil, false
}
