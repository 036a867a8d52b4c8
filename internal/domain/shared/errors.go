package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrAmbiguousGroupState = NewDomainError("AMBIGUOUS_GROUP_STATE", "Economic group invariants are violated")
)

// IsNotFound reports whether err is a not-found domain error
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}

// IsConcurrencyConflict reports whether err is an optimistic-lock conflict
func IsConcurrencyConflict(err error) bool {
	return hasCode(err, ErrConcurrencyConflict.Code)
}

// IsAmbiguousGroupState reports whether err signals violated group invariants
func IsAmbiguousGroupState(err error) bool {
	return hasCode(err, ErrAmbiguousGroupState.Code)
}

func hasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
