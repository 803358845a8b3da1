package shared

import "errors"

// Error codes shared across bounded contexts.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidResult     = "INVALID_RESULT"
	CodeContention        = "CONTENTION"
	CodeContextMissing    = "TENANT_CONTEXT_MISSING"
	CodeContextMismatch   = "TENANT_CONTEXT_MISMATCH"
	CodeTenantInactive    = "TENANT_INACTIVE"
	CodeInvalidState      = "INVALID_STATE"
)

// DomainError represents a domain-level error.
// Two DomainErrors match under errors.Is when their codes are equal, so a
// specific message such as "Quantity must be positive" still satisfies
// errors.Is(err, ErrInvalidArgument).
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
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
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists     = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidArgument   = NewDomainError(CodeInvalidArgument, "Invalid argument")
	ErrInsufficientStock = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInvalidResult     = NewDomainError(CodeInvalidResult, "Operation would produce an invalid result")
	ErrContention        = NewDomainError(CodeContention, "Resource is busy, retry later")
	ErrContextMissing    = NewDomainError(CodeContextMissing, "Tenant context is required")
	ErrContextMismatch   = NewDomainError(CodeContextMismatch, "Tenant does not match the bound tenant context")
	ErrTenantInactive    = NewDomainError(CodeTenantInactive, "Tenant is not active")
	ErrInvalidState      = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

// CodeOf returns the DomainError code carried by err, or "" when err is not a domain error
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
