package dto

import (
	"net/http"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation = "ERR_VALIDATION"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeInvalidID  = "ERR_INVALID_ID"
	// ErrCodeInvalidArgument is used when the domain rejects an argument value
	ErrCodeInvalidArgument = "ERR_INVALID_ARGUMENT"
)

// Tenant error codes
const (
	// ErrCodeTenantRequired is used when a request identifies no tenant
	ErrCodeTenantRequired = "ERR_TENANT_REQUIRED"
	// ErrCodeTenantMismatch is used when a record belongs to another tenant
	ErrCodeTenantMismatch = "ERR_TENANT_MISMATCH"
	// ErrCodeTenantInactive is used when the resolved tenant is suspended or inactive
	ErrCodeTenantInactive = "ERR_TENANT_INACTIVE"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeContention is used when an item lock could not be obtained in time
	ErrCodeContention = "ERR_CONTENTION"
)

// Business rule error codes
const (
	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeInvalidResult is used when an adjustment would leave a negative quantity
	ErrCodeInvalidResult = "ERR_INVALID_RESULT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidID:       http.StatusBadRequest,
	ErrCodeInvalidArgument: http.StatusBadRequest,

	// Tenant errors
	ErrCodeTenantRequired: http.StatusUnauthorized,
	ErrCodeTenantInactive: http.StatusUnauthorized,
	ErrCodeTenantMismatch: http.StatusConflict,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeContention:    http.StatusServiceUnavailable,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeInvalidResult:     http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:          ErrCodeNotFound,
	shared.CodeAlreadyExists:     ErrCodeAlreadyExists,
	shared.CodeInvalidArgument:   ErrCodeInvalidArgument,
	shared.CodeInsufficientStock: ErrCodeInsufficientStock,
	shared.CodeInvalidResult:     ErrCodeInvalidResult,
	shared.CodeContention:        ErrCodeContention,
	shared.CodeContextMissing:    ErrCodeTenantRequired,
	shared.CodeContextMismatch:   ErrCodeTenantMismatch,
	shared.CodeTenantInactive:    ErrCodeTenantInactive,
	shared.CodeInvalidState:      ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unmapped codes become ErrCodeUnknown.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return ErrCodeUnknown
}
