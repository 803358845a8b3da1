package handler

import "github.com/erp/stockledger/internal/interfaces/http/dto"

// The types below only describe response shapes for the generated API docs.
// Handlers write dto.Response.

// APIResponse is the envelope of a successful single-object response
type APIResponse[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data"`
}

// PagedResponse is the envelope of a paginated listing
type PagedResponse[T any] struct {
	Success bool     `json:"success" example:"true"`
	Data    []T      `json:"data"`
	Meta    dto.Meta `json:"meta"`
}

// ErrorResponse is the envelope of every failed request
type ErrorResponse struct {
	Success bool          `json:"success" example:"false"`
	Error   dto.ErrorInfo `json:"error"`
}
