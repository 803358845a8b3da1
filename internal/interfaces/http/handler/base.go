package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentionRetryAfter is the Retry-After hint sent with 503 responses when
// an item is locked by another operation
const ContentionRetryAfter = time.Second

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError sends a 400 response describing a binding failure
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError converts an error to an HTTP response. Domain errors keep
// their message and map to a status by code; anything else is a 500 with a
// generic message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		_ = c.Error(err)
		logger.L(c.Request.Context()).Error("Unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}

	code := dto.NormalizeErrorCode(domainErr.Code)
	if domainErr.Code == shared.CodeContention {
		c.Header("Retry-After", strconv.Itoa(int(ContentionRetryAfter.Seconds())))
	}
	h.Error(c, dto.GetHTTPStatus(code), code, domainErr.Message)
}

// parseID reads a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidID, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// pageOf returns the effective page and page size after defaults
func pageOf(page, pageSize int) (int, int) {
	defaults := shared.DefaultFilter()
	if page <= 0 {
		page = defaults.Page
	}
	if pageSize <= 0 {
		pageSize = defaults.PageSize
	}
	return page, pageSize
}
