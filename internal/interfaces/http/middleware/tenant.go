package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apptenant "github.com/erp/stockledger/internal/application/tenant"
	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gin context keys and headers used for tenant and user identification
const (
	TenantIDKey     = "tenant_id"
	TenantCodeKey   = "tenant_code"
	UserIDKey       = "user_id"
	TenantHeaderKey = "X-Tenant-ID"
	UserHeaderKey   = "X-User-ID"
)

// TenantResolver maps what a request says about its tenant to an active tenant
type TenantResolver interface {
	Resolve(ctx context.Context, id apptenant.RequestIdentifier) (*identity.Tenant, error)
}

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	Resolver TenantResolver
	// HeaderName carries a tenant ID or code, X-Tenant-ID when empty
	HeaderName string
	// SkipPaths are paths served without a tenant (health checks, admin)
	SkipPaths []string
	Logger    *zap.Logger
}

// TenantMiddleware resolves the request's tenant and binds it to the request
// context, so every repository call made while serving the request is scoped
// to that tenant. Requests whose tenant cannot be resolved are rejected
// before reaching a handler.
func TenantMiddleware(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = TenantHeaderKey
	}
	fallback := cfg.Logger
	if fallback == nil {
		fallback = zap.NewNop()
	}

	return func(c *gin.Context) {
		if skipPath(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		t, err := cfg.Resolver.Resolve(ctx, apptenant.RequestIdentifier{
			TenantHeader: c.GetHeader(headerName),
			Host:         c.Request.Host,
		})
		if err != nil {
			log := logger.WithLogger(ctx, fallback)
			if shared.CodeOf(err) == "" {
				log.Error("Tenant resolution failed", zap.Error(err))
			} else {
				log.Debug("Tenant rejected", zap.Error(err))
			}
			abortWithError(c, err)
			return
		}

		c.Set(TenantIDKey, t.ID.String())
		c.Set(TenantCodeKey, t.Code)

		ctx = tenancy.WithTenant(ctx, t.ID)
		// tenant_id is added from ctx on every entry; the code is for humans
		reqLogger := logger.FromContext(ctx).With(zap.String("tenant_code", t.Code))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, reqLogger))
		c.Next()
	}
}

// UserContext binds the acting user named by the X-User-ID header.
// A missing header leaves the user unset; a malformed one is rejected.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(UserHeaderKey))
		if raw == "" {
			c.Next()
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "X-User-ID must be a UUID", GetRequestID(c)))
			return
		}
		c.Set(UserIDKey, userID.String())
		c.Request = c.Request.WithContext(tenancy.WithUser(c.Request.Context(), userID))
		c.Next()
	}
}

// GetTenantID retrieves the resolved tenant ID from gin.Context
func GetTenantID(c *gin.Context) string {
	return c.GetString(TenantIDKey)
}

// GetTenantCode retrieves the resolved tenant code from gin.Context
func GetTenantCode(c *gin.Context) string {
	return c.GetString(TenantCodeKey)
}

func skipPath(path string, skip []string) bool {
	for _, p := range skip {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// abortWithError writes the standard error body for err and stops the chain
func abortWithError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "An unexpected error occurred", GetRequestID(c)))
		return
	}
	code := dto.NormalizeErrorCode(domainErr.Code)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(
		code, domainErr.Message, GetRequestID(c)))
}
