// Package tenancy carries the active tenant and acting user through a call chain.
//
// The binding lives in context.Context, so every goroutine started with a
// derived context observes the same tenant, and concurrent chains never see
// each other's binding. Code deep in the stack reads the tenant with TenantID
// instead of receiving it as a parameter.
package tenancy

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

type tenantKey struct{}

type userKey struct{}

// WithTenant returns a context bound to tenantID.
// It overwrites any existing binding; request middleware uses it once per request.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantID returns the bound tenant. An unbound context yields (uuid.Nil, false).
func TenantID(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(tenantKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireTenantID returns the bound tenant or ErrContextMissing
func RequireTenantID(ctx context.Context) (uuid.UUID, error) {
	id, ok := TenantID(ctx)
	if !ok {
		return uuid.Nil, shared.ErrContextMissing
	}
	return id, nil
}

// VerifyMatch checks that tenantID is the bound tenant
func VerifyMatch(ctx context.Context, tenantID uuid.UUID) error {
	current, ok := TenantID(ctx)
	if !ok {
		return shared.ErrContextMissing
	}
	if current != tenantID {
		return shared.ErrContextMismatch
	}
	return nil
}

// Run calls fn with tenantID bound.
// Re-binding the tenant that is already bound is allowed; binding a different
// tenant fails with ErrContextMismatch and fn is not called. Use RunAs to switch.
func Run(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) error {
	if tenantID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Tenant ID is required")
	}
	if current, ok := TenantID(ctx); ok && current != tenantID {
		return shared.ErrContextMismatch
	}
	return fn(WithTenant(ctx, tenantID))
}

// RunAs calls fn with tenantID bound, replacing any existing binding.
// The caller's ctx is not modified.
func RunAs(ctx context.Context, tenantID uuid.UUID, fn func(ctx context.Context) error) error {
	if tenantID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidArgument, "Tenant ID is required")
	}
	return fn(WithTenant(ctx, tenantID))
}

// WithUser returns a context carrying the acting user
func WithUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the acting user, or uuid.Nil when none is bound
func UserID(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	id, _ := ctx.Value(userKey{}).(uuid.UUID)
	return id
}
