package identity

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// TenantRepository stores the tenant catalogue. Tenant rows are global, so
// none of these calls are narrowed by a tenant bound to ctx. Lookups return
// a CodeNotFound domain error when nothing matches.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByCode(ctx context.Context, code string) (*Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*Tenant, error)

	// FindAll pages through tenants; Filters["status"] narrows by status
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, error)
	// FindActive lists tenants allowed to serve requests, for background jobs
	FindActive(ctx context.Context) ([]Tenant, error)

	// Save inserts or updates, keyed by ID
	Save(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error

	ExistsByCode(ctx context.Context, code string) (bool, error)
	ExistsByDomain(ctx context.Context, domain string) (bool, error)
}
