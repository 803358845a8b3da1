// Package tenant resolves requests to tenants and administers tenants.
package tenant

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIdentifier carries what a request says about its tenant
type RequestIdentifier struct {
	TenantHeader string // tenant ID or code
	Host         string // request host, port allowed
}

// RegistryConfig holds resolution settings
type RegistryConfig struct {
	BaseDomain  string        // "<code>.<BaseDomain>" hosts resolve by code
	DefaultCode string        // used when nothing else identifies a tenant
	CacheTTL    time.Duration // 0 disables caching
}

// Registry maps request identifiers to tenants.
//
// Resolution order: the header (a UUID is looked up by ID, anything else by
// code), then the host (custom domain first, then a subdomain of BaseDomain),
// then DefaultCode. An explicit identifier that matches nothing is NotFound;
// a request that identifies no tenant at all is ContextMissing. A matched
// tenant that is not active is TenantInactive.
type Registry struct {
	repo   identity.TenantRepository
	config RegistryConfig
	cache  *cache.TTLCache[identity.Tenant]
	logger *zap.Logger
}

// NewRegistry creates a new Registry. Call Close to release the cache.
func NewRegistry(repo identity.TenantRepository, config RegistryConfig, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	config.BaseDomain = normalizeHost(config.BaseDomain)
	config.DefaultCode = strings.ToLower(strings.TrimSpace(config.DefaultCode))
	return &Registry{
		repo:   repo,
		config: config,
		cache:  cache.NewTTLCache[identity.Tenant]("tenants", config.CacheTTL, cache.WithLogger(log)),
		logger: log,
	}
}

// Resolve returns the active tenant the request identifies
func (r *Registry) Resolve(ctx context.Context, id RequestIdentifier) (*identity.Tenant, error) {
	t, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive() {
		logger.WithLogger(ctx, r.logger).Debug("rejected inactive tenant",
			zap.String("tenant_code", t.Code),
			zap.String("status", string(t.Status)),
		)
		return nil, shared.ErrTenantInactive
	}
	return t, nil
}

func (r *Registry) lookup(ctx context.Context, id RequestIdentifier) (*identity.Tenant, error) {
	if header := strings.TrimSpace(id.TenantHeader); header != "" {
		if tenantID, err := uuid.Parse(header); err == nil {
			return r.byID(ctx, tenantID)
		}
		return r.byCode(ctx, header)
	}

	if host := normalizeHost(id.Host); host != "" {
		t, err := r.byDomain(ctx, host)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if code, ok := r.subdomainCode(host); ok {
			return r.byCode(ctx, code)
		}
	}

	if r.config.DefaultCode != "" {
		return r.byCode(ctx, r.config.DefaultCode)
	}
	return nil, shared.NewDomainError(shared.CodeContextMissing, "No tenant identified by request")
}

// subdomainCode extracts "acme" from "acme.<BaseDomain>". Nested subdomains do not match.
func (r *Registry) subdomainCode(host string) (string, bool) {
	if r.config.BaseDomain == "" {
		return "", false
	}
	code, found := strings.CutSuffix(host, "."+r.config.BaseDomain)
	if !found || code == "" || strings.Contains(code, ".") {
		return "", false
	}
	return code, true
}

func (r *Registry) byID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return r.cached(ctx, "id:"+id.String(), func(ctx context.Context) (*identity.Tenant, error) {
		return r.repo.FindByID(ctx, id)
	})
}

func (r *Registry) byCode(ctx context.Context, code string) (*identity.Tenant, error) {
	code = strings.ToLower(code)
	return r.cached(ctx, "code:"+code, func(ctx context.Context) (*identity.Tenant, error) {
		return r.repo.FindByCode(ctx, code)
	})
}

func (r *Registry) byDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	return r.cached(ctx, "domain:"+domain, func(ctx context.Context) (*identity.Tenant, error) {
		return r.repo.FindByDomain(ctx, domain)
	})
}

func (r *Registry) cached(ctx context.Context, key string, load func(ctx context.Context) (*identity.Tenant, error)) (*identity.Tenant, error) {
	if t, ok := r.cache.Get(key); ok {
		copied := *t
		return &copied, nil
	}
	t, err := load(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, t)
	copied := *t
	return &copied, nil
}

// Invalidate drops every cached lookup of the tenant
func (r *Registry) Invalidate(tenantID uuid.UUID) {
	removed := r.cache.DeleteFunc(func(_ string, t *identity.Tenant) bool {
		return t.ID == tenantID
	})
	if removed > 0 {
		r.logger.Debug("Invalidated tenant cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("entries", removed),
		)
	}
}

// Close stops the cache's cleanup goroutine
func (r *Registry) Close() error {
	return r.cache.Close()
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
