package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTenant(t *testing.T, code, domain string) *identity.Tenant {
	t.Helper()
	tenant, err := identity.NewTenant(code, code+" Ltd")
	require.NoError(t, err)
	require.NoError(t, tenant.SetDomain(domain))
	tenant.ClearDomainEvents()
	return tenant
}

type registryFixture struct {
	acme     *identity.Tenant
	globex   *identity.Tenant
	initech  *identity.Tenant
	repo     *memoryTenantRepository
	registry *Registry
}

func newRegistryFixture(t *testing.T, config RegistryConfig) *registryFixture {
	t.Helper()
	f := &registryFixture{
		acme:    newTestTenant(t, "acme", ""),
		globex:  newTestTenant(t, "globex", "inventory.globex.com"),
		initech: newTestTenant(t, "initech", ""),
	}
	require.NoError(t, f.initech.Suspend())
	f.repo = newMemoryTenantRepository(f.acme, f.globex, f.initech)
	f.registry = NewRegistry(f.repo, config, zap.NewNop())
	t.Cleanup(func() { _ = f.registry.Close() })
	return f
}

func TestRegistry_Resolve(t *testing.T) {
	f := newRegistryFixture(t, RegistryConfig{BaseDomain: "stock.example.com"})

	tests := []struct {
		name string
		id   RequestIdentifier
		want string
	}{
		{"header id", RequestIdentifier{TenantHeader: f.acme.ID.String()}, "acme"},
		{"header code", RequestIdentifier{TenantHeader: "ACME"}, "acme"},
		{"header wins over host", RequestIdentifier{TenantHeader: "acme", Host: "inventory.globex.com"}, "acme"},
		{"custom domain", RequestIdentifier{Host: "inventory.globex.com"}, "globex"},
		{"custom domain with port", RequestIdentifier{Host: "Inventory.Globex.com:8443"}, "globex"},
		{"subdomain", RequestIdentifier{Host: "acme.stock.example.com"}, "acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.registry.Resolve(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Code)
		})
	}
}

func TestRegistry_ResolveFailures(t *testing.T) {
	f := newRegistryFixture(t, RegistryConfig{BaseDomain: "stock.example.com"})

	tests := []struct {
		name string
		id   RequestIdentifier
		want error
	}{
		{"unknown header code", RequestIdentifier{TenantHeader: "nobody"}, shared.ErrNotFound},
		{"unknown subdomain", RequestIdentifier{Host: "nobody.stock.example.com"}, shared.ErrNotFound},
		{"suspended tenant", RequestIdentifier{TenantHeader: "initech"}, shared.ErrTenantInactive},
		{"nothing identifies a tenant", RequestIdentifier{Host: "localhost:8080"}, shared.ErrContextMissing},
		{"nested subdomain is not a code", RequestIdentifier{Host: "a.acme.stock.example.com"}, shared.ErrContextMissing},
		{"empty request", RequestIdentifier{}, shared.ErrContextMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.registry.Resolve(context.Background(), tt.id)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegistry_FallsBackToDefaultCode(t *testing.T) {
	f := newRegistryFixture(t, RegistryConfig{DefaultCode: " Globex "})

	got, err := f.registry.Resolve(context.Background(), RequestIdentifier{Host: "localhost"})

	require.NoError(t, err)
	assert.Equal(t, f.globex.ID, got.ID)
}

func TestRegistry_CachesLookups(t *testing.T) {
	f := newRegistryFixture(t, RegistryConfig{CacheTTL: time.Minute})
	ctx := context.Background()

	first, err := f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err)
	lookups := f.repo.Lookups()

	second, err := f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err)
	assert.Equal(t, lookups, f.repo.Lookups(), "second resolve is served from cache")
	assert.Equal(t, first.ID, second.ID)

	second.Name = "mutated"
	third, err := f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme Ltd", third.Name, "callers get copies")
}

func TestRegistry_InvalidateDropsStaleStatus(t *testing.T) {
	f := newRegistryFixture(t, RegistryConfig{CacheTTL: time.Minute})
	ctx := context.Background()

	_, err := f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: f.acme.ID.String()})
	require.NoError(t, err)
	_, err = f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err)

	require.NoError(t, f.acme.Suspend())
	require.NoError(t, f.repo.Save(ctx, f.acme))

	_, err = f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err, "stale entry still cached")

	f.registry.Invalidate(f.acme.ID)

	_, err = f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	assert.ErrorIs(t, err, shared.ErrTenantInactive)
	_, err = f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: f.acme.ID.String()})
	assert.ErrorIs(t, err, shared.ErrTenantInactive)
}

func TestRegistry_NoCacheWhenTTLZero(t *testing.T) {
	f := newRegistryFixture(t, RegistryConfig{})
	ctx := context.Background()

	_, err := f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err)
	_, err = f.registry.Resolve(ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err)

	assert.Equal(t, 2, f.repo.Lookups())
}
