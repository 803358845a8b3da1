package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type serviceFixture struct {
	repo      *memoryTenantRepository
	items     *itemCounter
	auditor   *recordingAuditor
	publisher *recordingPublisher
	registry  *Registry
	service   *Service
	ctx       context.Context
	adminID   uuid.UUID
}

func newServiceFixture(t *testing.T, tenants ...*identity.Tenant) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:      newMemoryTenantRepository(tenants...),
		items:     &itemCounter{counts: map[uuid.UUID]int64{}},
		auditor:   &recordingAuditor{},
		publisher: &recordingPublisher{},
		adminID:   uuid.New(),
	}
	f.registry = NewRegistry(f.repo, RegistryConfig{CacheTTL: time.Minute}, zap.NewNop())
	t.Cleanup(func() { _ = f.registry.Close() })

	f.service = NewService(f.repo, f.items, zap.NewNop())
	f.service.SetCacheInvalidator(f.registry)
	f.service.SetAuditLogger(f.auditor)
	f.service.SetEventPublisher(f.publisher)
	f.ctx = tenancy.WithUser(context.Background(), f.adminID)
	return f
}

func TestService_Create(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.service.Create(f.ctx, CreateTenantRequest{
		Code:     "Acme",
		Name:     "Acme Corp",
		Domain:   "Stock.Acme.com",
		Settings: &SettingsPayload{Currency: "eur", Features: map[string]bool{"forecast": true}},
	})

	require.NoError(t, err)
	assert.Equal(t, "acme", resp.Code)
	assert.Equal(t, "stock.acme.com", resp.Domain)
	assert.Equal(t, string(identity.TenantStatusActive), resp.Status)
	assert.Equal(t, "EUR", resp.Settings.Currency)
	assert.True(t, resp.Settings.Features["forecast"])

	stored, err := f.repo.FindByCode(f.ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, resp.ID, stored.ID)

	assert.Equal(t, []string{identity.EventTypeTenantCreated}, f.publisher.Types())
	entries := f.auditor.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
	assert.Equal(t, resp.ID, entries[0].TenantID)
	assert.Equal(t, resp.ID, entries[0].EntityID)
	assert.Equal(t, f.adminID, entries[0].UserID)
	assert.Nil(t, entries[0].OldValue)
}

func TestService_Create_DefaultSettings(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.service.Create(f.ctx, CreateTenantRequest{Code: "acme", Name: "Acme"})

	require.NoError(t, err)
	assert.Equal(t, "USD", resp.Settings.Currency)
	assert.Empty(t, resp.Domain)
}

func TestService_Create_Conflicts(t *testing.T) {
	existing := newTestTenant(t, "acme", "stock.acme.com")
	f := newServiceFixture(t, existing)

	_, err := f.service.Create(f.ctx, CreateTenantRequest{Code: "acme", Name: "Again"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = f.service.Create(f.ctx, CreateTenantRequest{Code: "other", Name: "Other", Domain: "stock.acme.com"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = f.service.Create(f.ctx, CreateTenantRequest{Code: "Not A Slug", Name: "Bad"})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = f.service.Create(f.ctx, CreateTenantRequest{Code: "fine", Name: "Fine", Settings: &SettingsPayload{Currency: "dollars"}})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	assert.Empty(t, f.auditor.Entries())
}

func TestService_UpdateStatus_InvalidatesRegistry(t *testing.T) {
	acme := newTestTenant(t, "acme", "")
	f := newServiceFixture(t, acme)

	_, err := f.registry.Resolve(f.ctx, RequestIdentifier{TenantHeader: "acme"})
	require.NoError(t, err)

	resp, err := f.service.UpdateStatus(f.ctx, acme.ID, identity.TenantStatusSuspended)

	require.NoError(t, err)
	assert.Equal(t, string(identity.TenantStatusSuspended), resp.Status)
	_, err = f.registry.Resolve(f.ctx, RequestIdentifier{TenantHeader: "acme"})
	assert.ErrorIs(t, err, shared.ErrTenantInactive)

	assert.Equal(t, []string{identity.EventTypeTenantStatusChanged}, f.publisher.Types())
	entries := f.auditor.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionUpdate, entries[0].Action)
	assert.Equal(t, string(identity.TenantStatusActive), entries[0].OldValue.(TenantResponse).Status)
	assert.Equal(t, string(identity.TenantStatusSuspended), entries[0].NewValue.(TenantResponse).Status)
}

func TestService_UpdateStatus_SameStatusRejected(t *testing.T) {
	acme := newTestTenant(t, "acme", "")
	f := newServiceFixture(t, acme)

	_, err := f.service.UpdateStatus(f.ctx, acme.ID, identity.TenantStatusActive)

	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Empty(t, f.auditor.Entries())
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.UpdateStatus(f.ctx, uuid.New(), identity.TenantStatusSuspended)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_UpdateSettings(t *testing.T) {
	acme := newTestTenant(t, "acme", "")
	f := newServiceFixture(t, acme)
	name, domain, currency := "Acme Holdings", "inv.acme.com", "gbp"

	resp, err := f.service.UpdateSettings(f.ctx, acme.ID, UpdateSettingsRequest{
		Name:     &name,
		Domain:   &domain,
		Currency: &currency,
		Features: map[string]bool{"reorder_scan": true},
	})

	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", resp.Name)
	assert.Equal(t, "inv.acme.com", resp.Domain)
	assert.Equal(t, "GBP", resp.Settings.Currency)
	assert.Equal(t, map[string]bool{"reorder_scan": true}, resp.Settings.Features)
	assert.Greater(t, resp.Version, acme.Version)

	got, err := f.registry.Resolve(f.ctx, RequestIdentifier{Host: "inv.acme.com"})
	require.NoError(t, err)
	assert.Equal(t, acme.ID, got.ID)
}

func TestService_UpdateSettings_DomainTaken(t *testing.T) {
	acme := newTestTenant(t, "acme", "")
	globex := newTestTenant(t, "globex", "inv.globex.com")
	f := newServiceFixture(t, acme, globex)
	domain := "inv.globex.com"

	_, err := f.service.UpdateSettings(f.ctx, acme.ID, UpdateSettingsRequest{Domain: &domain})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = f.service.UpdateSettings(f.ctx, globex.ID, UpdateSettingsRequest{Domain: &domain})
	assert.NoError(t, err, "keeping its own domain is fine")
}

func TestService_Delete(t *testing.T) {
	acme := newTestTenant(t, "acme", "")
	globex := newTestTenant(t, "globex", "")
	f := newServiceFixture(t, acme, globex)
	f.items.counts[globex.ID] = 3

	err := f.service.Delete(f.ctx, globex.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Contains(t, err.Error(), "3 items")

	require.NoError(t, f.service.Delete(f.ctx, acme.ID))
	_, err = f.repo.FindByID(f.ctx, acme.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Equal(t, []uuid.UUID{globex.ID, acme.ID}, f.items.seen, "items are counted as the tenant being deleted")
	entries := f.auditor.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionDelete, entries[0].Action)
	assert.Equal(t, acme.ID, entries[0].EntityID)
	assert.Nil(t, entries[0].NewValue)
}

func TestService_Delete_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	err := f.service.Delete(f.ctx, uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_GetAndList(t *testing.T) {
	acme := newTestTenant(t, "acme", "")
	f := newServiceFixture(t, acme, newTestTenant(t, "globex", ""))

	got, err := f.service.Get(f.ctx, acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Code)

	all, err := f.service.List(f.ctx, TenantListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
