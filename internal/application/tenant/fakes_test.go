package tenant

import (
	"context"
	"strings"
	"sync"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
)

// memoryTenantRepository is an in-memory identity.TenantRepository that
// counts lookups.
type memoryTenantRepository struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]identity.Tenant
	lookups int
}

func newMemoryTenantRepository(tenants ...*identity.Tenant) *memoryTenantRepository {
	r := &memoryTenantRepository{tenants: map[uuid.UUID]identity.Tenant{}}
	for _, t := range tenants {
		r.tenants[t.ID] = *t
	}
	return r
}

func (r *memoryTenantRepository) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

func (r *memoryTenantRepository) find(match func(t identity.Tenant) bool) (*identity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	for _, t := range r.tenants {
		if match(t) {
			copied := t
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return r.find(func(t identity.Tenant) bool { return t.ID == id })
}

func (r *memoryTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	return r.find(func(t identity.Tenant) bool { return t.Code == strings.ToLower(code) })
}

func (r *memoryTenantRepository) FindByDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	if domain == "" {
		return nil, shared.ErrNotFound
	}
	return r.find(func(t identity.Tenant) bool { return t.Domain == domain })
}

func (r *memoryTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []identity.Tenant
	for _, t := range r.tenants {
		all = append(all, t)
	}
	return all, nil
}

func (r *memoryTenantRepository) FindActive(ctx context.Context) ([]identity.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []identity.Tenant
	for _, t := range r.tenants {
		if t.IsActive() {
			active = append(active, t)
		}
	}
	return active, nil
}

func (r *memoryTenantRepository) Save(ctx context.Context, t *identity.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = *t
	return nil
}

func (r *memoryTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.tenants, id)
	return nil
}

func (r *memoryTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	return err == nil, nil
}

func (r *memoryTenantRepository) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	_, err := r.FindByDomain(ctx, domain)
	return err == nil, nil
}

// itemCounter reports a fixed item count per bound tenant
type itemCounter struct {
	counts map[uuid.UUID]int64
	seen   []uuid.UUID
}

func (c *itemCounter) Count(ctx context.Context, filter inventory.ItemFilter) (int64, error) {
	tenantID, err := tenancy.RequireTenantID(ctx)
	if err != nil {
		return 0, err
	}
	c.seen = append(c.seen, tenantID)
	return c.counts[tenantID], nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Log(ctx context.Context, entry audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAuditor) Entries() []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Entry(nil), a.entries...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}
