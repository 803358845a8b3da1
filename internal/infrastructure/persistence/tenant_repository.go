package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantRepository stores the tenant catalogue. The tenants table has
// no tenant_id column, so the interceptor leaves these queries alone.
type GormTenantRepository struct {
	conn tenant.Conn
}

func NewGormTenantRepository(conn tenant.Conn) *GormTenantRepository {
	return &GormTenantRepository{conn: conn}
}

// codes and domains are stored lowercased
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *GormTenantRepository) first(ctx context.Context, column string, value any) (*identity.Tenant, error) {
	var m models.TenantModel
	err := r.conn.WithContext(ctx).Where(column+" = ?", value).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *GormTenantRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var n int64
	err := r.conn.WithContext(ctx).Model(&models.TenantModel{}).Where(column+" = ?", value).Count(&n).Error
	return n > 0, err
}

func (r *GormTenantRepository) list(query *gorm.DB) ([]identity.Tenant, error) {
	var rows []models.TenantModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]identity.Tenant, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	return r.first(ctx, "id", id)
}

func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	return r.first(ctx, "code", normalizeKey(code))
}

func (r *GormTenantRepository) FindByDomain(ctx context.Context, domain string) (*identity.Tenant, error) {
	domain = normalizeKey(domain)
	if domain == "" {
		// tenants without a custom domain store an empty one; never match them
		return nil, shared.ErrNotFound
	}
	return r.first(ctx, "domain", domain)
}

func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, error) {
	query := r.conn.WithContext(ctx).Model(&models.TenantModel{})
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR code LIKE ?", pattern, pattern)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	return r.list(paginate(query, filter, tenantSort))
}

// FindActive returns active tenants in code order, so scans visit them stably
func (r *GormTenantRepository) FindActive(ctx context.Context) ([]identity.Tenant, error) {
	return r.list(r.conn.WithContext(ctx).
		Where("status = ?", identity.TenantStatusActive).
		Order("code ASC"))
}

func (r *GormTenantRepository) Save(ctx context.Context, t *identity.Tenant) error {
	return r.conn.WithContext(ctx).Save(models.TenantModelFromDomain(t)).Error
}

func (r *GormTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.conn.WithContext(ctx).Delete(&models.TenantModel{}, "id = ?", id)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, "code", normalizeKey(code))
}

func (r *GormTenantRepository) ExistsByDomain(ctx context.Context, domain string) (bool, error) {
	domain = normalizeKey(domain)
	if domain == "" {
		return false, nil
	}
	return r.exists(ctx, "domain", domain)
}

var _ identity.TenantRepository = (*GormTenantRepository)(nil)
