package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
)

// GormAuditRepository implements audit.Repository using GORM
type GormAuditRepository struct {
	conn tenant.Conn
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(conn tenant.Conn) *GormAuditRepository {
	return &GormAuditRepository{conn: conn}
}

// Create stores an audit entry
func (r *GormAuditRepository) Create(ctx context.Context, entry *audit.LogEntry) error {
	return r.conn.WithContext(ctx).Create(models.AuditLogModelFromDomain(entry)).Error
}

// FindAll lists audit entries matching the filter, newest first by default
func (r *GormAuditRepository) FindAll(ctx context.Context, filter audit.Filter) ([]audit.LogEntry, error) {
	query := r.conn.WithContext(ctx).Model(&models.AuditLogModel{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var logModels []models.AuditLogModel
	if err := paginate(query, filter.Filter, auditSort).Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]audit.LogEntry, len(logModels))
	for i, model := range logModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Ensure GormAuditRepository implements Repository
var _ audit.Repository = (*GormAuditRepository)(nil)
