package tenant

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/domain/identity"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entityTypeTenant = "Tenant"

// AuditLogger records entity changes, best-effort
type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry)
}

// ItemCounter counts items of the bound tenant
type ItemCounter interface {
	Count(ctx context.Context, filter inventory.ItemFilter) (int64, error)
}

// CacheInvalidator drops cached lookups of a tenant after it changes
type CacheInvalidator interface {
	Invalidate(tenantID uuid.UUID)
}

// Service handles tenant administration. It runs without a bound tenant;
// audit entries are filed under the tenant being changed.
type Service struct {
	tenantRepo  identity.TenantRepository
	items       ItemCounter
	invalidator CacheInvalidator
	auditor     AuditLogger
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewService creates a new tenant Service
func NewService(tenantRepo identity.TenantRepository, items ItemCounter, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tenantRepo: tenantRepo,
		items:      items,
		logger:     log,
	}
}

// SetCacheInvalidator sets the registry cache to invalidate on changes
func (s *Service) SetCacheInvalidator(invalidator CacheInvalidator) {
	s.invalidator = invalidator
}

// SetAuditLogger sets the audit sink
func (s *Service) SetAuditLogger(auditor AuditLogger) {
	s.auditor = auditor
}

// SetEventPublisher sets the publisher for tenant events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Create creates a new active tenant
func (s *Service) Create(ctx context.Context, req CreateTenantRequest) (*TenantResponse, error) {
	t, err := identity.NewTenant(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if err := t.SetDomain(req.Domain); err != nil {
		return nil, err
	}
	if req.Settings != nil {
		if err := t.UpdateSettings(identity.TenantSettings{
			Currency: req.Settings.Currency,
			Features: req.Settings.Features,
		}); err != nil {
			return nil, err
		}
	}

	exists, err := s.tenantRepo.ExistsByCode(ctx, t.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to check tenant code: %w", err)
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Tenant code already exists")
	}
	if t.Domain != "" {
		exists, err := s.tenantRepo.ExistsByDomain(ctx, t.Domain)
		if err != nil {
			return nil, fmt.Errorf("failed to check tenant domain: %w", err)
		}
		if exists {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Tenant domain already exists")
		}
	}

	if err := s.tenantRepo.Save(ctx, t); err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Tenant created",
		zap.String("tenant_id", t.ID.String()),
		zap.String("code", t.Code),
	)
	s.publish(ctx, t)
	response := ToTenantResponse(t)
	s.audit(ctx, audit.ActionCreate, t.ID, nil, response)
	return &response, nil
}

// Get returns one tenant
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	t, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTenantResponse(t)
	return &response, nil
}

// List returns tenants matching the filter
func (s *Service) List(ctx context.Context, filter TenantListFilter) ([]TenantResponse, error) {
	tenants, err := s.tenantRepo.FindAll(ctx, filter.toDomain())
	if err != nil {
		return nil, err
	}
	return ToTenantResponses(tenants), nil
}

// UpdateStatus moves a tenant to status. Suspended and inactive tenants stop resolving.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status identity.TenantStatus) (*TenantResponse, error) {
	return s.modify(ctx, id, func(t *identity.Tenant) error {
		return t.ChangeStatus(status)
	})
}

// UpdateSettings changes name, domain and settings
func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, req UpdateSettingsRequest) (*TenantResponse, error) {
	return s.modify(ctx, id, func(t *identity.Tenant) error {
		if req.Name != nil {
			if err := t.Rename(*req.Name); err != nil {
				return err
			}
		}
		if req.Domain != nil {
			if err := s.ensureDomainFree(ctx, t, *req.Domain); err != nil {
				return err
			}
			if err := t.SetDomain(*req.Domain); err != nil {
				return err
			}
		}
		if req.Currency != nil || req.Features != nil {
			settings := t.Settings
			if req.Currency != nil {
				settings.Currency = *req.Currency
			}
			if req.Features != nil {
				settings.Features = req.Features
			}
			if err := t.UpdateSettings(settings); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a tenant. It is refused while the tenant still owns items.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	var count int64
	err = tenancy.RunAs(ctx, id, func(ctx context.Context) error {
		var err error
		count, err = s.items.Count(ctx, inventory.ItemFilter{})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to count tenant items: %w", err)
	}
	if count > 0 {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Tenant still owns %d items", count))
	}

	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(id)

	logger.WithLogger(ctx, s.logger).Info("Tenant deleted",
		zap.String("tenant_id", id.String()),
		zap.String("code", t.Code),
	)
	s.audit(ctx, audit.ActionDelete, id, ToTenantResponse(t), nil)
	return nil
}

func (s *Service) modify(ctx context.Context, id uuid.UUID, change func(t *identity.Tenant) error) (*TenantResponse, error) {
	t, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := ToTenantResponse(t)

	if err := change(t); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(id)
	s.publish(ctx, t)

	after := ToTenantResponse(t)
	s.audit(ctx, audit.ActionUpdate, id, before, after)
	return &after, nil
}

func (s *Service) ensureDomainFree(ctx context.Context, t *identity.Tenant, domain string) error {
	other, err := s.tenantRepo.FindByDomain(ctx, domain)
	switch {
	case err == nil && other.ID != t.ID:
		return shared.NewDomainError(shared.CodeAlreadyExists, "Tenant domain already exists")
	case err == nil, shared.CodeOf(err) == shared.CodeNotFound:
		return nil
	default:
		return fmt.Errorf("failed to check tenant domain: %w", err)
	}
}

func (s *Service) invalidate(id uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(id)
	}
}

func (s *Service) publish(ctx context.Context, t *identity.Tenant) {
	events := t.GetDomainEvents()
	t.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), events...); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to publish tenant events",
			zap.String("tenant_id", t.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) audit(ctx context.Context, action audit.Action, tenantID uuid.UUID, oldValue, newValue any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Log(ctx, audit.Entry{
		TenantID:   tenantID,
		UserID:     tenancy.UserID(ctx),
		Action:     action,
		EntityType: entityTypeTenant,
		EntityID:   tenantID,
		OldValue:   oldValue,
		NewValue:   newValue,
	})
}
