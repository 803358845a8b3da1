package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/audit"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditLogger records entity changes. Implementations never fail the caller.
type AuditLogger interface {
	Log(ctx context.Context, entry audit.Entry)
}

// ItemService handles item CRUD. It never writes quantity directly: the
// initial quantity of a new item is an IN movement in the creating
// transaction, and every later change goes through StockLedger.
type ItemService struct {
	itemRepo       inventory.ItemRepository
	movementRepo   inventory.MovementRepository
	txScope        TransactionScope
	locker         ItemLocker
	auditor        AuditLogger
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewItemService creates a new ItemService
func NewItemService(
	itemRepo inventory.ItemRepository,
	movementRepo inventory.MovementRepository,
	txScope TransactionScope,
	locker ItemLocker,
) *ItemService {
	return &ItemService{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		txScope:      txScope,
		locker:       locker,
		logger:       zap.NewNop(),
	}
}

// SetAuditLogger sets the audit sink
func (s *ItemService) SetAuditLogger(auditor AuditLogger) {
	s.auditor = auditor
}

// SetEventPublisher sets the publisher for post-commit domain events
func (s *ItemService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLogger sets the fallback logger
func (s *ItemService) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// Create creates an item in the bound tenant
func (s *ItemService) Create(ctx context.Context, req CreateItemRequest) (*ItemResponse, error) {
	tenantID, err := tenancy.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if req.InitialQuantity < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidArgument, "Initial quantity cannot be negative")
	}

	item, err := inventory.NewInventoryItem(tenantID, req.Name, req.Category, req.LowStockThreshold, req.UnitPrice)
	if err != nil {
		return nil, err
	}

	userID := actingUser(ctx, req.UserID)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.ItemRepo().Create(ctx, item); err != nil {
			return err
		}
		if req.InitialQuantity == 0 {
			return nil
		}
		_, err := receiveInTx(ctx, repos, item, req.InitialQuantity, inventory.MovementInput{
			Reason: "Initial stock",
			UserID: userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)
	resp := ToItemResponse(item)
	s.audit(ctx, audit.Entry{
		TenantID:   tenantID,
		UserID:     userID,
		Action:     audit.ActionCreate,
		EntityType: inventory.EntityTypeItem,
		EntityID:   item.ID,
		NewValue:   resp,
	})
	return &resp, nil
}

// Get retrieves an item by ID
func (s *ItemService) Get(ctx context.Context, id uuid.UUID) (*ItemResponse, error) {
	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// List retrieves a page of items and the total count
func (s *ItemService) List(ctx context.Context, filter ItemListFilter) ([]ItemResponse, int64, error) {
	domainFilter := filter.toDomain()

	items, err := s.itemRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.itemRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToItemResponses(items), total, nil
}

// Update changes an item's descriptive fields
func (s *ItemService) Update(ctx context.Context, id uuid.UUID, req UpdateItemRequest) (*ItemResponse, error) {
	tenantID, err := tenancy.RequireTenantID(ctx)
	if err != nil {
		return nil, err
	}

	var before, after ItemResponse
	err = s.withItemLocked(ctx, id, func(repos TransactionalRepositories, item *inventory.InventoryItem) error {
		before = ToItemResponse(item)

		name, category, threshold, price := item.Name, item.Category, item.LowStockThreshold, item.UnitPrice
		if req.Name != nil {
			name = *req.Name
		}
		if req.Category != nil {
			category = *req.Category
		}
		if req.LowStockThreshold != nil {
			threshold = *req.LowStockThreshold
		}
		if req.UnitPrice != nil {
			price = *req.UnitPrice
		}
		if err := item.UpdateDetails(name, category, threshold, price); err != nil {
			return err
		}
		if err := repos.ItemRepo().Update(ctx, item); err != nil {
			return err
		}
		after = ToItemResponse(item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, audit.Entry{
		TenantID:   tenantID,
		UserID:     actingUser(ctx, req.UserID),
		Action:     audit.ActionUpdate,
		EntityType: inventory.EntityTypeItem,
		EntityID:   id,
		OldValue:   before,
		NewValue:   after,
	})
	return &after, nil
}

// Delete removes an item. Its movements stay in the ledger as history.
func (s *ItemService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tenantID, err := tenancy.RequireTenantID(ctx)
	if err != nil {
		return err
	}

	var before ItemResponse
	err = s.withItemLocked(ctx, id, func(repos TransactionalRepositories, item *inventory.InventoryItem) error {
		before = ToItemResponse(item)
		return repos.ItemRepo().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, audit.Entry{
		TenantID:   tenantID,
		UserID:     actingUser(ctx, userID),
		Action:     audit.ActionDelete,
		EntityType: inventory.EntityTypeItem,
		EntityID:   id,
		OldValue:   before,
	})
	return nil
}

// ListMovements lists an item's movements, newest first.
// An item outside the bound tenant is reported as shared.ErrNotFound.
func (s *ItemService) ListMovements(ctx context.Context, itemID uuid.UUID, filter MovementListFilter) ([]MovementResponse, int64, error) {
	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		return nil, 0, err
	}

	domainFilter := filter.toDomain()
	movements, err := s.movementRepo.FindByItem(ctx, itemID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.movementRepo.CountByItem(ctx, itemID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToMovementResponses(movements), total, nil
}

// withItemLocked runs fn on the item loaded FOR UPDATE while holding its ledger lock
func (s *ItemService) withItemLocked(ctx context.Context, id uuid.UUID, fn func(repos TransactionalRepositories, item *inventory.InventoryItem) error) error {
	release, err := s.locker.Acquire(ctx, ItemLockKey(id))
	if err != nil {
		return err
	}
	defer release()

	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return fn(repos, item)
	})
}

func (s *ItemService) publishDomainEvents(ctx context.Context, item *inventory.InventoryItem) {
	events := item.GetDomainEvents()
	item.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(context.WithoutCancel(ctx), events...); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to publish item events",
			zap.String("item_id", item.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *ItemService) audit(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	s.auditor.Log(ctx, entry)
}

// actingUser prefers an explicit user over the one bound to ctx
func actingUser(ctx context.Context, userID uuid.UUID) uuid.UUID {
	if userID != uuid.Nil {
		return userID
	}
	return tenancy.UserID(ctx)
}
