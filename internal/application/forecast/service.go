// Package forecast serves stock forecasts computed from the movement ledger.
package forecast

import (
	"context"
	"sort"
	"time"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// itemPageSize bounds how many items ComputeAll loads per query
const itemPageSize = 200

// Service reads the ledger and runs the forecast model. It never writes.
type Service struct {
	itemRepo     inventory.ItemRepository
	movementRepo inventory.MovementRepository
	params       forecast.Params
}

// NewService creates a new forecast Service
func NewService(itemRepo inventory.ItemRepository, movementRepo inventory.MovementRepository, params forecast.Params) *Service {
	return &Service{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		params:       params,
	}
}

// Params returns the model constants in use
func (s *Service) Params() forecast.Params {
	return s.params
}

// Compute forecasts one item of the bound tenant as of asOf.
// An item of another tenant is reported as not found.
func (s *Service) Compute(ctx context.Context, itemID uuid.UUID, asOf time.Time) (result *forecast.Result, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "forecast", "compute", "item.id", itemID.String())
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if _, err := tenancy.RequireTenantID(ctx); err != nil {
		return nil, err
	}

	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	movements, err := s.movementRepo.FindSince(ctx, &itemID, inventory.MovementTypeOut, s.params.WindowStart(asOf))
	if err != nil {
		return nil, err
	}

	r := s.calculate(item, movements, asOf)
	telemetry.SetAttributes(span, "forecast.status", string(r.Status))
	return &r, nil
}

// ComputeAll forecasts every item of the bound tenant, most urgent first
func (s *Service) ComputeAll(ctx context.Context, asOf time.Time) (results []forecast.Result, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "forecast", "compute_all")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if _, err := tenancy.RequireTenantID(ctx); err != nil {
		return nil, err
	}

	items, err := s.allItems(ctx)
	if err != nil {
		return nil, err
	}

	movements, err := s.movementRepo.FindSince(ctx, nil, inventory.MovementTypeOut, s.params.WindowStart(asOf))
	if err != nil {
		return nil, err
	}
	byItem := make(map[uuid.UUID][]inventory.StockMovement)
	for _, m := range movements {
		byItem[m.ItemID] = append(byItem[m.ItemID], m)
	}

	results = make([]forecast.Result, 0, len(items))
	for i := range items {
		results = append(results, s.calculate(&items[i], byItem[items[i].ID], asOf))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return forecast.Less(results[i], results[j])
	})

	telemetry.SetAttributes(span, "forecast.items", len(results))
	return results, nil
}

func (s *Service) calculate(item *inventory.InventoryItem, movements []inventory.StockMovement, asOf time.Time) forecast.Result {
	r := forecast.Calculate(item.Quantity(), movements, asOf, s.params)
	r.ItemID = item.ID
	r.ItemName = item.Name
	return r
}

func (s *Service) allItems(ctx context.Context) ([]inventory.InventoryItem, error) {
	var all []inventory.InventoryItem
	filter := inventory.ItemFilter{}
	filter.PageSize = itemPageSize
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"

	for page := 1; ; page++ {
		filter.Page = page
		items, err := s.itemRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < itemPageSize {
			return all, nil
		}
	}
}
