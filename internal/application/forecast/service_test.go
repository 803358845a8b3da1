package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/forecast"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func newItem(t *testing.T, tenantID uuid.UUID, name string, quantity int64) *inventory.InventoryItem {
	t.Helper()
	root := shared.NewTenantAggregateRoot(tenantID)
	return inventory.RestoreInventoryItem(root, name, "general", quantity, 5, decimal.NewFromInt(10))
}

func outMovement(itemID uuid.UUID, qty int64, daysAgo int) inventory.StockMovement {
	return inventory.StockMovement{
		ItemID:    itemID,
		Type:      inventory.MovementTypeOut,
		Quantity:  -qty,
		CreatedAt: asOf.AddDate(0, 0, -daysAgo),
	}
}

type serviceFixture struct {
	items     *MockItemRepository
	movements *MockMovementRepository
	service   *Service
	tenantID  uuid.UUID
	ctx       context.Context
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		items:     new(MockItemRepository),
		movements: new(MockMovementRepository),
		tenantID:  uuid.New(),
	}
	f.service = NewService(f.items, f.movements, forecast.DefaultParams())
	f.ctx = tenancy.WithTenant(context.Background(), f.tenantID)
	return f
}

func TestService_Compute(t *testing.T) {
	f := newServiceFixture()
	item := newItem(t, f.tenantID, "Widget", 10)
	windowStart := asOf.AddDate(0, 0, -30)

	f.items.On("FindByID", mock.Anything, item.ID).Return(item, nil)
	f.movements.On("FindSince", mock.Anything, &item.ID, inventory.MovementTypeOut, windowStart).
		Return([]inventory.StockMovement{outMovement(item.ID, 60, 3)}, nil)

	result, err := f.service.Compute(f.ctx, item.ID, asOf)

	require.NoError(t, err)
	assert.Equal(t, item.ID, result.ItemID)
	assert.Equal(t, "Widget", result.ItemName)
	assert.Equal(t, int64(10), result.CurrentQuantity)
	assert.InDelta(t, 2.0, result.DailyUsage, 1e-9)
	assert.Equal(t, forecast.StatusCritical, result.Status)
	assert.Equal(t, int64(64), result.ReorderQuantity)
	f.items.AssertExpectations(t)
	f.movements.AssertExpectations(t)
}

func TestService_Compute_RequiresTenant(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Compute(context.Background(), uuid.New(), asOf)

	assert.ErrorIs(t, err, shared.ErrContextMissing)
	f.items.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestService_Compute_NotFound(t *testing.T) {
	f := newServiceFixture()
	id := uuid.New()
	f.items.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

	_, err := f.service.Compute(f.ctx, id, asOf)

	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.movements.AssertNotCalled(t, "FindSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ComputeAll_SortsByUrgency(t *testing.T) {
	f := newServiceFixture()
	safe := newItem(t, f.tenantID, "Idle", 50)
	critical := newItem(t, f.tenantID, "Hot", 4)
	low := newItem(t, f.tenantID, "Warm", 20)
	soonest := newItem(t, f.tenantID, "Hotter", 2)

	f.items.On("FindAll", mock.Anything, mock.AnythingOfType("inventory.ItemFilter")).
		Return([]inventory.InventoryItem{*safe, *critical, *low, *soonest}, nil).Once()
	f.movements.On("FindSince", mock.Anything, (*uuid.UUID)(nil), inventory.MovementTypeOut, asOf.AddDate(0, 0, -30)).
		Return([]inventory.StockMovement{
			outMovement(critical.ID, 60, 2),
			outMovement(low.ID, 30, 5),
			outMovement(low.ID, 30, 20),
			outMovement(soonest.ID, 60, 1),
		}, nil)

	results, err := f.service.ComputeAll(f.ctx, asOf)

	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, []string{"Hotter", "Hot", "Warm", "Idle"}, []string{
		results[0].ItemName, results[1].ItemName, results[2].ItemName, results[3].ItemName,
	})
	assert.Equal(t, forecast.StatusCritical, results[0].Status)
	assert.Equal(t, forecast.StatusCritical, results[1].Status)
	assert.Equal(t, forecast.StatusLow, results[2].Status)
	assert.Equal(t, forecast.StatusSafe, results[3].Status)
	assert.Nil(t, results[3].DaysUntilStockout)
}

func TestService_ComputeAll_Paginates(t *testing.T) {
	f := newServiceFixture()
	firstPage := make([]inventory.InventoryItem, itemPageSize)
	for i := range firstPage {
		firstPage[i] = *newItem(t, f.tenantID, "Bulk", 1)
	}
	last := newItem(t, f.tenantID, "Last", 1)

	f.items.On("FindAll", mock.Anything, mock.MatchedBy(func(filter inventory.ItemFilter) bool { return filter.Page == 1 })).
		Return(firstPage, nil).Once()
	f.items.On("FindAll", mock.Anything, mock.MatchedBy(func(filter inventory.ItemFilter) bool { return filter.Page == 2 })).
		Return([]inventory.InventoryItem{*last}, nil).Once()
	f.movements.On("FindSince", mock.Anything, mock.Anything, inventory.MovementTypeOut, mock.Anything).
		Return([]inventory.StockMovement{}, nil)

	results, err := f.service.ComputeAll(f.ctx, asOf)

	require.NoError(t, err)
	assert.Len(t, results, itemPageSize+1)
	f.items.AssertExpectations(t)
}

func TestService_ComputeAll_Empty(t *testing.T) {
	f := newServiceFixture()
	f.items.On("FindAll", mock.Anything, mock.Anything).Return([]inventory.InventoryItem{}, nil)
	f.movements.On("FindSince", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]inventory.StockMovement{}, nil)

	results, err := f.service.ComputeAll(f.ctx, asOf)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_ComputeAll_RequiresTenant(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.ComputeAll(context.Background(), asOf)

	assert.ErrorIs(t, err, shared.ErrContextMissing)
}
