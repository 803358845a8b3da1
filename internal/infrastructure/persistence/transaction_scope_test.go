package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateTxError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name       string
		err        error
		contention bool
	}{
		{"nil", nil, false},
		{"plain error passes through", plain, false},
		{"lock timeout", &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}, true},
		{"version slot taken", &pgconn.PgError{Code: "23505", Message: "duplicate key value"}, true},
		{"wrapped lock timeout", fmt.Errorf("update: %w", &pgconn.PgError{Code: "55P03"}), true},
		{"other postgres error", &pgconn.PgError{Code: "23514", Message: "check violation"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateTxError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.contention, errors.Is(got, shared.ErrContention))
			if !tt.contention {
				assert.Equal(t, tt.err, got)
			}
		})
	}
}

func TestGormTransactionScope(t *testing.T) {
	tdb := setupSQLite(t)
	items := NewGormItemRepository(tdb)
	movements := NewGormMovementRepository(tdb)
	scope := NewGormTransactionScope(tdb, time.Second)
	ctx := tenancy.WithTenant(context.Background(), uuid.New())

	item := newItem(t, ctx, items, "Gasket", "seals", 5, 1)

	receive := func(qty int64, fail error) error {
		return scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			loaded, err := repos.ItemRepo().FindByIDForUpdate(ctx, item.ID)
			if err != nil {
				return err
			}
			m, err := loaded.IncreaseStock(qty, inventory.MovementInput{})
			if err != nil {
				return err
			}
			if err := repos.ItemRepo().Update(ctx, loaded); err != nil {
				return err
			}
			if err := repos.MovementRepo().Append(ctx, m); err != nil {
				return err
			}
			return fail
		})
	}

	t.Run("commit", func(t *testing.T) {
		require.NoError(t, receive(3, nil))
		got, err := items.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(8), got.Quantity())
	})

	t.Run("error rolls back item and movement together", func(t *testing.T) {
		before, err := movements.CountByItem(ctx, item.ID, inventory.MovementFilter{})
		require.NoError(t, err)

		failure := errors.New("downstream failed")
		assert.ErrorIs(t, receive(100, failure), failure)

		got, err := items.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(8), got.Quantity())
		after, err := movements.CountByItem(ctx, item.ID, inventory.MovementFilter{})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("transaction stays tenant scoped", func(t *testing.T) {
		other := tenancy.WithTenant(context.Background(), uuid.New())
		err := scope.Execute(other, func(repos appinv.TransactionalRepositories) error {
			_, err := repos.ItemRepo().FindByIDForUpdate(other, item.ID)
			return err
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unit price survives the round trip", func(t *testing.T) {
		got, err := items.FindByID(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(3).Equal(got.UnitPrice))
	})
}
