package tenant

import (
	"context"
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T, cfg Config) *TenantDB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&scopedModel{}, &globalModel{}))

	tdb, err := NewTenantDB(db, cfg)
	require.NoError(t, err)
	return tdb
}

func TestTenantDB_StampsTenantOnCreate(t *testing.T) {
	tdb := setupSQLite(t, DefaultConfig())
	tenantID := uuid.New()
	ctx := tenancy.WithTenant(context.Background(), tenantID)

	row := scopedModel{ID: uuid.New(), Name: "widget"}
	require.NoError(t, tdb.WithContext(ctx).Create(&row).Error)
	assert.Equal(t, tenantID, row.TenantID)

	batch := []scopedModel{{ID: uuid.New(), Name: "a"}, {ID: uuid.New(), Name: "b"}}
	require.NoError(t, tdb.WithContext(ctx).Create(&batch).Error)
	for _, r := range batch {
		assert.Equal(t, tenantID, r.TenantID)
	}
}

func TestTenantDB_RejectsCreateForOtherTenant(t *testing.T) {
	tdb := setupSQLite(t, DefaultConfig())
	ctx := tenancy.WithTenant(context.Background(), uuid.New())

	err := tdb.WithContext(ctx).Create(&scopedModel{ID: uuid.New(), TenantID: uuid.New(), Name: "x"}).Error

	assert.ErrorIs(t, err, shared.ErrContextMismatch)

	var n int64
	require.NoError(t, tdb.WithContext(context.Background()).Model(&scopedModel{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestTenantDB_IsolatesIdenticallyNamedRows(t *testing.T) {
	tdb := setupSQLite(t, DefaultConfig())
	tenantA, tenantB := uuid.New(), uuid.New()
	ctxA := tenancy.WithTenant(context.Background(), tenantA)
	ctxB := tenancy.WithTenant(context.Background(), tenantB)

	rowA := scopedModel{ID: uuid.New(), Name: "widget"}
	rowB := scopedModel{ID: uuid.New(), Name: "widget"}
	require.NoError(t, tdb.WithContext(ctxA).Create(&rowA).Error)
	require.NoError(t, tdb.WithContext(ctxB).Create(&rowB).Error)

	t.Run("each tenant sees only its own row", func(t *testing.T) {
		var seenA, seenB []scopedModel
		require.NoError(t, tdb.WithContext(ctxA).Where("name = ?", "widget").Find(&seenA).Error)
		require.NoError(t, tdb.WithContext(ctxB).Where("name = ?", "widget").Find(&seenB).Error)

		require.Len(t, seenA, 1)
		require.Len(t, seenB, 1)
		assert.Equal(t, rowA.ID, seenA[0].ID)
		assert.Equal(t, rowB.ID, seenB[0].ID)
	})

	t.Run("lookup by another tenant's id finds nothing", func(t *testing.T) {
		var found scopedModel
		err := tdb.WithContext(ctxA).First(&found, "id = ?", rowB.ID).Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("OR conditions cannot escape the filter", func(t *testing.T) {
		var seen []scopedModel
		err := tdb.WithContext(ctxA).Where("id = ?", rowB.ID).Or("name = ?", "widget").Find(&seen).Error
		require.NoError(t, err)
		require.Len(t, seen, 1)
		assert.Equal(t, rowA.ID, seen[0].ID)
	})

	t.Run("updates and deletes cannot touch another tenant", func(t *testing.T) {
		res := tdb.WithContext(ctxA).Model(&scopedModel{}).Where("id = ?", rowB.ID).Update("name", "hijacked")
		require.NoError(t, res.Error)
		assert.Equal(t, int64(0), res.RowsAffected)

		res = tdb.WithContext(ctxA).Where("id = ?", rowB.ID).Delete(&scopedModel{})
		require.NoError(t, res.Error)
		assert.Equal(t, int64(0), res.RowsAffected)

		var still scopedModel
		require.NoError(t, tdb.WithContext(ctxB).First(&still, "id = ?", rowB.ID).Error)
		assert.Equal(t, "widget", still.Name)
	})

	t.Run("no bound tenant sees both rows", func(t *testing.T) {
		var all []scopedModel
		require.NoError(t, tdb.WithContext(context.Background()).Where("name = ?", "widget").Find(&all).Error)
		assert.Len(t, all, 2)
	})

	t.Run("row and pluck go through the same filter", func(t *testing.T) {
		var names []string
		require.NoError(t, tdb.WithContext(ctxB).Model(&scopedModel{}).Pluck("name", &names).Error)
		assert.Equal(t, []string{"widget"}, names)

		var count int64
		require.NoError(t, tdb.WithContext(ctxB).Model(&scopedModel{}).Select("count(*)").Row().Scan(&count))
		assert.Equal(t, int64(1), count)
	})
}

func TestTenantDB_Transaction(t *testing.T) {
	tdb := setupSQLite(t, DefaultConfig())
	tenantID := uuid.New()
	ctx := tenancy.WithTenant(context.Background(), tenantID)

	err := tdb.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&scopedModel{ID: uuid.New(), Name: "in-tx"}).Error
	})
	require.NoError(t, err)

	var rows []scopedModel
	require.NoError(t, tdb.WithContext(ctx).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, tenantID, rows[0].TenantID)

	err = tdb.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&scopedModel{ID: uuid.New(), Name: "rolled-back"}).Error; err != nil {
			return err
		}
		return shared.ErrInvalidArgument
	})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	var n int64
	require.NoError(t, tdb.WithContext(ctx).Model(&scopedModel{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestTenantDB_Dialect(t *testing.T) {
	tdb := setupSQLite(t, DefaultConfig())

	assert.Equal(t, "sqlite", tdb.Dialect())
}

func TestInTx_SharesTransaction(t *testing.T) {
	tdb := setupSQLite(t, DefaultConfig())
	ctx := tenancy.WithTenant(context.Background(), uuid.New())

	err := tdb.Transaction(ctx, func(tx *gorm.DB) error {
		conn := InTx(tx)
		assert.Equal(t, "sqlite", conn.Dialect())
		if err := conn.WithContext(ctx).Create(&scopedModel{ID: uuid.New(), Name: "a"}).Error; err != nil {
			return err
		}
		var n int64
		if err := conn.WithContext(ctx).Model(&scopedModel{}).Count(&n).Error; err != nil {
			return err
		}
		assert.Equal(t, int64(1), n)
		return shared.ErrInvalidState
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	var n int64
	require.NoError(t, tdb.WithContext(ctx).Model(&scopedModel{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}
