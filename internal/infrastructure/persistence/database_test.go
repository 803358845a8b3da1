package persistence

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestNewDatabase(t *testing.T) {
	t.Run("sqlite in memory", func(t *testing.T) {
		db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, Options{LogLevel: "silent"})
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, db.Ping())
		require.NoError(t, db.AutoMigrate())
		for _, table := range []string{"tenants", "inventory_items", "stock_movements", "audit_logs"} {
			assert.True(t, db.DB.Migrator().HasTable(table), table)
		}

		sqlDB, err := db.DB.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		_, err := NewDatabase(&config.DatabaseConfig{Driver: "mysql"}, Options{})
		assert.ErrorContains(t, err, "unsupported database driver")
	})
}

func TestDatabase_TenantDBDialect(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	db := &Database{DB: gormDB}
	tdb, err := db.TenantDB(tenant.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "postgres", tdb.Dialect())

	assert.NoError(t, db.Ping())

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
