package tenant

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// scopedModel is a tenant-scoped table
type scopedModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID uuid.UUID `gorm:"type:uuid;not null"`
	Name     string
}

func (scopedModel) TableName() string { return "scoped_models" }

// globalModel has no tenant column and is never filtered
type globalModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key"`
	Code string
}

func (globalModel) TableName() string { return "global_models" }

func setupMockDB(t *testing.T, required bool) (*TenantDB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	tdb, err := NewTenantDB(gormDB, Config{Required: required})
	require.NoError(t, err)
	return tdb, mock, mockDB
}

func TestInterceptor_ScopesFind(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, false)
	defer mockDB.Close()
	tenantID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "scoped_models" WHERE "scoped_models"."tenant_id" = $1`)).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []scopedModel
	err := tdb.WithContext(tenancy.WithTenant(context.Background(), tenantID)).Find(&rows).Error

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterceptor_GroupsCallerConditions(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, false)
	defer mockDB.Close()
	tenantID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "scoped_models" WHERE (name = $1 OR name = $2) AND "scoped_models"."tenant_id" = $3`)).
		WithArgs("a", "b", tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []scopedModel
	err := tdb.WithContext(tenancy.WithTenant(context.Background(), tenantID)).
		Where("name = ?", "a").Or("name = ?", "b").
		Find(&rows).Error

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterceptor_ScopesCount(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, false)
	defer mockDB.Close()
	tenantID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "scoped_models" WHERE name = $1 AND "scoped_models"."tenant_id" = $2`)).
		WithArgs("x", tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var n int64
	err := tdb.WithContext(tenancy.WithTenant(context.Background(), tenantID)).
		Model(&scopedModel{}).Where("name = ?", "x").Count(&n).Error

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterceptor_ScopesUpdateAndDelete(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, false)
	defer mockDB.Close()
	tenantID := uuid.New()
	ctx := tenancy.WithTenant(context.Background(), tenantID)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "scoped_models" SET "name"=\$1 WHERE id = \$2 AND "scoped_models"."tenant_id" = \$3`).
		WithArgs("renamed", id, tenantID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "scoped_models" WHERE id = \$1 AND "scoped_models"."tenant_id" = \$2`).
		WithArgs(id, tenantID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, tdb.WithContext(ctx).Model(&scopedModel{}).Where("id = ?", id).Update("name", "renamed").Error)
	require.NoError(t, tdb.WithContext(ctx).Where("id = ?", id).Delete(&scopedModel{}).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterceptor_NoTenantMeansNoFilter(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, false)
	defer mockDB.Close()

	mock.ExpectQuery(`^SELECT \* FROM "scoped_models"$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []scopedModel
	err := tdb.WithContext(context.Background()).Find(&rows).Error

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterceptor_RequiredWithoutTenant(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, true)
	defer mockDB.Close()

	var rows []scopedModel
	err := tdb.WithContext(context.Background()).Find(&rows).Error
	assert.ErrorIs(t, err, shared.ErrContextMissing)

	var n int64
	err = tdb.WithContext(context.Background()).Model(&scopedModel{}).Count(&n).Error
	assert.ErrorIs(t, err, shared.ErrContextMissing)

	err = tdb.WithContext(context.Background()).Create(&scopedModel{ID: uuid.New(), Name: "x"}).Error
	assert.ErrorIs(t, err, shared.ErrContextMissing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterceptor_IgnoresModelsWithoutTenantColumn(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, true)
	defer mockDB.Close()

	mock.ExpectQuery(`^SELECT \* FROM "global_models"$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code"}))

	var rows []globalModel
	err := tdb.WithContext(tenancy.WithTenant(context.Background(), uuid.New())).Find(&rows).Error

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterceptor_RegisterIsIdempotent(t *testing.T) {
	tdb, mock, mockDB := setupMockDB(t, false)
	defer mockDB.Close()
	tenantID := uuid.New()

	_, err := NewTenantDB(tdb.db, DefaultConfig())
	require.NoError(t, err)

	// a second registration would add the filter twice
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "scoped_models" WHERE "scoped_models"."tenant_id" = $1`)).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []scopedModel
	require.NoError(t, tdb.WithContext(tenancy.WithTenant(context.Background(), tenantID)).Find(&rows).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewInterceptor_DefaultColumn(t *testing.T) {
	ic := NewInterceptor("", true)

	assert.Equal(t, "tenant_id", ic.column)
	assert.True(t, ic.required)
}
