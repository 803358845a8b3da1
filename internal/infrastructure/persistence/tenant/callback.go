package tenant

import (
	"reflect"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/tenancy"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Callback names, registered once per *gorm.DB.
const (
	callbackQuery  = "tenancy:scope_query"
	callbackRow    = "tenancy:scope_row"
	callbackUpdate = "tenancy:scope_update"
	callbackDelete = "tenancy:scope_delete"
	callbackCreate = "tenancy:stamp_create"
)

// Interceptor confines statements on tenant-scoped models to the tenant bound
// in the statement context. A model is tenant-scoped when its schema has the
// tenant column.
//
// Reads, counts, updates and deletes get "<table>.tenant_id = <bound tenant>"
// appended to their WHERE clause. Creates get the bound tenant stamped onto
// rows whose tenant field is zero.
//
// With no bound tenant nothing is added, so maintenance code sees every
// tenant's rows. When Required is set that case fails with
// shared.ErrContextMissing instead.
//
// Raw SQL (db.Raw / db.Exec) carries no schema and is never rewritten.
type Interceptor struct {
	column   string
	required bool
}

// NewInterceptor creates an interceptor for the given column
func NewInterceptor(column string, required bool) *Interceptor {
	if column == "" {
		column = "tenant_id"
	}
	return &Interceptor{
		column:   column,
		required: required,
	}
}

// Register installs the callbacks on db. Calling it again on the same db is a no-op.
func (ic *Interceptor) Register(db *gorm.DB) error {
	cb := db.Callback()
	if cb.Query().Get(callbackQuery) != nil {
		return nil
	}

	if err := cb.Query().Before("gorm:query").Register(callbackQuery, ic.scope); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register(callbackRow, ic.scope); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register(callbackUpdate, ic.scope); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register(callbackDelete, ic.scope); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register(callbackCreate, ic.stamp)
}

// Unregister removes the callbacks. Only tests need this.
func (ic *Interceptor) Unregister(db *gorm.DB) {
	cb := db.Callback()
	_ = cb.Query().Remove(callbackQuery)
	_ = cb.Row().Remove(callbackRow)
	_ = cb.Update().Remove(callbackUpdate)
	_ = cb.Delete().Remove(callbackDelete)
	_ = cb.Create().Remove(callbackCreate)
}

// tenantField returns the tenant field of the statement's model, or nil when
// the model is not tenant-scoped
func (ic *Interceptor) tenantField(db *gorm.DB) *schema.Field {
	if db.Statement == nil || db.Statement.Schema == nil {
		return nil
	}
	return db.Statement.Schema.LookUpField(ic.column)
}

// boundTenant reports the tenant to scope by. ok is false when the statement
// must run unscoped; an error has then been added if scoping is required.
func (ic *Interceptor) boundTenant(db *gorm.DB) (uuid.UUID, bool) {
	tenantID, ok := tenancy.TenantID(db.Statement.Context)
	if !ok {
		if ic.required {
			_ = db.AddError(shared.ErrContextMissing)
		}
		return uuid.Nil, false
	}
	return tenantID, true
}

func (ic *Interceptor) scope(db *gorm.DB) {
	if db.Error != nil || ic.tenantField(db) == nil {
		return
	}
	tenantID, ok := ic.boundTenant(db)
	if !ok {
		return
	}

	filter := clause.Eq{
		Column: clause.Column{Table: clause.CurrentTable, Name: ic.column},
		Value:  tenantID,
	}

	stmt := db.Statement
	if c, exists := stmt.Clauses["WHERE"]; exists {
		if where, isWhere := c.Expression.(clause.Where); isWhere && len(where.Exprs) > 0 {
			// group the caller's conditions so a trailing OR cannot bypass the filter
			c.Expression = clause.Where{Exprs: []clause.Expression{clause.And(where.Exprs...), filter}}
			stmt.Clauses["WHERE"] = c
			return
		}
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{filter}})
}

func (ic *Interceptor) stamp(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	field := ic.tenantField(db)
	if field == nil {
		return
	}
	tenantID, ok := ic.boundTenant(db)
	if !ok {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			ic.stampRow(db, field, reflect.Indirect(rv.Index(i)), tenantID)
		}
	case reflect.Struct:
		ic.stampRow(db, field, rv, tenantID)
	}
}

func (ic *Interceptor) stampRow(db *gorm.DB, field *schema.Field, row reflect.Value, tenantID uuid.UUID) {
	ctx := db.Statement.Context
	value, zero := field.ValueOf(ctx, row)
	if zero {
		if err := field.Set(ctx, row, tenantID); err != nil {
			_ = db.AddError(err)
		}
		return
	}
	if current, ok := value.(uuid.UUID); ok && current != tenantID {
		_ = db.AddError(shared.ErrContextMismatch)
	}
}
