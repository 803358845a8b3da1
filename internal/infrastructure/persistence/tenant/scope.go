// Package tenant confines GORM access to the tenant bound in the request context.
//
// Repositories receive a *TenantDB instead of a *gorm.DB. Every way of
// reaching the database through it takes a context, and the Interceptor
// registered on the underlying connection scopes each statement to the tenant
// bound in that context:
//
//	tdb, _ := tenant.NewTenantDB(gormDB, tenant.DefaultConfig())
//	tdb.WithContext(ctx).Find(&items) // WHERE "inventory_items"."tenant_id" = <bound tenant>
package tenant

import (
	"context"

	"gorm.io/gorm"
)

// Config holds configuration for TenantDB
type Config struct {
	// TenantColumn is the name of the tenant ID column (default: "tenant_id")
	TenantColumn string
	// Required fails tenant-scoped statements that run without a bound tenant
	Required bool
}

// DefaultConfig returns default TenantDB configuration
func DefaultConfig() Config {
	return Config{
		TenantColumn: "tenant_id",
		Required:     false,
	}
}

// TenantDB wraps a GORM DB whose statements are tenant-scoped
type TenantDB struct {
	db          *gorm.DB
	interceptor *Interceptor
}

// NewTenantDB registers the isolation callbacks on db and wraps it
func NewTenantDB(db *gorm.DB, cfg Config) (*TenantDB, error) {
	ic := NewInterceptor(cfg.TenantColumn, cfg.Required)
	if err := ic.Register(db); err != nil {
		return nil, err
	}
	return &TenantDB{db: db, interceptor: ic}, nil
}

// WithContext returns a session bound to ctx. Statements issued on it are
// scoped to the tenant bound in ctx.
func (t *TenantDB) WithContext(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

// Transaction runs fn in a database transaction bound to ctx
func (t *TenantDB) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}

// Dialect returns the name of the underlying dialect, e.g. "postgres" or "sqlite"
func (t *TenantDB) Dialect() string {
	return t.db.Dialector.Name()
}

// Conn is a tenant-scoped handle: a TenantDB, or a transaction opened by one.
// Repositories are built on a Conn so the same code runs inside and outside
// a transaction.
type Conn interface {
	WithContext(ctx context.Context) *gorm.DB
	Dialect() string
}

type txConn struct {
	tx *gorm.DB
}

// InTx wraps the transaction handed to a Transaction callback
func InTx(tx *gorm.DB) Conn {
	return txConn{tx: tx}
}

func (c txConn) WithContext(ctx context.Context) *gorm.DB {
	return c.tx.WithContext(ctx)
}

func (c txConn) Dialect() string {
	return c.tx.Dialector.Name()
}

var (
	_ Conn = (*TenantDB)(nil)
	_ Conn = txConn{}
)
