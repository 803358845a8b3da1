package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/tenant"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL error codes the ledger treats as contention
const (
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db          *tenant.TenantDB
	lockTimeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope. On PostgreSQL a
// positive lockTimeout bounds how long a statement waits for a row lock.
func NewGormTransactionScope(db *tenant.TenantDB, lockTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, lockTimeout: lockTimeout}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if s.db.Dialect() == "postgres" && s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(&gormTransactionalRepositories{conn: tenant.InTx(tx)})
	})
	return translateTxError(err)
}

// translateTxError maps lock waits that ran out and lost races on an item's
// version slot to shared.ErrContention. Other errors pass through unchanged.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgUniqueViolation:
			return fmt.Errorf("%w: %s", shared.ErrContention, pgErr.Message)
		}
	}
	return err
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	conn tenant.Conn
}

// ItemRepo returns the item repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ItemRepo() inventory.ItemRepository {
	return NewGormItemRepository(r.conn)
}

// MovementRepo returns the movement repository scoped to the current transaction.
func (r *gormTransactionalRepositories) MovementRepo() inventory.MovementRepository {
	return NewGormMovementRepository(r.conn)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
