package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// The item row and its movements always change together: ItemRepo writes the
// materialized quantity, MovementRepo appends the entry that explains it.
type TransactionalRepositories interface {
	// ItemRepo returns the item repository scoped to the current transaction
	ItemRepo() inventory.ItemRepository
	// MovementRepo returns the movement repository scoped to the current transaction
	MovementRepo() inventory.MovementRepository
}
