// Package repository provides the storage interfaces and GORM implementations
// behind the alias registry, the transaction stores, the resolution ledger and
// the settings store.
//
// # Transactions
//
// Store bundles one instance of every repository bound to the same *gorm.DB.
// Store.WithTx runs a function against a Store bound to a database
// transaction, so a multi-step mutation either fully commits or leaves no
// trace:
//
//	err := store.WithTx(ctx, func(tx *repository.Store) error {
//	    if _, err := tx.Transactions.Delete(ctx, entities.SourceB, key.SourceBRowID); err != nil {
//	        return err
//	    }
//	    return tx.Ledger.Append(ctx, entry)
//	})
//
// # Error Handling
//
// Repositories return EnhancedErrors. Missing records are reported with the
// not-found category wrapping a sentinel (ErrAliasNotFound, ...); every other
// failure of the underlying store carries the database category.
package repository
