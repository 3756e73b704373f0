package repository

import (
	"fmt"

	"github.com/alexknuckles/ultrasuite/internal/errors"
)

// Sentinel errors for repository operations. They are wrapped in
// not-found EnhancedErrors, so both errors.Is and errors.IsNotFound work.
var (
	// ErrAliasNotFound indicates the requested alias has no registry row.
	ErrAliasNotFound = errors.NewStd("alias not found")

	// ErrTransactionNotFound indicates the requested transaction row does not exist.
	ErrTransactionNotFound = errors.NewStd("transaction not found")

	// ErrLedgerEntryNotFound indicates no ledger entry exists for the pair.
	ErrLedgerEntryNotFound = errors.NewStd("ledger entry not found")

	// ErrSettingNotFound indicates the setting key is not stored.
	ErrSettingNotFound = errors.NewStd("setting not found")

	// ErrInvalidSource indicates a source other than the two known systems.
	ErrInvalidSource = errors.NewStd("invalid source")
)

// dbError creates a properly categorized database error with context
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Priority(errors.PriorityHigh).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError wraps a sentinel into a not-found error
func notFoundError(sentinel error, identifier any) error {
	return errors.New(fmt.Errorf("%w: %v", sentinel, identifier)).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("identifier", fmt.Sprintf("%v", identifier)).
		Build()
}

// validationError creates a validation error
func validationError(sentinel error, field string, value any) error {
	return errors.New(fmt.Errorf("%w: %s=%v", sentinel, field, value)).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}
