package payroll

import "context"

// ReferenceDataRepository loads and stores the tax and statutory tables.
// Payroll results themselves are never persisted by this module.
type ReferenceDataRepository interface {
	// Tax brackets
	ListTaxBrackets(ctx context.Context) ([]TaxBracket, error)
	SaveTaxBracket(ctx context.Context, bracket TaxBracket) error

	// Statutory tables
	GetStatutoryTables(ctx context.Context) (StatutoryTables, error)
	SaveStatutoryTables(ctx context.Context, tables StatutoryTables) error
}
