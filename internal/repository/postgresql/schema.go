package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tax_brackets (
		id                   TEXT PRIMARY KEY,
		min_income           NUMERIC(18, 2) NOT NULL CHECK (min_income >= 0),
		max_income           NUMERIC(18, 2),
		rate                 NUMERIC(6, 3) NOT NULL CHECK (rate BETWEEN 0 AND 100),
		cumulative_tax_below NUMERIC(18, 2),
		effective_from       DATE NOT NULL,
		effective_to         DATE,
		status               TEXT NOT NULL DEFAULT 'active',
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS health_fund_bands (
		id                 SERIAL PRIMARY KEY,
		min_salary         NUMERIC(18, 2) NOT NULL,
		max_salary         NUMERIC(18, 2),
		fixed_contribution NUMERIC(18, 2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS statutory_rules (
		code         TEXT PRIMARY KEY,
		rate_percent NUMERIC(6, 3) NOT NULL,
		amount       NUMERIC(18, 2),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the reference-data tables when they do not exist yet.
func Migrate(ctx context.Context, db *database.DB) error {
	q := GetQuerier(ctx, db)
	for _, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate reference data schema: %w", err)
		}
	}
	return nil
}
