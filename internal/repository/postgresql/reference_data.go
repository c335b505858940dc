package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	rulePensionFund = "pension_fund"
	ruleHousingLevy = "housing_levy"
)

type referenceDataRepository struct {
	db *database.DB
}

func NewReferenceDataRepository(db *database.DB) payroll.ReferenceDataRepository {
	return &referenceDataRepository{db: db}
}

// ========== TAX BRACKETS ==========

func (r *referenceDataRepository) ListTaxBrackets(ctx context.Context) ([]payroll.TaxBracket, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, min_income, max_income, rate, cumulative_tax_below,
			   effective_from, effective_to, status
		FROM tax_brackets
		ORDER BY effective_from, min_income
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax brackets: %w", err)
	}
	defer rows.Close()

	var brackets []payroll.TaxBracket
	for rows.Next() {
		var b payroll.TaxBracket
		var status string
		if err := rows.Scan(
			&b.ID, &b.MinIncome, &b.MaxIncome, &b.Rate, &b.CumulativeTaxBelow,
			&b.EffectiveFrom, &b.EffectiveTo, &status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tax bracket: %w", err)
		}
		b.Status = payroll.BracketStatus(status)
		brackets = append(brackets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tax brackets: %w", err)
	}

	return brackets, nil
}

func (r *referenceDataRepository) SaveTaxBracket(ctx context.Context, b payroll.TaxBracket) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO tax_brackets (
			id, min_income, max_income, rate, cumulative_tax_below,
			effective_from, effective_to, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			min_income = EXCLUDED.min_income,
			max_income = EXCLUDED.max_income,
			rate = EXCLUDED.rate,
			cumulative_tax_below = EXCLUDED.cumulative_tax_below,
			effective_from = EXCLUDED.effective_from,
			effective_to = EXCLUDED.effective_to,
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := q.Exec(ctx, query,
		b.ID, b.MinIncome, b.MaxIncome, b.Rate, b.CumulativeTaxBelow,
		payroll.CalendarDate(b.EffectiveFrom), calendarDatePtr(b.EffectiveTo), string(b.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to save tax bracket %s: %w", b.ID, err)
	}
	return nil
}

// ========== STATUTORY TABLES ==========

func (r *referenceDataRepository) GetStatutoryTables(ctx context.Context) (payroll.StatutoryTables, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT min_salary, max_salary, fixed_contribution
		FROM health_fund_bands
		ORDER BY min_salary
	`)
	if err != nil {
		return payroll.StatutoryTables{}, fmt.Errorf("failed to list health fund bands: %w", err)
	}
	bands, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (payroll.DeductionBand, error) {
		var b payroll.DeductionBand
		err := row.Scan(&b.MinSalary, &b.MaxSalary, &b.FixedContribution)
		return b, err
	})
	if err != nil {
		return payroll.StatutoryTables{}, fmt.Errorf("failed to scan health fund bands: %w", err)
	}

	pensionRate, pensionCeiling, err := r.getRule(ctx, q, rulePensionFund)
	if err != nil {
		return payroll.StatutoryTables{}, err
	}
	if pensionCeiling == nil {
		return payroll.StatutoryTables{}, fmt.Errorf("%w: %s rule has no ceiling", payroll.ErrConfiguration, rulePensionFund)
	}
	levyRate, levyCap, err := r.getRule(ctx, q, ruleHousingLevy)
	if err != nil {
		return payroll.StatutoryTables{}, err
	}

	return payroll.StatutoryTables{
		HealthBands: bands,
		Pension:     payroll.TieredContributionRule{RatePercent: pensionRate, CeilingAmount: *pensionCeiling},
		HousingLevy: payroll.CappedLevyRule{RatePercent: levyRate, CapAmount: levyCap},
	}, nil
}

func (r *referenceDataRepository) getRule(ctx context.Context, q database.Querier, code string) (decimal.Decimal, *decimal.Decimal, error) {
	var rate decimal.Decimal
	var amount *decimal.Decimal
	err := q.QueryRow(ctx, `SELECT rate_percent, amount FROM statutory_rules WHERE code = $1`, code).Scan(&rate, &amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil, fmt.Errorf("%w: statutory rule %s is not configured", payroll.ErrConfiguration, code)
		}
		return decimal.Zero, nil, fmt.Errorf("failed to get statutory rule %s: %w", code, err)
	}
	return rate, amount, nil
}

// SaveStatutoryTables replaces the health bands and upserts both rules in one transaction.
func (r *referenceDataRepository) SaveStatutoryTables(ctx context.Context, tables payroll.StatutoryTables) error {
	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		if _, err := q.Exec(ctx, `DELETE FROM health_fund_bands`); err != nil {
			return fmt.Errorf("failed to clear health fund bands: %w", err)
		}
		for _, b := range tables.HealthBands {
			_, err := q.Exec(ctx,
				`INSERT INTO health_fund_bands (min_salary, max_salary, fixed_contribution) VALUES ($1, $2, $3)`,
				b.MinSalary, b.MaxSalary, b.FixedContribution,
			)
			if err != nil {
				return fmt.Errorf("failed to insert health fund band: %w", err)
			}
		}

		upsert := `
			INSERT INTO statutory_rules (code, rate_percent, amount) VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET
				rate_percent = EXCLUDED.rate_percent,
				amount = EXCLUDED.amount,
				updated_at = NOW()
		`
		ceiling := tables.Pension.CeilingAmount
		if _, err := q.Exec(ctx, upsert, rulePensionFund, tables.Pension.RatePercent, &ceiling); err != nil {
			return fmt.Errorf("failed to save %s rule: %w", rulePensionFund, err)
		}
		if _, err := q.Exec(ctx, upsert, ruleHousingLevy, tables.HousingLevy.RatePercent, tables.HousingLevy.CapAmount); err != nil {
			return fmt.Errorf("failed to save %s rule: %w", ruleHousingLevy, err)
		}
		return nil
	})
}

func calendarDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := payroll.CalendarDate(*t)
	return &d
}
