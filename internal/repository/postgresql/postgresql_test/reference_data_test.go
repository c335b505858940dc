package postgresqltest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	"github.com/cmlabs-hris/payroll-engine/internal/service/deduction"
	"github.com/cmlabs-hris/payroll-engine/internal/service/taxbracket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taxYearStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestReferenceDataRepository_TaxBracketsRoundTrip(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewReferenceDataRepository(setup.DB)
	ctx := context.Background()

	for _, b := range fixtures.GetDefaultTaxBrackets(taxYearStart) {
		require.NoError(t, repo.SaveTaxBracket(ctx, b))
	}

	brackets, err := repo.ListTaxBrackets(ctx)
	require.NoError(t, err)
	require.Len(t, brackets, 5)
	assert.Equal(t, "paye-band-1", brackets[0].ID)
	assert.Nil(t, brackets[4].MaxIncome)
	assert.True(t, brackets[3].Rate.Equal(decimal.RequireFromString("32.5")))
	require.NotNil(t, brackets[1].CumulativeTaxBelow)
	assert.True(t, brackets[1].CumulativeTaxBelow.Equal(decimal.NewFromInt(28800)))
	assert.True(t, brackets[0].EffectiveFrom.Equal(taxYearStart))
	assert.Equal(t, payroll.BracketStatusActive, brackets[0].Status)

	registry := taxbracket.NewRegistry(nil)
	require.NoError(t, registry.Load(brackets))
	_, err = registry.ActiveBracketsAsOf(taxYearStart.AddDate(0, 5, 0))
	assert.NoError(t, err)
}

func TestReferenceDataRepository_SaveTaxBracketUpserts(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewReferenceDataRepository(setup.DB)
	ctx := context.Background()

	b := fixtures.GetDefaultTaxBrackets(taxYearStart)[0]
	require.NoError(t, repo.SaveTaxBracket(ctx, b))

	end := taxYearStart.AddDate(1, 0, -1)
	b.EffectiveTo = &end
	b.Status = payroll.BracketStatusExpired
	require.NoError(t, repo.SaveTaxBracket(ctx, b))

	brackets, err := repo.ListTaxBrackets(ctx)
	require.NoError(t, err)
	require.Len(t, brackets, 1)
	assert.Equal(t, payroll.BracketStatusExpired, brackets[0].Status)
	require.NotNil(t, brackets[0].EffectiveTo)
	assert.True(t, brackets[0].EffectiveTo.Equal(end))
}

func TestReferenceDataRepository_StatutoryTablesRoundTrip(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewReferenceDataRepository(setup.DB)
	ctx := context.Background()

	require.NoError(t, repo.SaveStatutoryTables(ctx, fixtures.GetDefaultStatutoryTables()))

	tables, err := repo.GetStatutoryTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables.HealthBands, len(fixtures.GetDefaultHealthBands()))
	assert.True(t, tables.Pension.CeilingAmount.Equal(decimal.NewFromInt(2160)))
	assert.Nil(t, tables.HousingLevy.CapAmount)

	_, err = deduction.NewTables(tables)
	assert.NoError(t, err)
}

func TestReferenceDataRepository_MissingRule(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewReferenceDataRepository(setup.DB)

	_, err := repo.GetStatutoryTables(context.Background())
	assert.ErrorIs(t, err, payroll.ErrConfiguration)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewReferenceDataRepository(setup.DB)
	ctx := context.Background()
	boom := errors.New("boom")

	err := postgresql.WithTransaction(ctx, setup.DB, func(ctx context.Context) error {
		if err := repo.SaveTaxBracket(ctx, fixtures.GetDefaultTaxBrackets(taxYearStart)[0]); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	brackets, err := repo.ListTaxBrackets(ctx)
	require.NoError(t, err)
	assert.Empty(t, brackets)
}

func TestWithTransaction_NestedSaveJoinsOuterTransaction(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewReferenceDataRepository(setup.DB)
	ctx := context.Background()
	boom := errors.New("boom")

	err := postgresql.WithTransaction(ctx, setup.DB, func(ctx context.Context) error {
		if err := repo.SaveTaxBracket(ctx, fixtures.GetDefaultTaxBrackets(taxYearStart)[0]); err != nil {
			return err
		}
		if err := repo.SaveStatutoryTables(ctx, fixtures.GetDefaultStatutoryTables()); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	brackets, err := repo.ListTaxBrackets(ctx)
	require.NoError(t, err)
	assert.Empty(t, brackets)

	_, err = repo.GetStatutoryTables(ctx)
	assert.ErrorIs(t, err, payroll.ErrConfiguration)
}
