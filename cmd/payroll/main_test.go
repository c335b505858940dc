package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const request = `{
  "period": {
    "start_date": "2024-06-01T00:00:00Z",
    "end_date": "2024-06-30T00:00:00Z",
    "pay_date": "2024-06-28T00:00:00Z"
  },
  "employees": [
    {
      "employee": {"id": "e1", "code": "EMP-001", "name": "Achieng Otieno"},
      "profile": {"employee_id": "e1", "base_salary": "100000", "salary_basis": "monthly"},
      "attendance": {"employee_id": "e1", "days_worked": 22, "overtime_hours": 0, "absent_days": 0, "late_days": 0}
    },
    {
      "employee": {"id": "e2", "code": "EMP-002", "name": "Brian Mwangi"},
      "profile": {"employee_id": "e2", "base_salary": "40000", "salary_basis": "monthly"}
    }
  ],
  "year_to_date": {
    "e1": {"fiscal_year": 2024, "gross_earnings": "500000", "total_deductions": "135476.65", "net_pay": "364523.35", "tax_paid": "108676.65"}
  }
}`

func setEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("DB_HOST", "")
	t.Setenv("APP_ENV", "development")
	t.Setenv("LOG_LEVEL", "error")
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestRun_BatchFromStdin(t *testing.T) {
	envFile := setEnv(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-env", envFile}, strings.NewReader(request), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var resp batchResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))

	require.Len(t, resp.Batch.Outcomes, 2)
	assert.Equal(t, payroll.OutcomeSucceeded, resp.Batch.Outcomes[0].Status)
	assert.Equal(t, payroll.OutcomeFailed, resp.Batch.Outcomes[1].Status)
	assert.Contains(t, resp.Batch.Outcomes[1].Error, "attendance")
	assert.Equal(t, 1, resp.Batch.FailureCount)

	require.Len(t, resp.Payslips, 1)
	slip := resp.Payslips[0]
	assert.Equal(t, "e1", slip.EmployeeID)
	assert.True(t, slip.NetPay.Equal(decimal.RequireFromString("72904.67")), slip.NetPay.String())
	assert.True(t, slip.YTDTotals.GrossEarnings.Equal(decimal.NewFromInt(600000)))
	assert.True(t, slip.YTDTotals.NetPay.Equal(decimal.RequireFromString("437428.02")))
}

func TestRun_BatchFromFile(t *testing.T) {
	envFile := setEnv(t)
	path := filepath.Join(t.TempDir(), "june.json")
	require.NoError(t, os.WriteFile(path, []byte(request), 0o600))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-env", envFile, "-input", path}, nil, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.Contains(t, stdout.String(), `"applied_bracket_set_id"`)
}

func TestRun_RejectsBadRequest(t *testing.T) {
	envFile := setEnv(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-env", envFile}, strings.NewReader(`{"employees": []}`), &stdout, &stderr)
	assert.ErrorIs(t, err, payroll.ErrInvalidInput)

	err = run(context.Background(), []string{"-env", envFile}, strings.NewReader(`not json`), &stdout, &stderr)
	assert.Error(t, err)
}

func TestRun_SeedNeedsDatabase(t *testing.T) {
	envFile := setEnv(t)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-env", envFile, "-seed"}, nil, &stdout, &stderr)
	assert.Error(t, err)
}
