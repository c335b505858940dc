package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/fixtures"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	"github.com/cmlabs-hris/payroll-engine/internal/service/deduction"
	payrollService "github.com/cmlabs-hris/payroll-engine/internal/service/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/service/payslip"
	"github.com/cmlabs-hris/payroll-engine/internal/service/taxbracket"
)

// batchRequest is the JSON document read from -input.
type batchRequest struct {
	Period     payroll.Period                `json:"period"`
	Employees  []payroll.EmployeeInput       `json:"employees"`
	YearToDate map[string]payroll.YearToDate `json:"year_to_date"`
}

type batchResponse struct {
	Batch    payroll.PayrollBatchResult `json:"batch"`
	Payslips []payroll.Payslip          `json:"payslips"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "payroll:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("payroll", flag.ContinueOnError)
	flags.SetOutput(stderr)
	input := flags.String("input", "-", "batch request JSON file, - for stdin")
	seed := flags.Bool("seed", false, "write the default reference data to the database and exit")
	envFile := flags.String("env", ".env", "env file to load before the environment")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg.App)

	var db *database.DB
	if cfg.Database.Enabled() {
		db, err = database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		defer db.Close()
	}

	if *seed {
		if db == nil {
			return errors.New("-seed needs DB_HOST")
		}
		return seedReferenceData(ctx, db, logger)
	}

	req, err := readRequest(*input, stdin)
	if err != nil {
		return err
	}

	registry := taxbracket.NewRegistry(logger)
	tables, err := loadReferenceData(ctx, db, registry, req.Period, logger)
	if err != nil {
		return err
	}

	engine, err := payrollService.NewPayrollEngine(cfg.Payroll, registry, tables, nil, logger)
	if err != nil {
		return err
	}
	batch, err := engine.CalculateBatch(ctx, req.Employees, req.Period)
	if err != nil {
		return err
	}

	assembler := payslip.NewAssembler()
	resp := batchResponse{Batch: batch, Payslips: make([]payroll.Payslip, 0, batch.EmployeeCount)}
	for _, result := range batch.Results() {
		slip, err := assembler.Assemble(result, req.YearToDate[result.EmployeeID])
		if err != nil {
			return fmt.Errorf("failed to assemble payslip for %s: %w", result.EmployeeID, err)
		}
		resp.Payslips = append(resp.Payslips, slip)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func readRequest(path string, stdin io.Reader) (batchRequest, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return batchRequest{}, fmt.Errorf("failed to open batch request: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req batchRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return batchRequest{}, fmt.Errorf("failed to decode batch request: %w", err)
	}
	if err := req.Period.Validate(); err != nil {
		return batchRequest{}, err
	}
	return req, nil
}

// loadReferenceData fills the registry and builds the deduction tables, from the
// database when one is configured and from fixtures otherwise. Brackets whose
// effective window has closed are expired and, with a database, written back.
func loadReferenceData(
	ctx context.Context,
	db *database.DB,
	registry payroll.BracketRegistry,
	period payroll.Period,
	logger *slog.Logger,
) (*deduction.Tables, error) {
	var repo payroll.ReferenceDataRepository
	brackets := fixtures.GetDefaultTaxBrackets(time.Date(period.PayDate.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
	statutory := fixtures.GetDefaultStatutoryTables()

	if db != nil {
		repo = postgresql.NewReferenceDataRepository(db)
		var err error
		if brackets, err = repo.ListTaxBrackets(ctx); err != nil {
			return nil, err
		}
		if statutory, err = repo.GetStatutoryTables(ctx); err != nil {
			return nil, err
		}
	} else {
		logger.Info("no database configured, using default reference data")
	}

	if err := registry.Load(brackets); err != nil {
		return nil, fmt.Errorf("failed to load tax brackets: %w", err)
	}
	if expired := registry.ExpireElapsed(time.Now()); expired > 0 && repo != nil {
		err := postgresql.WithTransaction(ctx, db, func(ctx context.Context) error {
			for _, b := range registry.Brackets() {
				if b.Status != payroll.BracketStatusExpired {
					continue
				}
				if err := repo.SaveTaxBracket(ctx, b); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	tables, err := deduction.NewTables(statutory)
	if err != nil {
		return nil, fmt.Errorf("failed to load statutory tables: %w", err)
	}
	return tables, nil
}

func seedReferenceData(ctx context.Context, db *database.DB, logger *slog.Logger) error {
	repo := postgresql.NewReferenceDataRepository(db)
	taxYear := time.Date(time.Now().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	err := postgresql.WithTransaction(ctx, db, func(ctx context.Context) error {
		if err := postgresql.Migrate(ctx, db); err != nil {
			return err
		}
		for _, b := range fixtures.GetDefaultTaxBrackets(taxYear) {
			if err := repo.SaveTaxBracket(ctx, b); err != nil {
				return err
			}
		}
		return repo.SaveStatutoryTables(ctx, fixtures.GetDefaultStatutoryTables())
	})
	if err != nil {
		return err
	}

	logger.Info("reference data seeded", "tax_year", taxYear.Year())
	return nil
}
