package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/money"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Payroll  payroll.EngineConfig
}

// DatabaseConfig is optional. Without DB_HOST the reference data comes from fixtures.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// AppConfig holds application configuration
type AppConfig struct {
	Env      string
	LogLevel string
}

// Load reads the given env files (".env" when none are named) and then the
// process environment. A missing env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	config.App = AppConfig{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	// Payroll engine configuration
	if config.Payroll, err = loadPayroll(); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadPayroll() (payroll.EngineConfig, error) {
	defaults := payroll.DefaultEngineConfig()
	var cfg payroll.EngineConfig
	var err error

	if cfg.StandardWorkingDays, err = getEnvInt("PAYROLL_STANDARD_WORKING_DAYS", defaults.StandardWorkingDays); err != nil {
		return cfg, err
	}
	if cfg.StandardHoursPerDay, err = getEnvDecimal("PAYROLL_STANDARD_HOURS_PER_DAY", defaults.StandardHoursPerDay); err != nil {
		return cfg, err
	}
	if cfg.OvertimeMultiplier, err = getEnvDecimal("PAYROLL_OVERTIME_MULTIPLIER", defaults.OvertimeMultiplier); err != nil {
		return cfg, err
	}

	policy, err := money.ParsePolicy(getEnv("PAYROLL_ROUNDING_POLICY", string(defaults.Rounding.Policy)))
	if err != nil {
		return cfg, fmt.Errorf("invalid PAYROLL_ROUNDING_POLICY: %w", err)
	}
	places, err := getEnvInt("PAYROLL_ROUNDING_PLACES", int(defaults.Rounding.Places))
	if err != nil {
		return cfg, err
	}
	if places < 0 || places > math.MaxInt32 {
		return cfg, fmt.Errorf("invalid PAYROLL_ROUNDING_PLACES: %d is out of range", places)
	}
	cfg.Rounding = money.Rounding{Policy: policy, Places: int32(places)}

	if cfg.PensionPreTax, err = getEnvBool("PAYROLL_PENSION_PRE_TAX", defaults.PensionPreTax); err != nil {
		return cfg, err
	}
	if cfg.PersonalRelief, err = getEnvDecimal("PAYROLL_PERSONAL_RELIEF", defaults.PersonalRelief); err != nil {
		return cfg, err
	}
	if cfg.PayPeriodsPerYear, err = getEnvInt("PAYROLL_PERIODS_PER_YEAR", defaults.PayPeriodsPerYear); err != nil {
		return cfg, err
	}
	if cfg.AnnualBrackets, err = getEnvBool("PAYROLL_ANNUAL_BRACKETS", defaults.AnnualBrackets); err != nil {
		return cfg, err
	}
	if cfg.LateDeductionPerDay, err = getEnvDecimal("PAYROLL_LATE_DEDUCTION_PER_DAY", defaults.LateDeductionPerDay); err != nil {
		return cfg, err
	}
	if cfg.Workers, err = getEnvInt("PAYROLL_BATCH_WORKERS", defaults.Workers); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Enabled() {
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required when DB_HOST is set")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required when DB_HOST is set")
		}
	}
	switch c.App.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.App.LogLevel)
	}
	return c.Payroll.Validate()
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
