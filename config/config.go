package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/laskuri/fx"
	"github.com/rustyeddy/laskuri/report"
	"github.com/rustyeddy/laskuri/tax"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the complete laskuri configuration.
type Config struct {
	Tax     TaxConfig     `json:"tax" yaml:"tax"`
	Ledger  LedgerConfig  `json:"ledger" yaml:"ledger"`
	FX      FXConfig      `json:"fx" yaml:"fx"`
	Report  ReportConfig  `json:"report" yaml:"report"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Workers int           `json:"workers" yaml:"workers"`
}

// TaxConfig holds the deemed acquisition cost rates as decimal strings.
type TaxConfig struct {
	DeemedCostRate string `json:"deemed_cost_rate" yaml:"deemed_cost_rate"`
	LongHoldRate   string `json:"long_hold_rate" yaml:"long_hold_rate"`
	LongHoldYears  int    `json:"long_hold_years" yaml:"long_hold_years"` // 0 disables the long-hold rate
}

type LedgerConfig struct {
	Fiat              []string `json:"fiat" yaml:"fiat"`
	ReportingCurrency string   `json:"reporting_currency" yaml:"reporting_currency"`
	Source            string   `json:"source" yaml:"source"`
}

type FXConfig struct {
	BaseURL           string  `json:"base_url" yaml:"base_url"`
	APIKey            string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Timeout           string  `json:"timeout" yaml:"timeout"`     // e.g. "20s"
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	CacheTTL          string  `json:"cache_ttl" yaml:"cache_ttl"` // e.g. "24h"
}

type ReportConfig struct {
	Format    string `json:"format" yaml:"format"` // csv, xlsx or org
	Template  string `json:"template,omitempty" yaml:"template,omitempty"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

type JournalConfig struct {
	DBPath  string `json:"db_path" yaml:"db_path"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json
}

// LoadFromFile loads configuration from a YAML or JSON file. Fields the
// file leaves out keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func parseRate(name, s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be between 0 and 1", name)
	}
	return r, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.TaxConfig(); err != nil {
		return err
	}
	if c.Tax.LongHoldYears < 0 {
		return fmt.Errorf("tax.long_hold_years must not be negative")
	}

	if len(c.Ledger.Fiat) == 0 {
		return fmt.Errorf("ledger.fiat is required")
	}
	if c.Ledger.ReportingCurrency == "" {
		return fmt.Errorf("ledger.reporting_currency is required")
	}
	inFiat := false
	for _, f := range c.Ledger.Fiat {
		if strings.EqualFold(f, c.Ledger.ReportingCurrency) {
			inFiat = true
		}
	}
	if !inFiat {
		return fmt.Errorf("ledger.reporting_currency %s is not in ledger.fiat", c.Ledger.ReportingCurrency)
	}

	if _, err := c.FXConfig(); err != nil {
		return err
	}
	if c.FX.RequestsPerSecond < 0 {
		return fmt.Errorf("fx.requests_per_second must not be negative")
	}

	validFormat := false
	for _, f := range report.Formats {
		if c.Report.Format == f {
			validFormat = true
		}
	}
	if !validFormat {
		return fmt.Errorf("report.format must be one of %s", strings.Join(report.Formats, ", "))
	}

	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required when journal is enabled")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// TaxConfig converts the tax section for the engine.
func (c *Config) TaxConfig() (tax.Config, error) {
	rate, err := parseRate("tax.deemed_cost_rate", c.Tax.DeemedCostRate)
	if err != nil {
		return tax.Config{}, err
	}
	cfg := tax.Config{DeemedCostRate: rate, LongHoldYears: c.Tax.LongHoldYears}
	if c.Tax.LongHoldRate != "" {
		if cfg.LongHoldRate, err = parseRate("tax.long_hold_rate", c.Tax.LongHoldRate); err != nil {
			return tax.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return tax.Config{}, err
	}
	return cfg, nil
}

// FXConfig converts the fx section for fx.NewClient.
func (c *Config) FXConfig() (fx.Config, error) {
	timeout, err := parseDuration("fx.timeout", c.FX.Timeout)
	if err != nil {
		return fx.Config{}, err
	}
	ttl, err := parseDuration("fx.cache_ttl", c.FX.CacheTTL)
	if err != nil {
		return fx.Config{}, err
	}
	return fx.Config{
		BaseURL:           c.FX.BaseURL,
		APIKey:            c.FX.APIKey,
		Timeout:           timeout,
		RequestsPerSecond: c.FX.RequestsPerSecond,
		CacheTTL:          ttl,
	}, nil
}

// Environment variables that override the file.
const (
	EnvFXAPIKey = "FX_API_KEY"
	EnvLogLevel = "LASKURI_LOG_LEVEL"
	EnvDB       = "LASKURI_DB"
)

// ApplyEnv loads the given dotenv files (".env" when none are named; missing
// files are skipped) and then applies the environment overrides. Variables
// already set in the process environment win over dotenv values.
func (c *Config) ApplyEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvFXAPIKey); v != "" {
		c.FX.APIKey = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Journal.DBPath = v
		c.Journal.Enabled = true
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Tax: TaxConfig{
			DeemedCostRate: "0.20",
			LongHoldRate:   "0.40",
			LongHoldYears:  0,
		},
		Ledger: LedgerConfig{
			Fiat:              []string{"EUR", "GBP", "USD"},
			ReportingCurrency: "EUR",
			Source:            "Kraken",
		},
		FX: FXConfig{
			BaseURL:           fx.DefaultBaseURL,
			Timeout:           "20s",
			RequestsPerSecond: 2,
			CacheTTL:          "24h",
		},
		Report: ReportConfig{
			Format:    report.FormatCSV,
			Template:  "vero_laskuri_template.xlsx",
			OutputDir: ".",
		},
		Journal: JournalConfig{
			DBPath: "./laskuri.sqlite",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Workers: 4,
	}
}
