package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/stocksim/market"
	"github.com/rustyeddy/stocksim/risk"
	"github.com/rustyeddy/stocksim/sim"
)

const dateLayout = "2006-01-02"

// Config represents the complete backtest configuration
type Config struct {
	Account  AccountConfig    `json:"account" yaml:"account"`
	Market   market.Limits    `json:"market" yaml:"market"`
	Fees     market.Fees      `json:"fees" yaml:"fees"`
	Stops    sim.StopSettings `json:"stops" yaml:"stops"`
	Strategy StrategyConfig   `json:"strategy" yaml:"strategy"`
	Backtest BacktestConfig   `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig    `json:"journal" yaml:"journal"`
	Logging  LoggingConfig    `json:"logging" yaml:"logging"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	Broker    string  `json:"broker" yaml:"broker"`
	Cash      float64 `json:"cash" yaml:"cash"`
	RiskGuard int     `json:"risk_guard" yaml:"risk_guard"`
	Slippage  float64 `json:"slippage" yaml:"slippage"` // percent
	T1        bool    `json:"t1" yaml:"t1"`
}

// StrategyConfig selects the strategy and its sizing rules
type StrategyConfig struct {
	Name           string  `json:"name" yaml:"name"`
	PositionPct    float64 `json:"position_pct" yaml:"position_pct"`
	MaxPositions   int     `json:"max_positions,omitempty" yaml:"max_positions,omitempty"`
	MaxPositionPct float64 `json:"max_position_pct,omitempty" yaml:"max_position_pct,omitempty"`
	MinCashPct     float64 `json:"min_cash_pct,omitempty" yaml:"min_cash_pct,omitempty"`
	Fast           int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow           int     `json:"slow,omitempty" yaml:"slow,omitempty"`
}

// BacktestConfig describes what to replay
type BacktestConfig struct {
	Granularity string   `json:"granularity" yaml:"granularity"` // tick, 1d, 1m
	Start       string   `json:"start" yaml:"start"`             // YYYY-MM-DD
	End         string   `json:"end" yaml:"end"`
	Codes       []string `json:"codes" yaml:"codes"`
	DataDir     string   `json:"data_dir" yaml:"data_dir"`
	DataFormat  string   `json:"data_format" yaml:"data_format"` // csv or parquet
	Ticks       string   `json:"ticks,omitempty" yaml:"ticks,omitempty"`
	Workers     int      `json:"workers" yaml:"workers"`
	// PerCode runs one isolated account per code instead of one account
	// trading all codes.
	PerCode  bool `json:"per_code,omitempty" yaml:"per_code,omitempty"`
	CloseEnd bool `json:"close_end,omitempty" yaml:"close_end,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type          string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	DealsFile     string `json:"deals_file,omitempty" yaml:"deals_file,omitempty"`
	SnapshotsFile string `json:"snapshots_file,omitempty" yaml:"snapshots_file,omitempty"`
	DBPath        string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgDir        string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

// LoggingConfig controls the logger and its optional rotating file
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
	Compress   bool   `json:"compress,omitempty" yaml:"compress,omitempty"`
}

// Env holds the STOCKSIM_* overrides.
type Env struct {
	LogLevel  string `envconfig:"LOG_LEVEL"`
	JournalDB string `envconfig:"JOURNAL_DB"`
	DataDir   string `envconfig:"DATA_DIR"`
	Workers   int    `envconfig:"WORKERS"`
}

// Load reads path (defaults when empty), applies environment overrides and
// validates the result.
func Load(path string, dotenv ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = parseFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(dotenv...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func parseFile(path string) (*Config, error) {
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
	return cfg, nil
}

// ApplyEnv loads the given .env files (".env" when none, missing files are
// fine) and then applies STOCKSIM_* variables over c.
func (c *Config) ApplyEnv(dotenv ...string) error {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, f := range dotenv {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	var env Env
	if err := envconfig.Process("stocksim", &env); err != nil {
		return fmt.Errorf("process env: %w", err)
	}

	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}
	if env.JournalDB != "" {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = env.JournalDB
	}
	if env.DataDir != "" {
		c.Backtest.DataDir = env.DataDir
	}
	if env.Workers > 0 {
		c.Backtest.Workers = env.Workers
	}
	return nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
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

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Broker == "" {
		return fmt.Errorf("account.broker is required")
	}
	if c.Account.Cash <= 0 {
		return fmt.Errorf("account.cash must be positive")
	}
	if c.Account.RiskGuard < 0 {
		return fmt.Errorf("account.risk_guard must not be negative")
	}
	if c.Account.Slippage < 0 || c.Account.Slippage >= 10 {
		return fmt.Errorf("account.slippage must be between 0 and 10 percent")
	}
	if c.Market.UpPct <= 0 || c.Market.DownPct >= 0 {
		return fmt.Errorf("market.limit_up_pct must be positive and market.limit_down_pct negative")
	}
	if c.Market.GrowthUpPct < 0 || c.Market.GrowthDownPct > 0 {
		return fmt.Errorf("market.growth_limit_up_pct must not be negative and market.growth_limit_down_pct not positive")
	}
	if c.Fees.CommissionRate < 0 || c.Fees.MinCommission < 0 || c.Fees.StampTaxRate < 0 || c.Fees.TransferFeeRate < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	if err := c.Stops.Validate(); err != nil {
		return fmt.Errorf("stops: %w", err)
	}
	if c.Strategy.PositionPct < 0 || c.Strategy.PositionPct > 100 {
		return fmt.Errorf("strategy.position_pct must be between 0 and 100")
	}

	if _, err := c.GranularityValue(); err != nil {
		return fmt.Errorf("backtest.granularity: %w", err)
	}
	start, end, err := c.Period()
	if err != nil {
		return err
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("backtest.end is before backtest.start")
	}
	switch c.Backtest.DataFormat {
	case "", "csv", "parquet":
	default:
		return fmt.Errorf("backtest.data_format must be 'csv' or 'parquet'")
	}
	if c.Backtest.Workers < 0 {
		return fmt.Errorf("backtest.workers must not be negative")
	}

	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.DealsFile == "" || c.Journal.SnapshotsFile == "" {
			return fmt.Errorf("journal deals_file and snapshots_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	return nil
}

func (c *Config) GranularityValue() (market.Granularity, error) {
	return market.ParseGranularity(c.Backtest.Granularity)
}

// Period parses backtest.start and backtest.end. Missing dates are zero.
func (c *Config) Period() (start, end time.Time, err error) {
	if c.Backtest.Start != "" {
		if start, err = time.Parse(dateLayout, c.Backtest.Start); err != nil {
			return start, end, fmt.Errorf("backtest.start: %w", err)
		}
	}
	if c.Backtest.End != "" {
		if end, err = time.Parse(dateLayout, c.Backtest.End); err != nil {
			return start, end, fmt.Errorf("backtest.end: %w", err)
		}
	}
	return start, end, nil
}

// RiskPolicy is the sizing policy strategies apply before buying.
func (c *Config) RiskPolicy() risk.Policy {
	return risk.Policy{
		MaxPositions:   c.Strategy.MaxPositions,
		MaxPositionPct: c.Strategy.MaxPositionPct,
		MinCashPct:     c.Strategy.MinCashPct,
	}
}

// SimConfig converts the account part of c for sim.NewAccountManager.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Broker:    c.Account.Broker,
		Cash:      c.Account.Cash,
		RiskGuard: c.Account.RiskGuard,
		Slippage:  c.Account.Slippage,
		T1:        c.Account.T1,
		Limits:    c.Market,
		Fees:      c.Fees,
		Stops:     c.Stops,
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	sc := sim.DefaultConfig()
	rp := risk.DefaultPolicy()
	return &Config{
		Account: AccountConfig{
			Broker: sc.Broker,
			Cash:   sc.Cash,
			T1:     sc.T1,
		},
		Market: sc.Limits,
		Fees:   sc.Fees,
		Stops: sim.StopSettings{
			StopLoss:   sim.StopSetting{Name: sim.PolicyFixed, Params: []float64{-5}},
			StopProfit: sim.StopSetting{Name: sim.PolicyNone},
			StopTime:   sim.StopSetting{Name: sim.PolicyNone},
		},
		Strategy: StrategyConfig{
			Name:           "ma-cross",
			PositionPct:    10,
			MaxPositions:   rp.MaxPositions,
			MaxPositionPct: rp.MaxPositionPct,
			MinCashPct:     rp.MinCashPct,
			Fast:           5,
			Slow:           20,
		},
		Backtest: BacktestConfig{
			Granularity: "1d",
			DataDir:     "./data",
			DataFormat:  "csv",
			Workers:     1,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./stocksim.sqlite",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
