package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Engine   EngineConfig   `json:"engine" yaml:"engine"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Sizing   SizingConfig   `json:"sizing" yaml:"sizing"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	AllowShort  bool    `json:"allow_short" yaml:"allow_short"`
}

// DataConfig points at the bar data to replay
type DataConfig struct {
	CSVPath string `json:"csv_path" yaml:"csv_path"`
}

// EngineConfig contains fill-model parameters
type EngineConfig struct {
	PriceRef           string  `json:"price_ref" yaml:"price_ref"` // "open" or "close"
	LiquidityFraction  float64 `json:"liquidity_fraction" yaml:"liquidity_fraction"`
	SlippageSpreadFrac float64 `json:"slippage_spread_frac" yaml:"slippage_spread_frac"`
	ImmediateOrCancel  bool    `json:"immediate_or_cancel" yaml:"immediate_or_cancel"`

	Commission     string  `json:"commission" yaml:"commission"` // "flat", "per_share" or "percent"
	CommissionFee  float64 `json:"commission_fee,omitempty" yaml:"commission_fee,omitempty"`
	CommissionRate float64 `json:"commission_rate,omitempty" yaml:"commission_rate,omitempty"`

	WindowBars int    `json:"window_bars,omitempty" yaml:"window_bars,omitempty"`
	OrderTTL   string `json:"order_ttl,omitempty" yaml:"order_ttl,omitempty"` // e.g. "24h", empty = good-till-cancelled
}

// ParseTTL converts the order TTL string to time.Duration
func (e EngineConfig) ParseTTL() (time.Duration, error) {
	if e.OrderTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(e.OrderTTL)
}

// StrategyConfig contains strategy selection and parameters
type StrategyConfig struct {
	Name    string             `json:"name" yaml:"name"`
	Symbol  string             `json:"symbol" yaml:"symbol"`
	Options map[string]float64 `json:"options,omitempty" yaml:"options,omitempty"`
}

// SizingConfig selects how signals become order quantities
type SizingConfig struct {
	Mode         string  `json:"mode" yaml:"mode"` // "fixed" or "cash_fraction"
	Quantity     int64   `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	CashFraction float64 `json:"cash_fraction,omitempty" yaml:"cash_fraction,omitempty"`
}

// MetricsConfig contains performance-summary parameters
type MetricsConfig struct {
	RiskFreeRate   float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	PeriodsPerYear float64 `json:"periods_per_year,omitempty" yaml:"periods_per_year,omitempty"`
}

// JournalConfig contains audit-trail parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
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

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if (len(path) > 5 && path[len(path)-5:] == ".yaml") || (len(path) > 4 && path[len(path)-4:] == ".yml") {
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
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}
	if c.Engine.PriceRef != "open" && c.Engine.PriceRef != "close" {
		return fmt.Errorf("engine.price_ref must be 'open' or 'close'")
	}
	if c.Engine.LiquidityFraction <= 0 || c.Engine.LiquidityFraction > 1 {
		return fmt.Errorf("engine.liquidity_fraction must be between 0 and 1")
	}
	if c.Engine.SlippageSpreadFrac < 0 || c.Engine.SlippageSpreadFrac > 1 {
		return fmt.Errorf("engine.slippage_spread_frac must be between 0 and 1")
	}
	switch c.Engine.Commission {
	case "flat", "per_share":
		if c.Engine.CommissionFee < 0 {
			return fmt.Errorf("engine.commission_fee must not be negative")
		}
	case "percent":
		if c.Engine.CommissionRate < 0 || c.Engine.CommissionRate > 1 {
			return fmt.Errorf("engine.commission_rate must be between 0 and 1")
		}
	default:
		return fmt.Errorf("engine.commission must be 'flat', 'per_share' or 'percent'")
	}
	if _, err := c.Engine.ParseTTL(); err != nil {
		return fmt.Errorf("engine.order_ttl: %w", err)
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if c.Strategy.Symbol == "" {
		return fmt.Errorf("strategy.symbol is required")
	}
	switch c.Sizing.Mode {
	case "fixed":
		if c.Sizing.Quantity <= 0 {
			return fmt.Errorf("sizing.quantity must be positive")
		}
	case "cash_fraction":
		if c.Sizing.CashFraction <= 0 || c.Sizing.CashFraction > 1 {
			return fmt.Errorf("sizing.cash_fraction must be between 0 and 1")
		}
	default:
		return fmt.Errorf("sizing.mode must be 'fixed' or 'cash_fraction'")
	}
	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Match builds the fill-model configuration. Validate first; Match assumes
// the fields parse.
func (e EngineConfig) Match() sim.Config {
	cfg := sim.Config{
		LiquidityFraction:  e.LiquidityFraction,
		SlippageSpreadFrac: e.SlippageSpreadFrac,
		ImmediateOrCancel:  e.ImmediateOrCancel,
	}
	if e.PriceRef == "close" {
		cfg.PriceRef = sim.FillAtClose
	}
	switch e.Commission {
	case "per_share":
		cfg.Commission = sim.PerShareCommission{Fee: e.CommissionFee}
	case "percent":
		cfg.Commission = sim.PercentCommission{Rate: e.CommissionRate}
	default:
		cfg.Commission = sim.FlatCommission{Fee: e.CommissionFee}
	}
	return cfg
}

// Backtest assembles the driver configuration from the validated config.
func (c *Config) Backtest() (backtest.Config, error) {
	ttl, err := c.Engine.ParseTTL()
	if err != nil {
		return backtest.Config{}, err
	}
	return backtest.Config{
		InitialCash: c.Account.InitialCash,
		AllowShort:  c.Account.AllowShort,
		WindowBars:  c.Engine.WindowBars,
		OrderTTL:    ttl,
		Match:       c.Engine.Match(),
		Metrics: metrics.Options{
			RiskFreeRate:   c.Metrics.RiskFreeRate,
			PeriodsPerYear: c.Metrics.PeriodsPerYear,
		},
	}, nil
}

// Sizer builds the configured order sizer.
func (c *Config) Sizer() backtest.Sizer {
	if c.Sizing.Mode == "cash_fraction" {
		return backtest.CashFraction{Fraction: c.Sizing.CashFraction}
	}
	return backtest.FixedQuantity{Quantity: c.Sizing.Quantity}
}

// OpenJournal builds the configured journal. Callers own Close.
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "csv":
		return journal.NewCSV(c.Journal.FillsFile, c.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

// Strategy instantiates the configured strategy from the registry.
func (c *Config) BuildStrategy(reg *strategies.Registry) (strategies.Strategy, error) {
	return reg.New(c.Strategy.Name, c.Strategy.Symbol, c.Strategy.Options)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCash: 100000,
		},
		Data: DataConfig{
			CSVPath: "./bars.csv",
		},
		Engine: EngineConfig{
			PriceRef:          "open",
			LiquidityFraction: 0.1,
			Commission:        "flat",
			WindowBars:        250,
		},
		Strategy: StrategyConfig{
			Name:   "sma-cross",
			Symbol: "SPY",
			Options: map[string]float64{
				"fast": 10,
				"slow": 30,
			},
		},
		Sizing: SizingConfig{
			Mode:     "fixed",
			Quantity: 100,
		},
		Metrics: MetricsConfig{
			RiskFreeRate: 0.0,
		},
		Journal: JournalConfig{
			Type:       "csv",
			FillsFile:  "./fills.csv",
			EquityFile: "./equity.csv",
		},
	}
}
