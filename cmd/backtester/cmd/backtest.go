package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a strategy against historical bar data",
	Long: `Backtest replays a CSV of OHLCV bars through a strategy and prints
the run report.

Supported strategies:
  - noop: Does nothing (baseline test)
  - buy-and-hold: Buys once on the first bar
  - sma-cross: Moving-average crossover with configurable windows
  - rsi-reversion: RSI mean reversion
  - bollinger: Bollinger band reversion

Example:
  backtester backtest --bars data/spy.csv --strategy sma-cross --symbol SPY --opt fast=10 --opt slow=30`,
	RunE: runBacktest,
}

var (
	btBarsPath   string
	btConfigPath string
	btCash       float64
	btAllowShort bool
	btStrategy   string
	btSymbol     string
	btQuantity   int64
	btOpts       map[string]string
	btDBPath     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btBarsPath, "bars", "b", "", "path to bar CSV (time,symbol,open,high,low,close,volume)")
	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "c", "", "config file (flags override data and strategy settings)")
	backtestCmd.Flags().Float64Var(&btCash, "cash", 100_000, "starting cash")
	backtestCmd.Flags().BoolVar(&btAllowShort, "allow-short", false, "permit short selling")
	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "buy-and-hold", "strategy name")
	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "i", "", "strategy symbol (defaults to first symbol in the data)")
	backtestCmd.Flags().Int64VarP(&btQuantity, "quantity", "q", 100, "order quantity per signal")
	backtestCmd.Flags().StringToStringVar(&btOpts, "opt", nil, "strategy option, repeatable (e.g. --opt fast=10)")
	backtestCmd.Flags().StringVarP(&btDBPath, "db", "d", "", "SQLite journal path (empty disables journaling)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if btConfigPath != "" {
		loaded, err := config.LoadFromFile(btConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if btBarsPath != "" {
		cfg.Data.CSVPath = btBarsPath
	}
	if cmd.Flags().Changed("cash") || btConfigPath == "" {
		cfg.Account.InitialCash = btCash
	}
	if cmd.Flags().Changed("allow-short") {
		cfg.Account.AllowShort = btAllowShort
	}
	if cmd.Flags().Changed("strategy") || btConfigPath == "" {
		cfg.Strategy.Name = btStrategy
	}
	if cmd.Flags().Changed("quantity") || btConfigPath == "" {
		cfg.Sizing = config.SizingConfig{Mode: "fixed", Quantity: btQuantity}
	}

	data, err := market.LoadCSV(cfg.Data.CSVPath)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("no bars in %s", cfg.Data.CSVPath)
	}

	if btSymbol != "" {
		cfg.Strategy.Symbol = btSymbol
	} else if cmd.Flags().Changed("strategy") || cfg.Strategy.Symbol == "" {
		cfg.Strategy.Symbol = market.Symbols(data)[0]
	}
	if len(btOpts) > 0 {
		opts, err := parseOpts(btOpts)
		if err != nil {
			return err
		}
		cfg.Strategy.Options = opts
	}
	if btDBPath != "" {
		cfg.Journal = config.JournalConfig{Type: "sqlite", DBPath: btDBPath}
	} else if btConfigPath == "" {
		cfg.Journal = config.JournalConfig{Type: "none"}
	}

	strat, err := cfg.BuildStrategy(strategies.Builtin())
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	jrnl, err := cfg.OpenJournal()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	dcfg, err := cfg.Backtest()
	if err != nil {
		return err
	}

	d := backtest.New(dcfg, data, jrnl)
	d.Register(strat)
	d.SetSizer(cfg.Sizer())

	fmt.Printf("Running backtest with strategy: %s\n", cfg.Strategy.Name)
	fmt.Printf("  Bars: %s\n", cfg.Data.CSVPath)
	fmt.Printf("  Symbol: %s\n\n", cfg.Strategy.Symbol)

	res, err := d.Run(context.Background())
	if res != nil {
		res.Print(os.Stdout)
	}
	return err
}

func parseOpts(raw map[string]string) (map[string]float64, error) {
	opts := make(map[string]float64, len(raw))
	for k, v := range raw {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("option %s=%q: %w", k, v, err)
		}
		opts[k] = x
	}
	return opts, nil
}
