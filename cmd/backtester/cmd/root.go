package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "A deterministic event-driven backtesting engine for bar data",
	Long: `Backtester replays historical OHLCV bars through trading strategies
with realistic order matching and double-entry accounting.

It provides tools for:
  - Backtesting strategies against CSV bar data
  - Parallel parameter sweeps across strategy configurations
  - Paper trading against a simulated brokerage with order latency
  - Persistent audit trails (orders, fills, equity) in SQLite or CSV
  - Performance metrics: Sharpe, Sortino, max drawdown, win rate

Identical inputs always produce identical results, fill for fill.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
