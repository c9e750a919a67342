package cmd

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a strategy across a parameter grid in parallel",
	Long: `Sweep runs one backtest per parameter combination and prints a
comparison table sorted by the grid order. Each run is fully isolated,
so results are identical to running each combination on its own.

The grid is given as repeatable --range flags, each naming one strategy
option with comma-separated values:

  backtester sweep --bars data/spy.csv --strategy sma-cross --symbol SPY \
    --range fast=5,10,20 --range slow=30,50,100`,
	RunE: runSweep,
}

var (
	swBarsPath string
	swCash     float64
	swStrategy string
	swSymbol   string
	swQuantity int64
	swRanges   []string
	swWorkers  int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&swBarsPath, "bars", "b", "", "path to bar CSV (required)")
	sweepCmd.Flags().Float64Var(&swCash, "cash", 100_000, "starting cash")
	sweepCmd.Flags().StringVarP(&swStrategy, "strategy", "s", "sma-cross", "strategy name")
	sweepCmd.Flags().StringVarP(&swSymbol, "symbol", "i", "", "strategy symbol (defaults to first symbol in the data)")
	sweepCmd.Flags().Int64VarP(&swQuantity, "quantity", "q", 100, "order quantity per signal")
	sweepCmd.Flags().StringArrayVar(&swRanges, "range", nil, "parameter range, repeatable (e.g. --range fast=5,10,20)")
	sweepCmd.Flags().IntVarP(&swWorkers, "workers", "w", runtime.NumCPU(), "concurrent runs")

	sweepCmd.MarkFlagRequired("bars")
	sweepCmd.MarkFlagRequired("range")
}

func runSweep(cmd *cobra.Command, args []string) error {
	data, err := market.LoadCSV(swBarsPath)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("no bars in %s", swBarsPath)
	}
	if swSymbol == "" {
		swSymbol = market.Symbols(data)[0]
	}

	grid, err := parseRanges(swRanges)
	if err != nil {
		return err
	}

	specs := make([]backtest.RunSpec, 0, len(grid))
	for _, opts := range grid {
		specs = append(specs, backtest.RunSpec{
			Label:    optLabel(opts),
			Strategy: swStrategy,
			Symbol:   swSymbol,
			Options:  opts,
			Sizer:    backtest.FixedQuantity{Quantity: swQuantity},
			Config: backtest.Config{
				InitialCash: swCash,
				Match:       sim.DefaultConfig(),
			},
		})
	}

	fmt.Printf("Sweeping %s over %d combinations (%d workers)\n\n", swStrategy, len(specs), swWorkers)

	results := backtest.Sweep(context.Background(), specs, data, strategies.Builtin(), swWorkers)

	fmt.Printf("%-30s %12s %10s %10s %10s\n", "Parameters", "Equity", "Return", "Sharpe", "MaxDD")
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-30s failed: %v\n", r.Label, r.Err)
			continue
		}
		s := r.Result.Summary
		fmt.Printf("%-30s %12.2f %9.2f%% %10.2f %9.2f%%\n",
			r.Label, r.Result.FinalEquity, s.TotalReturn*100, s.SharpeRatio, s.MaxDrawdown*100)
	}
	return nil
}

// parseRanges expands --range flags into the cartesian product of option
// maps, in flag order with earlier flags varying slowest.
func parseRanges(ranges []string) ([]map[string]float64, error) {
	type axis struct {
		key    string
		values []float64
	}

	axes := make([]axis, 0, len(ranges))
	for _, r := range ranges {
		key, list, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("range %q: want name=v1,v2,...", r)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			x, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("range %q: %w", r, err)
			}
			vals = append(vals, x)
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("range %q: no values", r)
		}
		axes = append(axes, axis{key: key, values: vals})
	}

	grid := []map[string]float64{{}}
	for _, ax := range axes {
		next := make([]map[string]float64, 0, len(grid)*len(ax.values))
		for _, base := range grid {
			for _, v := range ax.values {
				m := make(map[string]float64, len(base)+1)
				for k, x := range base {
					m[k] = x
				}
				m[ax.key] = v
				next = append(next, m)
			}
		}
		grid = next
	}
	return grid, nil
}

func optLabel(opts map[string]float64) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%g", k, opts[k])
	}
	return b.String()
}
