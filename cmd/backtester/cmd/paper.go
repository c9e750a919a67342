package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/orders"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Paper-trade a strategy through the simulated brokerage",
	Long: `Paper streams bars from a CSV through the simulated brokerage with
order submission latency, polling fills the way a live integration would.

Example:
  backtester paper --bars data/spy.csv --strategy sma-cross --latency 1m --db paper.sqlite`,
	RunE: runPaper,
}

var (
	ppBarsPath string
	ppCash     float64
	ppStrategy string
	ppSymbol   string
	ppQuantity int64
	ppLatency  time.Duration
	ppDBPath   string
	ppMaxBars  int
)

func init() {
	rootCmd.AddCommand(paperCmd)

	paperCmd.Flags().StringVarP(&ppBarsPath, "bars", "b", "", "path to bar CSV (required)")
	paperCmd.Flags().Float64Var(&ppCash, "cash", 100_000, "starting cash")
	paperCmd.Flags().StringVarP(&ppStrategy, "strategy", "s", "sma-cross", "strategy name")
	paperCmd.Flags().StringVarP(&ppSymbol, "symbol", "i", "", "strategy symbol (defaults to first symbol in the data)")
	paperCmd.Flags().Int64VarP(&ppQuantity, "quantity", "q", 100, "order quantity per signal")
	paperCmd.Flags().DurationVar(&ppLatency, "latency", time.Minute, "order submission latency")
	paperCmd.Flags().StringVarP(&ppDBPath, "db", "d", "", "SQLite journal path (empty disables journaling)")
	paperCmd.Flags().IntVar(&ppMaxBars, "max-bars", 0, "stop after this many bars (0 = all)")

	paperCmd.MarkFlagRequired("bars")
}

func runPaper(cmd *cobra.Command, args []string) error {
	data, err := market.LoadCSV(ppBarsPath)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("no bars in %s", ppBarsPath)
	}
	if ppSymbol == "" {
		ppSymbol = market.Symbols(data)[0]
	}
	series, ok := data[ppSymbol]
	if !ok {
		return fmt.Errorf("no bars for symbol %s", ppSymbol)
	}

	strat, err := strategies.Builtin().New(ppStrategy, ppSymbol, nil)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	var jrnl journal.Journal = journal.Nop{}
	if ppDBPath != "" {
		j, err := journal.NewSQLite(ppDBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()
		jrnl = j
	}

	pb := broker.NewPaper(ppCash, false, sim.DefaultConfig(), ppLatency, jrnl)
	ctx := context.Background()

	fmt.Printf("Paper trading %s on %s (latency %s)\n\n", ppStrategy, ppSymbol, ppLatency)

	bars := series.Bars()
	if ppMaxBars > 0 && ppMaxBars < len(bars) {
		bars = bars[:ppMaxBars]
	}

	fills := 0
	for _, bar := range bars {
		w := strategies.Window{
			Time: bar.Time,
			Bars: map[string][]market.Bar{ppSymbol: series.Window(bar.Time, 250)},
		}
		for _, sig := range strat.GenerateSignals(w) {
			if sig.Kind == strategies.Hold {
				continue
			}
			o := orders.Order{
				Symbol:   ppSymbol,
				Kind:     orders.Market,
				Quantity: ppQuantity,
			}
			if sig.Kind == strategies.Buy {
				o.Side = orders.Buy
			} else {
				o.Side = orders.Sell
				held := pb.Ledger().Position(ppSymbol).Quantity
				if held <= 0 {
					continue
				}
				if o.Quantity > held {
					o.Quantity = held
				}
			}
			o.CreatedAt = bar.Time
			if _, err := pb.SubmitOrder(ctx, o); err != nil {
				fmt.Printf("REJECT %s %d %s: %v\n", o.Side, o.Quantity, o.Symbol, err)
			}
		}

		if err := pb.OnBar(bar); err != nil {
			return err
		}

		got, _ := pb.PollFills(ctx)
		for _, f := range got {
			fills++
			fmt.Printf("FILL  %s %d %s @ %.4f\n", f.Side, f.Quantity, f.Symbol, f.Price)
		}
	}

	acct, _ := pb.Account(ctx)
	fmt.Printf("\nPaper run complete (%d fills)\n", fills)
	fmt.Printf("  Cash: $%.2f\n", acct.Cash)
	fmt.Printf("  Equity: $%.2f\n", acct.Equity)
	fmt.Printf("  Realized P/L: $%.2f\n", acct.RealizedPL)
	for _, pos := range acct.Positions {
		fmt.Printf("  Position: %s %d @ %.4f\n", pos.Symbol, pos.Quantity, pos.AvgCost)
	}
	return nil
}
