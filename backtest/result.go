package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/orders"
	"github.com/rustyeddy/backtester/portfolio"
)

// Result is the complete outcome of one run: final account state, the full
// audit trail, and the performance summary computed from it.
type Result struct {
	RunID string
	Start time.Time
	End   time.Time
	Steps int

	InitialCash float64
	FinalCash   float64
	FinalEquity float64

	Orders   int
	Rejected int
	Fills    []orders.Fill
	Curve    []portfolio.EquityPoint

	// JournalErr is the first audit-trail write failure, if any. The run
	// itself continues; the stored trail may be truncated.
	JournalErr error

	Summary metrics.Summary
}

func (d *Driver) buildResult(steps int) *Result {
	r := &Result{
		RunID:       d.cfg.RunID,
		Steps:       steps,
		InitialCash: d.cfg.InitialCash,
		FinalCash:   d.ledger.Cash(),
		FinalEquity: d.ledger.Equity(),
		Orders:      int(d.nextOrderID - 1),
		Rejected:    len(d.rejected),
		Fills:       d.ledger.Fills(),
		Curve:       d.ledger.Curve(),
		JournalErr:  d.jrnlErr,
	}
	if len(d.timeline) > 0 {
		r.Start = d.timeline[0]
		if steps > 0 {
			r.End = d.timeline[steps-1]
		}
	}
	r.Summary = metrics.Summarize(r.Curve, r.Fills, d.cfg.Metrics)
	return r
}

// Print writes a human-readable run report.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "Run %s\n", r.RunID)
	if !r.Start.IsZero() {
		fmt.Fprintf(w, "  Period: %s to %s (%d steps)\n",
			r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), r.Steps)
	}
	fmt.Fprintf(w, "  Initial Cash: $%.2f\n", r.InitialCash)
	fmt.Fprintf(w, "  Final Cash: $%.2f\n", r.FinalCash)
	fmt.Fprintf(w, "  Final Equity: $%.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "  Orders: %d (%d rejected)\n", r.Orders, r.Rejected)
	fmt.Fprintf(w, "  Fills: %d\n", len(r.Fills))
	if r.JournalErr != nil {
		fmt.Fprintf(w, "  WARNING: audit trail truncated: %v\n", r.JournalErr)
	}
	fmt.Fprintln(w)

	s := r.Summary
	fmt.Fprintf(w, "  Total Return: %.2f%%\n", s.TotalReturn*100)
	fmt.Fprintf(w, "  Annualized Return: %.2f%%\n", s.AnnualizedReturn*100)
	fmt.Fprintf(w, "  Volatility: %.2f%%\n", s.Volatility*100)
	fmt.Fprintf(w, "  Sharpe Ratio: %.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "  Sortino Ratio: %.2f\n", s.SortinoRatio)
	fmt.Fprintf(w, "  Max Drawdown: %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "  Calmar Ratio: %.2f\n", s.CalmarRatio)
	fmt.Fprintf(w, "  Win Rate: %.1f%% (%d round trips)\n", s.WinRate*100, s.RoundTrips)
	if s.AvgTradeDuration > 0 {
		fmt.Fprintf(w, "  Avg Trade Duration: %s\n", s.AvgTradeDuration)
	}
}
