// Package metrics computes performance statistics over a recorded equity
// curve and fill history. Every function is pure and tolerates degenerate
// input (empty or length-1 curves, no trades) by returning zero or NaN
// instead of failing.
package metrics

import (
	"math"
	"time"

	"github.com/rustyeddy/backtester/orders"
	"github.com/rustyeddy/backtester/portfolio"
)

// TradingDaysPerYear is the default annualization base for daily bars.
const TradingDaysPerYear = 252

// Options parameterizes the ratio computations.
type Options struct {
	// RiskFreeRate is the annualized risk-free rate, e.g. 0.02.
	RiskFreeRate float64
	// PeriodsPerYear is the sampling frequency of the equity curve.
	// Zero means TradingDaysPerYear.
	PeriodsPerYear float64
}

func (o Options) periods() float64 {
	if o.PeriodsPerYear > 0 {
		return o.PeriodsPerYear
	}
	return TradingDaysPerYear
}

// Summary is the full performance record for one run.
type Summary struct {
	TotalReturn         float64
	AnnualizedReturn    float64
	Volatility          float64
	SharpeRatio         float64
	SortinoRatio        float64
	MaxDrawdown         float64
	MaxDrawdownRecovery int
	CalmarRatio         float64
	WinRate             float64
	AvgTradeDuration    time.Duration
	RoundTrips          int
}

// Summarize computes every metric over the curve and fill history.
func Summarize(curve []portfolio.EquityPoint, fills []orders.Fill, opts Options) Summary {
	trips := RoundTrips(fills)
	dd, recovery := MaxDrawdown(curve)
	return Summary{
		TotalReturn:         TotalReturn(curve),
		AnnualizedReturn:    AnnualizedReturn(curve, opts),
		Volatility:          Volatility(curve, opts),
		SharpeRatio:         SharpeRatio(curve, opts),
		SortinoRatio:        SortinoRatio(curve, opts),
		MaxDrawdown:         dd,
		MaxDrawdownRecovery: recovery,
		CalmarRatio:         CalmarRatio(curve, opts),
		WinRate:             WinRate(trips),
		AvgTradeDuration:    AvgTradeDuration(trips),
		RoundTrips:          len(trips),
	}
}

func returns(curve []portfolio.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	v := 0.0
	for _, x := range xs {
		d := x - m
		v += d * d
	}
	return math.Sqrt(v / float64(len(xs)))
}

// TotalReturn is the fractional change from the first to the last equity
// point. Zero for curves shorter than two points.
func TotalReturn(curve []portfolio.EquityPoint) float64 {
	if len(curve) < 2 || curve[0].Equity == 0 {
		return 0
	}
	return curve[len(curve)-1].Equity/curve[0].Equity - 1
}

// AnnualizedReturn compounds the total return to a one-year horizon
// assuming the curve is sampled PeriodsPerYear times per year.
func AnnualizedReturn(curve []portfolio.EquityPoint, opts Options) float64 {
	if len(curve) < 2 || curve[0].Equity <= 0 {
		return 0
	}
	growth := curve[len(curve)-1].Equity / curve[0].Equity
	if growth <= 0 {
		return -1
	}
	n := float64(len(curve) - 1)
	return math.Pow(growth, opts.periods()/n) - 1
}

// Volatility is the annualized standard deviation of per-period returns.
func Volatility(curve []portfolio.EquityPoint, opts Options) float64 {
	return stddev(returns(curve)) * math.Sqrt(opts.periods())
}

// SharpeRatio is the annualized mean excess return over return volatility.
// NaN when volatility is zero.
func SharpeRatio(curve []portfolio.EquityPoint, opts Options) float64 {
	ppy := opts.periods()
	ret := returns(curve)
	excess := make([]float64, len(ret))
	for i, r := range ret {
		excess[i] = r - opts.RiskFreeRate/ppy
	}
	sd := stddev(excess)
	if sd == 0 {
		return math.NaN()
	}
	return math.Sqrt(ppy) * mean(excess) / sd
}

// SortinoRatio is the Sharpe variant penalizing only downside deviation.
// NaN when there is no downside.
func SortinoRatio(curve []portfolio.EquityPoint, opts Options) float64 {
	ppy := opts.periods()
	ret := returns(curve)
	excess := make([]float64, len(ret))
	var downside []float64
	for i, r := range ret {
		excess[i] = r - opts.RiskFreeRate/ppy
		if excess[i] < 0 {
			downside = append(downside, excess[i])
		}
	}
	sd := stddev(downside)
	if sd == 0 {
		return math.NaN()
	}
	return math.Sqrt(ppy) * mean(excess) / sd
}

// MaxDrawdown returns the largest peak-to-trough decline as a positive
// fraction of the peak, and the number of curve points from the trough
// until equity regained the peak (curve length minus trough index when it
// never recovered).
func MaxDrawdown(curve []portfolio.EquityPoint) (float64, int) {
	if len(curve) == 0 {
		return 0, 0
	}

	peak := curve[0].Equity
	maxDD := 0.0
	troughAt := -1
	troughPeak := 0.0

	for i, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 {
			dd := (peak - pt.Equity) / peak
			if dd > maxDD {
				maxDD = dd
				troughAt = i
				troughPeak = peak
			}
		}
	}

	if troughAt < 0 {
		return 0, 0
	}
	for i := troughAt + 1; i < len(curve); i++ {
		if curve[i].Equity >= troughPeak {
			return maxDD, i - troughAt
		}
	}
	return maxDD, len(curve) - troughAt
}

// CalmarRatio is the annualized return divided by the maximum drawdown.
// NaN when there was no drawdown.
func CalmarRatio(curve []portfolio.EquityPoint, opts Options) float64 {
	dd, _ := MaxDrawdown(curve)
	if dd == 0 {
		return math.NaN()
	}
	return AnnualizedReturn(curve, opts) / dd
}

// WinRate is the fraction of round trips with positive realized P&L.
// NaN when there are no completed round trips.
func WinRate(trips []RoundTrip) float64 {
	if len(trips) == 0 {
		return math.NaN()
	}
	wins := 0
	for _, t := range trips {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trips))
}

// AvgTradeDuration is the mean holding period over completed round trips.
func AvgTradeDuration(trips []RoundTrip) time.Duration {
	if len(trips) == 0 {
		return 0
	}
	var total time.Duration
	for _, t := range trips {
		total += t.ExitTime.Sub(t.EntryTime)
	}
	return total / time.Duration(len(trips))
}
