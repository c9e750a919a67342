package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/backtester/orders"
)

// InvariantError is a fatal accounting violation. Once raised the run must
// halt: a corrupted ledger invalidates every subsequent number.
type InvariantError struct {
	Op     string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("ledger: %s: %s", e.Op, e.Reason)
}

// EquityPoint is one append-only sample of the equity curve.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Ledger holds cash, positions and P&L for one run. ApplyFill is the sole
// mutation entry point; everything else is read-only or an append.
//
// The ledger maintains
//
//	cash = initial_cash + sell proceeds - buy costs - commissions
//	equity = cash + sum(position.quantity * last_known_price)
//
// with weighted-average cost on same-direction fills and realized-P&L
// recognition on fills that reduce or flip a position.
type Ledger struct {
	initialCash float64
	cash        float64
	allowShort  bool

	positions   map[string]*Position
	lastPrice   map[string]float64
	realized    float64
	commissions float64

	fills []orders.Fill
	curve []EquityPoint
}

func NewLedger(initialCash float64, allowShort bool) *Ledger {
	return &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		allowShort:  allowShort,
		positions:   make(map[string]*Position),
		lastPrice:   make(map[string]float64),
	}
}

func (l *Ledger) InitialCash() float64 { return l.initialCash }
func (l *Ledger) Cash() float64        { return l.cash }
func (l *Ledger) RealizedPL() float64  { return l.realized }
func (l *Ledger) Commissions() float64 { return l.commissions }
func (l *Ledger) AllowShort() bool     { return l.allowShort }

// Position returns the current position for a symbol, zero-valued if flat.
func (l *Ledger) Position(symbol string) Position {
	if p, ok := l.positions[symbol]; ok {
		return *p
	}
	return Position{Symbol: symbol}
}

// Positions returns a copy of all non-flat positions keyed by symbol.
func (l *Ledger) Positions() map[string]Position {
	out := make(map[string]Position, len(l.positions))
	for sym, p := range l.positions {
		if p.Quantity != 0 {
			out[sym] = *p
		}
	}
	return out
}

// Fills returns the applied fills in application order.
func (l *Ledger) Fills() []orders.Fill { return l.fills }

// Curve returns the recorded equity curve.
func (l *Ledger) Curve() []EquityPoint { return l.curve }

// ApplyFill atomically updates cash, the position and realized P&L for one
// fill. It either applies completely or returns an InvariantError leaving
// the ledger untouched.
func (l *Ledger) ApplyFill(f orders.Fill) error {
	if f.Quantity <= 0 {
		return &InvariantError{Op: "apply fill",
			Reason: fmt.Sprintf("non-positive quantity %d for order %d", f.Quantity, f.OrderID)}
	}
	if f.Price <= 0 {
		return &InvariantError{Op: "apply fill",
			Reason: fmt.Sprintf("non-positive price %v for order %d", f.Price, f.OrderID)}
	}
	if f.Side != orders.Buy && f.Side != orders.Sell {
		return &InvariantError{Op: "apply fill",
			Reason: fmt.Sprintf("bad side %d for order %d", f.Side, f.OrderID)}
	}

	dir := int64(f.Side)
	pos, ok := l.positions[f.Symbol]
	if !ok {
		pos = &Position{Symbol: f.Symbol}
	}

	oldQty := pos.Quantity
	newQty := oldQty + dir*f.Quantity
	if !l.allowShort && newQty < 0 {
		return &InvariantError{Op: "apply fill",
			Reason: fmt.Sprintf("fill for order %d would short %s (%d -> %d) with short-selling disabled",
				f.OrderID, f.Symbol, oldQty, newQty)}
	}

	switch {
	case oldQty == 0 || sign(oldQty) == dir:
		// Same direction: extend at weighted-average cost.
		total := pos.AvgCost*abs64(oldQty) + f.Price*float64(f.Quantity)
		pos.AvgCost = total / abs64(newQty)

	case f.Quantity <= absi(oldQty):
		// Reducing (possibly to flat): realize against average cost,
		// average cost of the remainder is unchanged.
		l.realized += float64(f.Quantity) * (f.Price - pos.AvgCost) * float64(sign(oldQty))
		if newQty == 0 {
			pos.AvgCost = 0
		}

	default:
		// Flip: close the whole old position, open the remainder at the
		// fill price.
		l.realized += abs64(oldQty) * (f.Price - pos.AvgCost) * float64(sign(oldQty))
		pos.AvgCost = f.Price
	}

	pos.Quantity = newQty
	l.positions[f.Symbol] = pos

	l.cash -= float64(dir)*f.Price*float64(f.Quantity) + f.Commission
	l.commissions += f.Commission
	l.lastPrice[f.Symbol] = f.Price
	l.fills = append(l.fills, f)
	return nil
}

// MarkPrice records the last known price for a symbol, used to mark open
// positions to market.
func (l *Ledger) MarkPrice(symbol string, price float64) {
	l.lastPrice[symbol] = price
}

// LastPrice returns the last known price for a symbol, if any.
func (l *Ledger) LastPrice(symbol string) (float64, bool) {
	px, ok := l.lastPrice[symbol]
	return px, ok
}

// Equity is cash plus open positions marked at their last known prices.
func (l *Ledger) Equity() float64 {
	eq := l.cash
	for sym, p := range l.positions {
		eq += p.MarketValue(l.lastPrice[sym])
	}
	return eq
}

// UnrealizedPL is the mark-to-market P&L of all open positions.
func (l *Ledger) UnrealizedPL() float64 {
	var pl float64
	for sym, p := range l.positions {
		pl += p.UnrealizedPL(l.lastPrice[sym])
	}
	return pl
}

// RecordEquity appends one immutable point to the equity curve. The driver
// calls it once per simulated step, trading activity or not, so the curve
// stays densely sampled.
func (l *Ledger) RecordEquity(t time.Time) EquityPoint {
	pt := EquityPoint{Time: t, Equity: l.Equity()}
	l.curve = append(l.curve, pt)
	return pt
}

// MaxDrawdownExceeded reports whether the recorded curve has fallen more
// than threshold (a fraction of peak equity) from its running peak.
func (l *Ledger) MaxDrawdownExceeded(threshold float64) bool {
	peak := 0.0
	for _, pt := range l.curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak > 0 && (peak-pt.Equity)/peak >= threshold {
			return true
		}
	}
	return false
}

// SizeForRisk returns the quantity affordable with riskFrac of current cash
// at the given price. Zero when the price is non-positive.
func (l *Ledger) SizeForRisk(price, riskFrac float64) int64 {
	if price <= 0 {
		return 0
	}
	return int64(l.cash * riskFrac / price)
}

// SymbolsHeld returns the sorted symbols with a non-flat position.
func (l *Ledger) SymbolsHeld() []string {
	var out []string
	for sym, p := range l.positions {
		if p.Quantity != 0 {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

func sign(x int64) int64 {
	if x < 0 {
		return -1
	}
	return 1
}

func absi(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func abs64(x int64) float64 {
	return float64(absi(x))
}
