package sim

import (
	"math"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/orders"
)

// PriceRef selects which bar price MARKET orders execute against.
type PriceRef int8

const (
	FillAtOpen PriceRef = iota
	FillAtClose
)

// Config controls the fill model. The defaults are deliberately
// conservative: fills never execute at a better price than the reference,
// and slippage only ever degrades execution.
type Config struct {
	PriceRef PriceRef

	// LiquidityFraction bounds how much of a bar's volume a single order
	// may consume: cap = floor(volume * fraction).
	LiquidityFraction float64

	// SlippageSpreadFrac offsets the fill price by this fraction of the
	// bar's spread (high-low), applied against the order's side.
	SlippageSpreadFrac float64

	// ImmediateOrCancel cancels the unfilled remainder of a MARKET order
	// after its first bar instead of keeping it open.
	ImmediateOrCancel bool

	Commission CommissionModel
}

func DefaultConfig() Config {
	return Config{
		PriceRef:           FillAtOpen,
		LiquidityFraction:  0.1,
		SlippageSpreadFrac: 0.0,
		Commission:         FlatCommission{Fee: 0},
	}
}

// Intent is one matching decision. The engine never mutates orders; the
// caller applies the fill and any remainder cancellation.
type Intent struct {
	OrderID int64
	Fill    orders.Fill

	// CancelRemainder marks the unfilled remainder for cancellation after
	// this fill is applied (immediate-or-cancel policy).
	CancelRemainder bool
}

// Engine matches one market bar against the open orders for that symbol.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.LiquidityFraction <= 0 {
		cfg.LiquidityFraction = 0.1
	}
	if cfg.Commission == nil {
		cfg.Commission = FlatCommission{}
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config { return e.cfg }

// Match produces fill intents for the given bar. Orders for other symbols
// and orders already terminal are skipped. Intents are emitted in the input
// (submission) order, so the caller's iteration stays deterministic.
//
// The liquidity cap is computed from the raw bar volume first; the slippage
// offset is applied to the price afterwards. The cap depends only on
// volume, never on the degraded price.
func (e *Engine) Match(bar market.Bar, open []*orders.Order) []Intent {
	var out []Intent

	liq := int64(math.Floor(bar.Volume * e.cfg.LiquidityFraction))

	for _, o := range open {
		if o.Symbol != bar.Symbol || !o.IsOpen() {
			continue
		}

		px, eligible := e.rawPrice(o, bar)
		if !eligible {
			continue
		}

		qty := o.Remaining()
		if qty > liq {
			qty = liq
		}

		ioc := o.Kind == orders.Market && e.cfg.ImmediateOrCancel

		if qty <= 0 {
			// No liquidity this bar. An IOC market order still gives up
			// its remainder.
			if ioc {
				out = append(out, Intent{OrderID: o.ID, CancelRemainder: true})
			}
			continue
		}

		px = e.slip(px, o.Side, bar)

		out = append(out, Intent{
			OrderID: o.ID,
			Fill: orders.Fill{
				OrderID:    o.ID,
				Symbol:     o.Symbol,
				Side:       o.Side,
				Quantity:   qty,
				Price:      px,
				Commission: e.cfg.Commission.Commission(qty, px),
				Time:       bar.Time,
			},
			CancelRemainder: ioc && qty < o.Remaining(),
		})
	}
	return out
}

// rawPrice decides eligibility and the pre-slippage execution price.
func (e *Engine) rawPrice(o *orders.Order, bar market.Bar) (float64, bool) {
	ref := bar.Open
	if e.cfg.PriceRef == FillAtClose {
		ref = bar.Close
	}

	switch o.Kind {
	case orders.Market:
		return ref, true

	case orders.Limit:
		// Fill only when the limit traded within the bar's range; execution
		// at exactly the limit, never better.
		if bar.Low <= o.LimitPrice && o.LimitPrice <= bar.High {
			return o.LimitPrice, true
		}
		return 0, false

	case orders.Stop:
		// Converts to market once the stop level is crossed, bounded by the
		// stop so a gap through the level never improves execution.
		if o.Side == orders.Buy && bar.High >= o.LimitPrice {
			return math.Max(ref, o.LimitPrice), true
		}
		if o.Side == orders.Sell && bar.Low <= o.LimitPrice {
			return math.Min(ref, o.LimitPrice), true
		}
		return 0, false
	}
	return 0, false
}

// slip degrades the price against the order's side, never in its favor.
func (e *Engine) slip(px float64, side orders.Side, bar market.Bar) float64 {
	if e.cfg.SlippageSpreadFrac <= 0 {
		return px
	}
	off := e.cfg.SlippageSpreadFrac * bar.Spread()
	if side == orders.Buy {
		return px + off
	}
	return px - off
}
