package backtest

import (
	"github.com/rustyeddy/backtester/orders"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategies"
)

// Sizer translates a non-HOLD signal into an order template, or declines.
// The driver owns ID assignment and timestamps; the sizer only decides
// side, kind, quantity and prices.
type Sizer interface {
	SizeOrder(sig strategies.Signal, ledger *portfolio.Ledger) (orders.Order, bool)
}

// FixedQuantity sizes every BUY as a market order for Quantity shares and
// every SELL as a market order closing up to Quantity shares of the held
// position. When shorts are disabled it declines sells against a flat
// position instead of producing an order that would be rejected.
type FixedQuantity struct {
	Quantity int64
}

func (s FixedQuantity) SizeOrder(sig strategies.Signal, ledger *portfolio.Ledger) (orders.Order, bool) {
	switch sig.Kind {
	case strategies.Buy:
		return orders.Order{
			Symbol:   sig.Symbol,
			Side:     orders.Buy,
			Kind:     orders.Market,
			Quantity: s.Quantity,
		}, true

	case strategies.Sell:
		qty := s.Quantity
		if !ledger.AllowShort() {
			held := ledger.Position(sig.Symbol).Quantity
			if held <= 0 {
				return orders.Order{}, false
			}
			if qty > held {
				qty = held
			}
		}
		return orders.Order{
			Symbol:   sig.Symbol,
			Side:     orders.Sell,
			Kind:     orders.Market,
			Quantity: qty,
		}, true
	}
	return orders.Order{}, false
}

// CashFraction sizes buys by a fraction of current cash at the symbol's
// last known price and sells by closing the whole position.
type CashFraction struct {
	Fraction float64
}

func (s CashFraction) SizeOrder(sig strategies.Signal, ledger *portfolio.Ledger) (orders.Order, bool) {
	switch sig.Kind {
	case strategies.Buy:
		px, ok := ledger.LastPrice(sig.Symbol)
		if !ok {
			return orders.Order{}, false
		}
		qty := ledger.SizeForRisk(px, s.Fraction)
		if qty <= 0 {
			return orders.Order{}, false
		}
		return orders.Order{
			Symbol:   sig.Symbol,
			Side:     orders.Buy,
			Kind:     orders.Market,
			Quantity: qty,
		}, true

	case strategies.Sell:
		held := ledger.Position(sig.Symbol).Quantity
		if held <= 0 {
			return orders.Order{}, false
		}
		return orders.Order{
			Symbol:   sig.Symbol,
			Side:     orders.Sell,
			Kind:     orders.Market,
			Quantity: held,
		}, true
	}
	return orders.Order{}, false
}
