package metrics

import (
	"time"

	"github.com/rustyeddy/backtester/orders"
)

// RoundTrip is one completed cycle from flat back to flat (or through a
// flip) in a single symbol.
type RoundTrip struct {
	Symbol    string
	EntryTime time.Time
	ExitTime  time.Time
	Quantity  int64 // total quantity closed, always positive
	PnL       float64
}

type openLot struct {
	qty      int64 // signed
	avgCost  float64
	entry    time.Time
	realized float64
	closed   int64
}

// RoundTrips reconstructs completed trades from the fill history using the
// same weighted-average-cost rule the ledger applies. A trip completes when
// the position returns to flat or flips direction; partial closes
// accumulate into the pending trip. P&L is price-based realized P&L;
// commissions are accounted separately in the ledger identity, not per
// trip.
func RoundTrips(fills []orders.Fill) []RoundTrip {
	var trips []RoundTrip
	open := make(map[string]*openLot)

	for _, f := range fills {
		dir := int64(f.Side)
		lot, ok := open[f.Symbol]
		if !ok {
			open[f.Symbol] = &openLot{
				qty:     dir * f.Quantity,
				avgCost: f.Price,
				entry:   f.Time,
			}
			continue
		}

		if (lot.qty > 0) == (dir > 0) {
			// Same direction: extend at weighted-average cost.
			oldAbs := absQty(lot.qty)
			newAbs := oldAbs + f.Quantity
			lot.avgCost = (lot.avgCost*float64(oldAbs) + f.Price*float64(f.Quantity)) / float64(newAbs)
			lot.qty += dir * f.Quantity
			continue
		}

		closed := f.Quantity
		if closed > absQty(lot.qty) {
			closed = absQty(lot.qty)
		}
		posSign := float64(1)
		if lot.qty < 0 {
			posSign = -1
		}
		lot.realized += float64(closed) * (f.Price - lot.avgCost) * posSign
		lot.closed += closed

		remaining := lot.qty + dir*f.Quantity
		if remaining != 0 && (remaining > 0) == (lot.qty > 0) {
			// Partial close: trip stays open until flat.
			lot.qty = remaining
			continue
		}

		trips = append(trips, RoundTrip{
			Symbol:    f.Symbol,
			EntryTime: lot.entry,
			ExitTime:  f.Time,
			Quantity:  lot.closed,
			PnL:       lot.realized,
		})
		if remaining == 0 {
			delete(open, f.Symbol)
		} else {
			// Flip: remainder opens a fresh trip at the fill price.
			open[f.Symbol] = &openLot{qty: remaining, avgCost: f.Price, entry: f.Time}
		}
	}
	return trips
}

func absQty(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
