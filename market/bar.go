package market

import "time"

// Bar represents one OHLCV bar of market data for a single symbol.
// Bars are immutable once emitted by a data source.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Spread returns the bar's high-low range, used as the slippage base.
func (b Bar) Spread() float64 {
	return b.High - b.Low
}
