package portfolio

// Position is the signed holding in one symbol with its weighted-average
// cost. Quantity is negative only when short-selling is enabled.
type Position struct {
	Symbol   string
	Quantity int64
	AvgCost  float64
}

func (p Position) MarketValue(price float64) float64 {
	return float64(p.Quantity) * price
}

func (p Position) UnrealizedPL(price float64) float64 {
	return float64(p.Quantity) * (price - p.AvgCost)
}
