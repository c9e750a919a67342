package sim

// CommissionModel prices the commission for one fill.
type CommissionModel interface {
	Commission(qty int64, price float64) float64
}

// FlatCommission charges a fixed fee per fill.
type FlatCommission struct {
	Fee float64
}

func (c FlatCommission) Commission(qty int64, price float64) float64 {
	return c.Fee
}

// PerShareCommission charges a fee per share/unit filled.
type PerShareCommission struct {
	Fee float64
}

func (c PerShareCommission) Commission(qty int64, price float64) float64 {
	return float64(qty) * c.Fee
}

// PercentCommission charges a fraction of the fill's notional value.
type PercentCommission struct {
	Rate float64 // 0.001 = 10 bps
}

func (c PercentCommission) Commission(qty int64, price float64) float64 {
	return float64(qty) * price * c.Rate
}
