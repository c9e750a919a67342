package strategies

// BuyAndHold buys its symbol on the first bar it sees and holds forever.
// On a flat series its total return is exactly the round of commission paid
// on entry, which makes it the reference strategy for accounting tests.
type BuyAndHold struct {
	symbol string
	bought bool
}

func NewBuyAndHold(symbol string) *BuyAndHold {
	return &BuyAndHold{symbol: symbol}
}

func NewBuyAndHoldFactory(symbol string, opts map[string]float64) (Strategy, error) {
	return NewBuyAndHold(symbol), nil
}

func (s *BuyAndHold) Name() string      { return "buy-and-hold" }
func (s *BuyAndHold) Symbols() []string { return []string{s.symbol} }

func (s *BuyAndHold) GenerateSignals(w Window) map[string]Signal {
	if s.bought {
		return nil
	}
	if _, ok := w.Latest(s.symbol); !ok {
		return nil
	}
	s.bought = true
	return map[string]Signal{
		s.symbol: {Symbol: s.symbol, Kind: Buy, Confidence: 1.0, Time: w.Time},
	}
}
