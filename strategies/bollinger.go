package strategies

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/indicators"
)

// BollingerParams configures the Bollinger band reversion strategy.
type BollingerParams struct {
	Symbol string
	Window int
	NumStd float64
}

func (p BollingerParams) Validate() error {
	var errs []error
	if p.Symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if p.Window < 2 {
		errs = append(errs, fmt.Errorf("window must be >= 2, got %d", p.Window))
	}
	if p.NumStd <= 0 {
		errs = append(errs, fmt.Errorf("num std must be positive, got %v", p.NumStd))
	}
	return errors.Join(errs...)
}

// Bollinger buys when the close drops below the lower band and sells when
// it rises above the upper band.
type Bollinger struct {
	params  BollingerParams
	ma      *indicators.SimpleMA
	std     *indicators.StdDev
	lastFed time.Time
}

func NewBollinger(p BollingerParams) (*Bollinger, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bollinger: %w", err)
	}
	return &Bollinger{
		params: p,
		ma:     indicators.NewSMA(p.Window),
		std:    indicators.NewStdDev(p.Window),
	}, nil
}

func NewBollingerFactory(symbol string, opts map[string]float64) (Strategy, error) {
	return NewBollinger(BollingerParams{
		Symbol: symbol,
		Window: int(opt(opts, "window", 20)),
		NumStd: opt(opts, "num-std", 2.0),
	})
}

func (s *Bollinger) Name() string      { return "bollinger" }
func (s *Bollinger) Symbols() []string { return []string{s.params.Symbol} }

func (s *Bollinger) GenerateSignals(w Window) map[string]Signal {
	bar, ok := w.Latest(s.params.Symbol)
	if !ok || !bar.Time.After(s.lastFed) {
		return nil
	}
	s.lastFed = bar.Time

	s.ma.Update(bar.Close)
	s.std.Update(bar.Close)
	if !s.ma.Ready() || !s.std.Ready() {
		return nil
	}

	upper := s.ma.Value() + s.params.NumStd*s.std.Value()
	lower := s.ma.Value() - s.params.NumStd*s.std.Value()

	kind := Hold
	switch {
	case bar.Close < lower:
		kind = Buy
	case bar.Close > upper:
		kind = Sell
	}

	return map[string]Signal{
		s.params.Symbol: {Symbol: s.params.Symbol, Kind: kind, Confidence: 1.0, Time: w.Time},
	}
}
