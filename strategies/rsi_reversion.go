package strategies

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/indicators"
)

// RSIReversionParams configures the RSI mean-reversion strategy.
type RSIReversionParams struct {
	Symbol     string
	Window     int
	Oversold   float64
	Overbought float64
}

func (p RSIReversionParams) Validate() error {
	var errs []error
	if p.Symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if p.Window < 1 {
		errs = append(errs, fmt.Errorf("window must be >= 1, got %d", p.Window))
	}
	if p.Oversold <= 0 || p.Oversold > 50 {
		errs = append(errs, fmt.Errorf("oversold must be in (0, 50], got %v", p.Oversold))
	}
	if p.Overbought < 50 || p.Overbought >= 100 {
		errs = append(errs, fmt.Errorf("overbought must be in [50, 100), got %v", p.Overbought))
	}
	return errors.Join(errs...)
}

// RSIReversion buys when RSI drops below the oversold threshold and sells
// when it rises above the overbought threshold.
type RSIReversion struct {
	params  RSIReversionParams
	rsi     *indicators.RSI
	lastFed time.Time
}

func NewRSIReversion(p RSIReversionParams) (*RSIReversion, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("rsi-reversion: %w", err)
	}
	return &RSIReversion{
		params: p,
		rsi:    indicators.NewRSI(p.Window),
	}, nil
}

func NewRSIReversionFactory(symbol string, opts map[string]float64) (Strategy, error) {
	return NewRSIReversion(RSIReversionParams{
		Symbol:     symbol,
		Window:     int(opt(opts, "window", 14)),
		Oversold:   opt(opts, "oversold", 30),
		Overbought: opt(opts, "overbought", 70),
	})
}

func (s *RSIReversion) Name() string      { return "rsi-reversion" }
func (s *RSIReversion) Symbols() []string { return []string{s.params.Symbol} }

func (s *RSIReversion) GenerateSignals(w Window) map[string]Signal {
	bar, ok := w.Latest(s.params.Symbol)
	if !ok || !bar.Time.After(s.lastFed) {
		return nil
	}
	s.lastFed = bar.Time

	s.rsi.Update(bar.Close)
	if !s.rsi.Ready() {
		return nil
	}

	v := s.rsi.Value()
	kind := Hold
	switch {
	case v < s.params.Oversold:
		kind = Buy
	case v > s.params.Overbought:
		kind = Sell
	}

	return map[string]Signal{
		s.params.Symbol: {Symbol: s.params.Symbol, Kind: kind, Confidence: 1.0, Time: w.Time},
	}
}
