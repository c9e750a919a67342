package strategies

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/indicators"
)

// SMACrossParams configures the moving-average crossover strategy.
type SMACrossParams struct {
	Symbol     string
	FastWindow int
	SlowWindow int
}

func (p SMACrossParams) Validate() error {
	var errs []error
	if p.Symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if p.FastWindow < 1 {
		errs = append(errs, fmt.Errorf("fast window must be >= 1, got %d", p.FastWindow))
	}
	if p.SlowWindow < 2 {
		errs = append(errs, fmt.Errorf("slow window must be >= 2, got %d", p.SlowWindow))
	}
	if p.FastWindow >= p.SlowWindow {
		errs = append(errs, fmt.Errorf("fast window %d must be < slow window %d", p.FastWindow, p.SlowWindow))
	}
	return errors.Join(errs...)
}

// SMACross signals BUY when the fast SMA crosses above the slow SMA and
// SELL on the bearish cross. It holds streaming indicator state across
// bars; the simulation feeds each bar exactly once.
type SMACross struct {
	params SMACrossParams

	fast *indicators.SimpleMA
	slow *indicators.SimpleMA

	lastDiff     float64
	haveLastDiff bool
	lastFed      time.Time
}

func NewSMACross(p SMACrossParams) (*SMACross, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("sma-cross: %w", err)
	}
	return &SMACross{
		params: p,
		fast:   indicators.NewSMA(p.FastWindow),
		slow:   indicators.NewSMA(p.SlowWindow),
	}, nil
}

func NewSMACrossFactory(symbol string, opts map[string]float64) (Strategy, error) {
	return NewSMACross(SMACrossParams{
		Symbol:     symbol,
		FastWindow: int(opt(opts, "fast", 10)),
		SlowWindow: int(opt(opts, "slow", 30)),
	})
}

func (s *SMACross) Name() string      { return "sma-cross" }
func (s *SMACross) Symbols() []string { return []string{s.params.Symbol} }

func (s *SMACross) GenerateSignals(w Window) map[string]Signal {
	bar, ok := w.Latest(s.params.Symbol)
	if !ok || !bar.Time.After(s.lastFed) {
		return nil
	}
	s.lastFed = bar.Time

	s.fast.Update(bar.Close)
	s.slow.Update(bar.Close)
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff = diff
		s.haveLastDiff = true
		return nil
	}

	bullCross := diff > 0 && s.lastDiff <= 0
	bearCross := diff < 0 && s.lastDiff >= 0
	s.lastDiff = diff

	kind := Hold
	switch {
	case bullCross:
		kind = Buy
	case bearCross:
		kind = Sell
	}

	return map[string]Signal{
		s.params.Symbol: {Symbol: s.params.Symbol, Kind: kind, Confidence: 1.0, Time: w.Time},
	}
}
