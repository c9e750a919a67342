package strategies

import (
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// Window is the trailing view of market data a strategy sees at one
// timestamp: per tracked symbol, the bars up to and including Time.
type Window struct {
	Time time.Time
	Bars map[string][]market.Bar
}

// Latest returns the newest bar for a symbol if it is current, i.e. stamped
// exactly at the window's time. Strategies feeding streaming indicators use
// this to consume each bar exactly once and to skip symbols gapped at this
// timestamp.
func (w Window) Latest(symbol string) (market.Bar, bool) {
	bars := w.Bars[symbol]
	if len(bars) == 0 {
		return market.Bar{}, false
	}
	b := bars[len(bars)-1]
	if !b.Time.Equal(w.Time) {
		return market.Bar{}, false
	}
	return b, true
}

// Strategy turns a bar window into signals. Implementations may hold
// internal state (indicator caches) but must not mutate ledger or order
// data; they only observe prices and emit opinions.
type Strategy interface {
	Name() string
	Symbols() []string
	GenerateSignals(w Window) map[string]Signal
}

// Factory builds a configured strategy for one symbol. Options carry the
// loose numeric parameters from config or CLI flags; each factory converts
// them into its typed parameter struct and validates once at construction.
type Factory func(symbol string, opts map[string]float64) (Strategy, error)

// Registry maps strategy identifiers to factories. It is populated by
// explicit Register calls at process startup; there is no implicit
// discovery or scanning.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) error {
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

func (r *Registry) New(name, symbol string, opts map[string]float64) (Strategy, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %v)", name, r.Names())
	}
	return f(symbol, opts)
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Builtin returns a registry with every strategy shipped in this package.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register("noop", func(symbol string, opts map[string]float64) (Strategy, error) {
		return NoopStrategy{}, nil
	})
	r.Register("buy-and-hold", NewBuyAndHoldFactory)
	r.Register("sma-cross", NewSMACrossFactory)
	r.Register("rsi-reversion", NewRSIReversionFactory)
	r.Register("bollinger", NewBollingerFactory)
	return r
}

func opt(opts map[string]float64, key string, def float64) float64 {
	if v, ok := opts[key]; ok {
		return v
	}
	return def
}
