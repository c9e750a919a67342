package backtest

import (
	"context"
	"sync"

	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategies"
)

// RunSpec describes one independent run inside a sweep: a label, the run
// configuration, and a factory invocation for the strategy under test.
type RunSpec struct {
	Label    string
	Config   Config
	Strategy string
	Symbol   string
	Options  map[string]float64
	Sizer    Sizer
}

// SweepResult pairs a spec's label with its outcome.
type SweepResult struct {
	Label  string
	Result *Result
	Err    error
}

// Sweep runs every spec against the same data, up to workers at a time.
// Each run gets its own driver, ledger and book, so runs never share
// mutable state; results come back in spec order regardless of which
// worker finished first.
func Sweep(ctx context.Context, specs []RunSpec, data map[string]*market.Series, reg *strategies.Registry, workers int) []SweepResult {
	if workers <= 0 {
		workers = 1
	}
	if reg == nil {
		reg = strategies.Builtin()
	}

	out := make([]SweepResult, len(specs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec RunSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out[i] = runSpec(ctx, spec, data, reg)
		}(i, spec)
	}
	wg.Wait()
	return out
}

func runSpec(ctx context.Context, spec RunSpec, data map[string]*market.Series, reg *strategies.Registry) SweepResult {
	strat, err := reg.New(spec.Strategy, spec.Symbol, spec.Options)
	if err != nil {
		return SweepResult{Label: spec.Label, Err: err}
	}

	d := New(spec.Config, data, journal.Nop{})
	d.Register(strat)
	if spec.Sizer != nil {
		d.SetSizer(spec.Sizer)
	}

	res, err := d.Run(ctx)
	return SweepResult{Label: spec.Label, Result: res, Err: err}
}
