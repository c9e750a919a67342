package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/metrics"
	"github.com/rustyeddy/backtester/orders"
	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
	"github.com/rustyeddy/backtester/strategies"
)

// Config holds everything a single run needs. Strategy instances and
// configuration are passed explicitly at construction; no global state is
// touched during a run.
type Config struct {
	// RunID labels journal records. Generated when empty.
	RunID string

	InitialCash float64
	AllowShort  bool

	// WindowBars is the trailing window length handed to strategies.
	// Zero means 250.
	WindowBars int

	// OrderTTL expires orders this long after creation. Zero means
	// good-till-cancelled.
	OrderTTL time.Duration

	Match   sim.Config
	Metrics metrics.Options
}

// Driver owns the ledger, the order book and the replay clock for exactly
// one backtest run. It walks the ordered union of all symbols' timestamps
// and, per distinct timestamp: expires due orders, collects signals, sizes
// and submits orders, matches, applies fills, and snapshots equity.
//
// Processing order is fixed so that two runs over identical inputs produce
// byte-identical output: symbols lexicographic, strategies in registration
// order, signals per strategy in symbol order, orders in ascending ID.
type Driver struct {
	cfg      Config
	data     map[string]*market.Series
	symbols  []string
	timeline []time.Time

	strats []strategies.Strategy
	sizer  Sizer

	ledger *portfolio.Ledger
	book   *orders.Book
	match  *sim.Engine
	jrnl   journal.Journal

	nextOrderID int64
	rejected    []error
	jrnlErr     error
}

// New builds a driver over the given series map. A nil journal records
// nothing.
func New(cfg Config, data map[string]*market.Series, jrnl journal.Journal) *Driver {
	if cfg.RunID == "" {
		cfg.RunID = id.New()
	}
	if cfg.WindowBars <= 0 {
		cfg.WindowBars = 250
	}
	if jrnl == nil {
		jrnl = journal.Nop{}
	}

	return &Driver{
		cfg:         cfg,
		data:        data,
		symbols:     market.Symbols(data),
		timeline:    market.Timeline(data),
		sizer:       FixedQuantity{Quantity: 100},
		ledger:      portfolio.NewLedger(cfg.InitialCash, cfg.AllowShort),
		book:        orders.NewBook(),
		match:       sim.New(cfg.Match),
		jrnl:        jrnl,
		nextOrderID: 1,
	}
}

// Register appends a strategy. Registration order is part of the
// deterministic processing order.
func (d *Driver) Register(s strategies.Strategy) {
	d.strats = append(d.strats, s)
}

// SetSizer replaces the default fixed-quantity sizer.
func (d *Driver) SetSizer(s Sizer) {
	d.sizer = s
}

func (d *Driver) Ledger() *portfolio.Ledger { return d.ledger }
func (d *Driver) Book() *orders.Book        { return d.book }
func (d *Driver) RunID() string             { return d.cfg.RunID }

// Run replays the full timeline. Order validation failures and data gaps
// never abort the run; an accounting invariant violation halts immediately
// with the partial audit trail preserved in the returned result.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	steps := 0
	var runErr error

loop:
	for _, ts := range d.timeline {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		default:
		}

		// Current bars become the last known prices before anything else
		// happens this step, so sizing sees them.
		d.markCloses(ts)

		d.expireDue(ts)
		d.collectAndSubmit(ts)

		if err := d.matchAndApply(ts); err != nil {
			// Fatal: a corrupted ledger invalidates everything after it.
			runErr = fmt.Errorf("backtest: halted at %s: %w", ts.Format(time.RFC3339), err)
			break loop
		}

		// Fills mark traded symbols at their fill price; re-mark the
		// closes so the snapshot values every position at the bar close.
		d.markCloses(ts)

		pt := d.ledger.RecordEquity(ts)
		d.note(d.jrnl.RecordEquity(journal.EquityRecord{
			RunID:  d.cfg.RunID,
			Time:   ts,
			Cash:   d.ledger.Cash(),
			Equity: pt.Equity,
		}))
		steps++
	}

	d.note(d.jrnl.RecordRun(journal.RunRecord{
		RunID:       d.cfg.RunID,
		Created:     time.Now().UTC(),
		Strategy:    d.strategyNames(),
		Symbols:     joinSymbols(d.symbols),
		InitialCash: d.cfg.InitialCash,
		FinalCash:   d.ledger.Cash(),
		FinalEquity: d.ledger.Equity(),
		Steps:       steps,
		Fills:       len(d.ledger.Fills()),
	}))
	return d.buildResult(steps), runErr
}

// markCloses updates the last known price of every symbol with a bar at ts.
func (d *Driver) markCloses(ts time.Time) {
	for _, sym := range d.symbols {
		if bar, ok := d.data[sym].At(ts); ok {
			d.ledger.MarkPrice(sym, bar.Close)
		}
	}
}

// note keeps the first journal write failure so a truncated audit trail is
// visible in the result instead of silently passing for a clean run.
func (d *Driver) note(err error) {
	if err != nil && d.jrnlErr == nil {
		d.jrnlErr = err
	}
}

// expireDue runs the once-per-step expiry sweep.
func (d *Driver) expireDue(ts time.Time) {
	for _, o := range d.book.ExpireDue(ts) {
		d.note(d.jrnl.RecordOrder(journal.NewOrderRecord(d.cfg.RunID, o)))
	}
}

// collectAndSubmit invokes every strategy and turns its non-HOLD signals
// into orders. A bad order is rejected and recorded, never fatal.
func (d *Driver) collectAndSubmit(ts time.Time) {
	for _, strat := range d.strats {
		w := d.window(strat, ts)
		sigs := strat.GenerateSignals(w)
		if len(sigs) == 0 {
			continue
		}

		syms := make([]string, 0, len(sigs))
		for sym := range sigs {
			syms = append(syms, sym)
		}
		sort.Strings(syms)

		for _, sym := range syms {
			sig := sigs[sym]
			if sig.Kind == strategies.Hold {
				continue
			}
			d.submit(sig, ts)
		}
	}
}

func (d *Driver) window(strat strategies.Strategy, ts time.Time) strategies.Window {
	w := strategies.Window{Time: ts, Bars: make(map[string][]market.Bar)}
	for _, sym := range strat.Symbols() {
		s, ok := d.data[sym]
		if !ok {
			continue
		}
		w.Bars[sym] = s.Window(ts, d.cfg.WindowBars)
	}
	return w
}

func (d *Driver) submit(sig strategies.Signal, ts time.Time) {
	tmpl, ok := d.sizer.SizeOrder(sig, d.ledger)
	if !ok {
		return
	}

	o := &orders.Order{
		ID:         d.nextOrderID,
		Symbol:     tmpl.Symbol,
		Side:       tmpl.Side,
		Kind:       tmpl.Kind,
		Quantity:   tmpl.Quantity,
		LimitPrice: tmpl.LimitPrice,
		Status:     orders.Pending,
		CreatedAt:  ts,
		ExpiresAt:  tmpl.ExpiresAt,
	}
	d.nextOrderID++

	if o.ExpiresAt.IsZero() && d.cfg.OrderTTL > 0 {
		o.ExpiresAt = ts.Add(d.cfg.OrderTTL)
	}

	if err := d.reject(o); err != nil {
		d.rejected = append(d.rejected, err)
		return
	}
	if err := d.book.Add(o); err != nil {
		d.rejected = append(d.rejected, err)
		return
	}
	d.note(d.jrnl.RecordOrder(journal.NewOrderRecord(d.cfg.RunID, o)))
}

// reject enforces the submission-time policy checks that go beyond
// syntactic validation. A new sell is checked against the held quantity
// net of sell quantity already open in the book, so a partially filled
// sell and its follow-up can never oversell the position.
func (d *Driver) reject(o *orders.Order) error {
	if o.Side == orders.Sell && !d.ledger.AllowShort() {
		held := d.ledger.Position(o.Symbol).Quantity
		open := d.book.OpenQuantity(o.Symbol, orders.Sell)
		if o.Quantity+open > held {
			return &orders.ValidationError{OrderID: o.ID,
				Reason: fmt.Sprintf("sell %d with %d already open exceeds held %d with short-selling disabled",
					o.Quantity, open, held)}
		}
	}
	return nil
}

// matchAndApply runs the matching engine for every symbol with a bar at ts
// and applies the resulting intents. Symbols without a bar (a data gap)
// are skipped; other symbols continue.
func (d *Driver) matchAndApply(ts time.Time) error {
	for _, sym := range d.symbols {
		bar, ok := d.data[sym].At(ts)
		if !ok {
			continue
		}

		for _, in := range d.match.Match(bar, d.book.Open(sym)) {
			o, found := d.book.Get(in.OrderID)
			if !found {
				return &portfolio.InvariantError{Op: "apply intent",
					Reason: fmt.Sprintf("matching produced fill for unknown order %d", in.OrderID)}
			}

			if in.Fill.Quantity > 0 {
				if err := o.ApplyFill(in.Fill); err != nil {
					return err
				}
				if err := d.ledger.ApplyFill(in.Fill); err != nil {
					return err
				}
				d.note(d.jrnl.RecordFill(journal.NewFillRecord(d.cfg.RunID, in.Fill)))
			}
			if in.CancelRemainder {
				o.Cancel()
			}
			if o.Status.Terminal() {
				d.book.Retire(o)
			}
			d.note(d.jrnl.RecordOrder(journal.NewOrderRecord(d.cfg.RunID, o)))
		}
	}
	return nil
}

func (d *Driver) strategyNames() string {
	names := ""
	for i, s := range d.strats {
		if i > 0 {
			names += ","
		}
		names += s.Name()
	}
	return names
}

func joinSymbols(syms []string) string {
	out := ""
	for i, s := range syms {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
