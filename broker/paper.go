package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/orders"
	"github.com/rustyeddy/backtester/pkg/id"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/sim"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrHalted        = errors.New("paper broker halted")
)

// Paper simulates a brokerage against replayed or streamed bars. Orders
// submitted through it sit in a latency queue and only become eligible for
// matching Latency after submission, so a strategy cannot fill on the bar
// it reacted to.
//
// Unlike the backtest driver, Paper is safe for concurrent use: strategies
// may submit and poll from other goroutines while OnBar runs.
type Paper struct {
	mu      sync.Mutex
	ledger  *portfolio.Ledger
	book    *orders.Book
	match   *sim.Engine
	jrnl    journal.Journal
	runID   string
	latency time.Duration

	nextID  int64
	pending []deferred // not yet eligible for matching
	unread  []orders.Fill
	halted  error
}

// deferred is an accepted order waiting out its submission latency.
type deferred struct {
	order    *orders.Order
	eligible time.Time
}

func NewPaper(cash float64, allowShort bool, match sim.Config, latency time.Duration, jrnl journal.Journal) *Paper {
	if jrnl == nil {
		jrnl = journal.Nop{}
	}
	return &Paper{
		ledger:  portfolio.NewLedger(cash, allowShort),
		book:    orders.NewBook(),
		match:   sim.New(match),
		jrnl:    jrnl,
		runID:   id.New(),
		latency: latency,
		nextID:  1,
	}
}

func (p *Paper) RunID() string             { return p.runID }
func (p *Paper) Ledger() *portfolio.Ledger { return p.ledger }

// SubmitOrder validates and queues an order. The returned ID is assigned
// by the broker; any ID on the request is ignored.
func (p *Paper) SubmitOrder(ctx context.Context, o orders.Order) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.halted != nil {
		return 0, p.halted
	}

	o.ID = p.nextID
	o.Status = orders.Pending
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	if err := orders.Validate(&o); err != nil {
		return 0, err
	}
	if o.Side == orders.Sell && !p.ledger.AllowShort() {
		held := p.ledger.Position(o.Symbol).Quantity
		open := p.book.OpenQuantity(o.Symbol, orders.Sell)
		for _, d := range p.pending {
			if d.order.Symbol == o.Symbol && d.order.Side == orders.Sell {
				open += d.order.Remaining()
			}
		}
		if o.Quantity+open > held {
			return 0, &orders.ValidationError{OrderID: o.ID,
				Reason: fmt.Sprintf("sell %d with %d already open exceeds held %d with short-selling disabled",
					o.Quantity, open, held)}
		}
	}
	p.nextID++

	queued := o
	p.pending = append(p.pending, deferred{
		order:    &queued,
		eligible: o.CreatedAt.Add(p.latency),
	})
	p.jrnl.RecordOrder(journal.NewOrderRecord(p.runID, &queued))
	return queued.ID, nil
}

// CancelOrder cancels an open or still-queued order. Cancelling an order
// that already reached a terminal state reports false with no error.
func (p *Paper) CancelOrder(ctx context.Context, orderID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, d := range p.pending {
		if d.order.ID == orderID {
			if !d.order.Cancel() {
				return false, nil
			}
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			p.jrnl.RecordOrder(journal.NewOrderRecord(p.runID, d.order))
			return true, nil
		}
	}

	if o, ok := p.book.Get(orderID); ok {
		if !o.Cancel() {
			return false, nil
		}
		p.book.Retire(o)
		p.jrnl.RecordOrder(journal.NewOrderRecord(p.runID, o))
		return true, nil
	}
	return false, ErrOrderNotFound
}

// PollFills drains the fills produced since the previous poll.
func (p *Paper) PollFills(ctx context.Context) ([]orders.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.unread
	p.unread = nil
	return out, nil
}

func (p *Paper) Account(ctx context.Context) (AccountState, error) {
	if err := ctx.Err(); err != nil {
		return AccountState{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return AccountState{
		Cash:       p.ledger.Cash(),
		Equity:     p.ledger.Equity(),
		RealizedPL: p.ledger.RealizedPL(),
		Positions:  p.ledger.Positions(),
	}, nil
}

// OnBar advances the simulation by one bar: it releases latency-expired
// orders into the book, expires due orders, matches the bar and applies
// fills. An accounting invariant violation halts the broker permanently;
// every later call reports the original error.
func (p *Paper) OnBar(bar market.Bar) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.halted != nil {
		return p.halted
	}

	p.releaseLocked(bar.Time)

	for _, o := range p.book.ExpireDue(bar.Time) {
		p.jrnl.RecordOrder(journal.NewOrderRecord(p.runID, o))
	}

	for _, in := range p.match.Match(bar, p.book.Open(bar.Symbol)) {
		o, ok := p.book.Get(in.OrderID)
		if !ok {
			continue
		}
		if in.Fill.Quantity > 0 {
			if err := o.ApplyFill(in.Fill); err != nil {
				p.halted = fmt.Errorf("%w: %v", ErrHalted, err)
				return p.halted
			}
			if err := p.ledger.ApplyFill(in.Fill); err != nil {
				p.halted = fmt.Errorf("%w: %v", ErrHalted, err)
				return p.halted
			}
			p.unread = append(p.unread, in.Fill)
			p.jrnl.RecordFill(journal.NewFillRecord(p.runID, in.Fill))
		}
		if in.CancelRemainder {
			o.Cancel()
		}
		if o.Status.Terminal() {
			p.book.Retire(o)
		}
		p.jrnl.RecordOrder(journal.NewOrderRecord(p.runID, o))
	}

	p.ledger.MarkPrice(bar.Symbol, bar.Close)
	pt := p.ledger.RecordEquity(bar.Time)
	p.jrnl.RecordEquity(journal.EquityRecord{
		RunID:  p.runID,
		Time:   bar.Time,
		Cash:   p.ledger.Cash(),
		Equity: pt.Equity,
	})
	return nil
}

// releaseLocked moves latency-expired orders from the queue into the book.
func (p *Paper) releaseLocked(now time.Time) {
	keep := p.pending[:0]
	for _, d := range p.pending {
		if d.eligible.After(now) {
			keep = append(keep, d)
			continue
		}
		if err := p.book.Add(d.order); err != nil {
			p.jrnl.RecordOrder(journal.NewOrderRecord(p.runID, d.order))
		}
	}
	p.pending = keep
}

// Run feeds bars from the channel until it closes, the context is
// cancelled, or maxBars bars have been processed (zero means unlimited).
// Designed for soak tests and demo loops; backtests use the driver.
func (p *Paper) Run(ctx context.Context, bars <-chan market.Bar, maxBars int) error {
	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case bar, ok := <-bars:
			if !ok {
				return nil
			}
			if err := p.OnBar(bar); err != nil {
				return err
			}
			n++
			if maxBars > 0 && n >= maxBars {
				return nil
			}
		}
	}
}
