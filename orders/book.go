package orders

import (
	"sort"
	"time"
)

// Book indexes open orders per symbol and keeps the append-only history of
// every order ever submitted. Orders are never deleted; terminal orders are
// dropped from the open index but stay in History for the audit trail.
type Book struct {
	open map[string][]*Order
	byID map[int64]*Order

	history []*Order
}

func NewBook() *Book {
	return &Book{
		open: make(map[string][]*Order),
		byID: make(map[int64]*Order),
	}
}

// Add validates an order and registers it with the book.
func (b *Book) Add(o *Order) error {
	if err := Validate(o); err != nil {
		return err
	}
	b.open[o.Symbol] = append(b.open[o.Symbol], o)
	b.byID[o.ID] = o
	b.history = append(b.history, o)
	return nil
}

// Get looks up any order, open or terminal, by ID.
func (b *Book) Get(id int64) (*Order, bool) {
	o, ok := b.byID[id]
	return o, ok
}

// Open returns the open orders for a symbol in submission (ID) order.
// The returned slice must not be mutated by callers.
func (b *Book) Open(symbol string) []*Order {
	return b.open[symbol]
}

// OpenQuantity returns the total unfilled quantity across a symbol's open
// orders on one side.
func (b *Book) OpenQuantity(symbol string, side Side) int64 {
	var n int64
	for _, o := range b.open[symbol] {
		if o.Side == side {
			n += o.Remaining()
		}
	}
	return n
}

// OpenCount returns the number of open orders across all symbols.
func (b *Book) OpenCount() int {
	n := 0
	for _, os := range b.open {
		n += len(os)
	}
	return n
}

// History returns all orders ever submitted, in submission order.
func (b *Book) History() []*Order { return b.history }

// Cancel cancels an open order by ID. Returns false (a no-op) if the order
// is unknown or already terminal.
func (b *Book) Cancel(id int64) bool {
	o, ok := b.byID[id]
	if !ok {
		return false
	}
	if !o.Cancel() {
		return false
	}
	b.Retire(o)
	return true
}

// ExpireDue sweeps every open order and expires those whose ExpiresAt has
// passed. Returns the expired orders in ID order for journaling.
func (b *Book) ExpireDue(now time.Time) []*Order {
	var expired []*Order
	for _, os := range b.open {
		for _, o := range os {
			if o.ExpireIfDue(now) {
				expired = append(expired, o)
			}
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	for _, o := range expired {
		b.Retire(o)
	}
	return expired
}

// Retire removes a terminal order from the open index. History is untouched.
func (b *Book) Retire(o *Order) {
	if !o.Status.Terminal() {
		return
	}
	os := b.open[o.Symbol]
	for i, x := range os {
		if x.ID == o.ID {
			b.open[o.Symbol] = append(os[:i], os[i+1:]...)
			break
		}
	}
	if len(b.open[o.Symbol]) == 0 {
		delete(b.open, o.Symbol)
	}
}
