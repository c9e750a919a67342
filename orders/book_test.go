package orders

import (
	"testing"
	"time"
)

func TestBookAddAndOpen(t *testing.T) {
	b := NewBook()

	o1 := newMarketOrder(1, 100)
	o2 := newMarketOrder(2, 50)
	if err := b.Add(o1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := b.Add(o2); err != nil {
		t.Fatalf("add: %v", err)
	}

	open := b.Open("SPY")
	if len(open) != 2 || open[0].ID != 1 || open[1].ID != 2 {
		t.Fatalf("open orders out of submission order: %v", open)
	}
	if b.OpenCount() != 2 {
		t.Fatalf("open count = %d, want 2", b.OpenCount())
	}
}

func TestBookRejectsInvalid(t *testing.T) {
	b := NewBook()
	bad := &Order{ID: 1, Symbol: "SPY", Side: Buy, Kind: Market, Quantity: 0}

	if err := b.Add(bad); err == nil {
		t.Fatal("expected validation error")
	}
	if b.OpenCount() != 0 || len(b.History()) != 0 {
		t.Fatal("rejected order must not enter the book")
	}
}

func TestBookCancel(t *testing.T) {
	b := NewBook()
	o := newMarketOrder(1, 100)
	if err := b.Add(o); err != nil {
		t.Fatalf("add: %v", err)
	}

	if !b.Cancel(1) {
		t.Fatal("cancel open order should succeed")
	}
	if b.OpenCount() != 0 {
		t.Fatal("cancelled order still in open index")
	}
	if len(b.History()) != 1 {
		t.Fatal("cancelled order dropped from history")
	}

	// Unknown and already-terminal IDs are reported no-ops.
	if b.Cancel(1) {
		t.Fatal("second cancel should report false")
	}
	if b.Cancel(99) {
		t.Fatal("cancel of unknown order should report false")
	}
}

func TestBookExpireDue(t *testing.T) {
	b := NewBook()
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	gtc := newMarketOrder(1, 100)
	due := newMarketOrder(2, 100)
	due.ExpiresAt = base.Add(time.Hour)
	later := newMarketOrder(3, 100)
	later.ExpiresAt = base.Add(48 * time.Hour)

	for _, o := range []*Order{gtc, due, later} {
		if err := b.Add(o); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	expired := b.ExpireDue(base.Add(time.Hour))
	if len(expired) != 1 || expired[0].ID != 2 {
		t.Fatalf("expired = %v, want just order 2", expired)
	}
	if due.Status != Expired {
		t.Fatalf("status = %s, want EXPIRED", due.Status)
	}
	if b.OpenCount() != 2 {
		t.Fatalf("open count = %d, want 2", b.OpenCount())
	}
}

func TestBookExpireDueOrderedByID(t *testing.T) {
	b := NewBook()
	base := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

	// Orders spread over several symbols so the sweep crosses the symbol
	// index; the expired slice must still come back in ID order.
	for i, sym := range []string{"QQQ", "SPY", "IWM", "DIA", "GLD"} {
		o := &Order{
			ID: int64(i + 1), Symbol: sym, Side: Buy, Kind: Market,
			Quantity: 100, ExpiresAt: base,
		}
		if err := b.Add(o); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	expired := b.ExpireDue(base)
	if len(expired) != 5 {
		t.Fatalf("expired %d orders, want 5", len(expired))
	}
	for i, o := range expired {
		if o.ID != int64(i+1) {
			t.Fatalf("expired[%d].ID = %d, want %d", i, o.ID, i+1)
		}
	}
}

func TestBookOpenQuantity(t *testing.T) {
	b := NewBook()

	sell1 := &Order{ID: 1, Symbol: "SPY", Side: Sell, Kind: Market, Quantity: 100}
	sell2 := &Order{ID: 2, Symbol: "SPY", Side: Sell, Kind: Market, Quantity: 40}
	buy := &Order{ID: 3, Symbol: "SPY", Side: Buy, Kind: Market, Quantity: 500}
	other := &Order{ID: 4, Symbol: "QQQ", Side: Sell, Kind: Market, Quantity: 25}

	for _, o := range []*Order{sell1, sell2, buy, other} {
		if err := b.Add(o); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if got := b.OpenQuantity("SPY", Sell); got != 140 {
		t.Fatalf("open sell quantity = %d, want 140", got)
	}
	if got := b.OpenQuantity("SPY", Buy); got != 500 {
		t.Fatalf("open buy quantity = %d, want 500", got)
	}

	// Partial fills count only the unfilled remainder.
	if err := sell1.ApplyFill(Fill{OrderID: 1, Symbol: "SPY", Side: Sell, Quantity: 60, Price: 50}); err != nil {
		t.Fatalf("apply fill: %v", err)
	}
	if got := b.OpenQuantity("SPY", Sell); got != 80 {
		t.Fatalf("open sell quantity after partial fill = %d, want 80", got)
	}
}
