package orders

import (
	"errors"
	"testing"
	"time"
)

func newMarketOrder(id int64, qty int64) *Order {
	return &Order{
		ID:        id,
		Symbol:    "SPY",
		Side:      Buy,
		Kind:      Market,
		Quantity:  qty,
		Status:    Pending,
		CreatedAt: time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
	}
}

func fill(o *Order, qty int64, price float64) Fill {
	return Fill{
		OrderID:  o.ID,
		Symbol:   o.Symbol,
		Side:     o.Side,
		Quantity: qty,
		Price:    price,
		Time:     o.CreatedAt,
	}
}

func TestOrderLifecycle(t *testing.T) {
	o := newMarketOrder(1, 100)

	if !o.IsOpen() {
		t.Fatal("new order should be open")
	}
	if o.Remaining() != 100 {
		t.Fatalf("remaining = %d, want 100", o.Remaining())
	}

	if err := o.ApplyFill(fill(o, 40, 50)); err != nil {
		t.Fatalf("apply first fill: %v", err)
	}
	if o.Status != PartiallyFilled {
		t.Fatalf("status = %s, want PARTIALLY_FILLED", o.Status)
	}
	if o.Remaining() != 60 {
		t.Fatalf("remaining = %d, want 60", o.Remaining())
	}

	if err := o.ApplyFill(fill(o, 60, 51)); err != nil {
		t.Fatalf("apply second fill: %v", err)
	}
	if o.Status != Filled {
		t.Fatalf("status = %s, want FILLED", o.Status)
	}
	if o.FilledQty != 100 {
		t.Fatalf("filled = %d, want 100", o.FilledQty)
	}
	if len(o.Fills) != 2 {
		t.Fatalf("fills = %d, want 2", len(o.Fills))
	}
}

func TestOrderOverfill(t *testing.T) {
	o := newMarketOrder(2, 100)
	if err := o.ApplyFill(fill(o, 70, 50)); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	err := o.ApplyFill(fill(o, 40, 50))
	if !errors.Is(err, ErrOverfill) {
		t.Fatalf("err = %v, want ErrOverfill", err)
	}

	// State unchanged after the rejected fill.
	if o.FilledQty != 70 || o.Status != PartiallyFilled {
		t.Fatalf("state mutated by rejected fill: filled=%d status=%s", o.FilledQty, o.Status)
	}
}

func TestOrderFillAfterTerminal(t *testing.T) {
	o := newMarketOrder(3, 10)
	if !o.Cancel() {
		t.Fatal("cancel open order should succeed")
	}

	err := o.ApplyFill(fill(o, 5, 50))
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("err = %v, want ErrTerminal", err)
	}
}

func TestOrderCancelTerminalIsNoop(t *testing.T) {
	o := newMarketOrder(4, 10)
	if err := o.ApplyFill(fill(o, 10, 50)); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	if o.Cancel() {
		t.Fatal("cancel of a FILLED order must report false")
	}
	if o.Status != Filled {
		t.Fatalf("status = %s, want FILLED", o.Status)
	}
}

func TestOrderExpiry(t *testing.T) {
	o := newMarketOrder(5, 100)
	o.ExpiresAt = o.CreatedAt.Add(time.Hour)

	if o.ExpireIfDue(o.CreatedAt.Add(59 * time.Minute)) {
		t.Fatal("order expired before its deadline")
	}

	if err := o.ApplyFill(fill(o, 30, 50)); err != nil {
		t.Fatalf("apply fill: %v", err)
	}

	// Boundary: now == ExpiresAt expires.
	if !o.ExpireIfDue(o.CreatedAt.Add(time.Hour)) {
		t.Fatal("order should expire at its deadline")
	}
	if o.Status != Expired {
		t.Fatalf("status = %s, want EXPIRED", o.Status)
	}
	if o.FilledQty != 30 {
		t.Fatalf("expiry dropped filled quantity: %d", o.FilledQty)
	}

	// Already terminal: second sweep is a no-op.
	if o.ExpireIfDue(o.CreatedAt.Add(2 * time.Hour)) {
		t.Fatal("terminal order expired twice")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		order Order
		ok    bool
	}{
		{"market ok", Order{ID: 1, Symbol: "SPY", Side: Buy, Kind: Market, Quantity: 10}, true},
		{"limit ok", Order{ID: 2, Symbol: "SPY", Side: Sell, Kind: Limit, Quantity: 10, LimitPrice: 50}, true},
		{"zero quantity", Order{ID: 3, Symbol: "SPY", Side: Buy, Kind: Market, Quantity: 0}, false},
		{"negative quantity", Order{ID: 4, Symbol: "SPY", Side: Buy, Kind: Market, Quantity: -5}, false},
		{"limit without price", Order{ID: 5, Symbol: "SPY", Side: Buy, Kind: Limit, Quantity: 10}, false},
		{"stop without price", Order{ID: 6, Symbol: "SPY", Side: Sell, Kind: Stop, Quantity: 10}, false},
		{"missing symbol", Order{ID: 7, Side: Buy, Kind: Market, Quantity: 10}, false},
		{"bad side", Order{ID: 8, Symbol: "SPY", Side: 0, Kind: Market, Quantity: 10}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.order)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected validation error")
				}
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("err type = %T, want *ValidationError", err)
				}
			}
		})
	}
}
