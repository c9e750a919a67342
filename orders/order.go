package orders

import (
	"errors"
	"fmt"
	"time"
)

// Side is the order direction. The numeric values are the sign applied to
// position and cash deltas, so arithmetic can use int64(side) directly.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return fmt.Sprintf("Side(%d)", int8(s))
}

// Kind is the order execution type.
type Kind int8

const (
	Market Kind = iota
	Limit
	Stop
)

func (k Kind) String() string {
	switch k {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case Stop:
		return "STOP"
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

// Status is an order's lifecycle state.
//
// Transitions:
//
//	PENDING -> PARTIALLY_FILLED -> FILLED
//	PENDING | PARTIALLY_FILLED -> CANCELLED
//	PENDING | PARTIALLY_FILLED -> EXPIRED
//
// FILLED, CANCELLED and EXPIRED are terminal; no transitions out.
type Status int8

const (
	Pending Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Expired
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Expired:
		return "EXPIRED"
	}
	return fmt.Sprintf("Status(%d)", int8(s))
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled || s == Expired
}

// Fill is one execution against an order. Immutable once created.
type Fill struct {
	OrderID    int64
	Symbol     string
	Side       Side
	Quantity   int64
	Price      float64
	Commission float64
	Time       time.Time
}

// Order is a single order in the system. Orders are created by the driver,
// mutated only through ApplyFill/Cancel/ExpireIfDue, and retired in a
// terminal status permanently so the audit trail stays complete.
type Order struct {
	ID       int64
	Symbol   string
	Side     Side
	Kind     Kind
	Quantity int64

	// LimitPrice is the limit level for LIMIT orders and the trigger level
	// for STOP orders. Zero for MARKET orders.
	LimitPrice float64

	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time // zero value means good-till-cancelled

	FilledQty int64
	Fills     []Fill
}

// Remaining is the quantity yet to be filled.
func (o *Order) Remaining() int64 { return o.Quantity - o.FilledQty }

// IsOpen reports whether the order can still be executed.
func (o *Order) IsOpen() bool { return !o.Status.Terminal() }

var (
	// ErrTerminal is returned when a fill is applied to an order already in
	// a terminal state.
	ErrTerminal = errors.New("order is in a terminal state")

	// ErrOverfill is returned when a fill exceeds the remaining quantity.
	// It indicates a matching-engine invariant violation and is fatal to a
	// backtest run.
	ErrOverfill = errors.New("fill exceeds remaining quantity")
)

// ApplyFill records a fill and advances the lifecycle state. The invariant
// filled_quantity == sum(fills) <= quantity is enforced here; violations are
// reported rather than silently clamped.
func (o *Order) ApplyFill(f Fill) error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %d: %w", o.ID, ErrTerminal)
	}
	if f.Quantity <= 0 {
		return fmt.Errorf("order %d: non-positive fill quantity %d: %w", o.ID, f.Quantity, ErrOverfill)
	}
	if f.Quantity > o.Remaining() {
		return fmt.Errorf("order %d: fill quantity %d > remaining %d: %w",
			o.ID, f.Quantity, o.Remaining(), ErrOverfill)
	}

	o.Fills = append(o.Fills, f)
	o.FilledQty += f.Quantity
	if o.FilledQty == o.Quantity {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	return nil
}

// Cancel moves the order to CANCELLED if it is still open. Cancelling a
// terminal order is a reported no-op, never an error.
func (o *Order) Cancel() bool {
	if o.Status.Terminal() {
		return false
	}
	o.Status = Cancelled
	return true
}

// ExpireIfDue moves the order to EXPIRED when now >= ExpiresAt. Quantity
// already filled stays recorded; only the unfilled remainder is released.
func (o *Order) ExpireIfDue(now time.Time) bool {
	if o.Status.Terminal() || o.ExpiresAt.IsZero() || now.Before(o.ExpiresAt) {
		return false
	}
	o.Status = Expired
	return true
}
