package strategies

import (
	"fmt"
	"time"
)

// Kind is a signal's direction. HOLD signals never become orders.
type Kind int8

const (
	Hold Kind = iota
	Buy
	Sell
)

func (k Kind) String() string {
	switch k {
	case Hold:
		return "HOLD"
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return fmt.Sprintf("Kind(%d)", int8(k))
}

// Signal is a strategy's opinion about one symbol for one bar. Signals are
// ephemeral: they exist only long enough to be sized into an order.
type Signal struct {
	Symbol     string
	Kind       Kind
	Confidence float64 // in [0, 1]
	Time       time.Time
}
