package orders

import "fmt"

// ValidationError rejects a malformed order synchronously at submission,
// before it ever reaches the matching phase.
type ValidationError struct {
	OrderID int64
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order %d: %s", e.OrderID, e.Reason)
}

// Validate checks the syntactic rules every order must satisfy. A nil error
// means the order may enter the book.
func Validate(o *Order) error {
	if o.Side != Buy && o.Side != Sell {
		return &ValidationError{OrderID: o.ID, Reason: fmt.Sprintf("bad side %d", o.Side)}
	}
	if o.Quantity <= 0 {
		return &ValidationError{OrderID: o.ID, Reason: fmt.Sprintf("quantity must be positive, got %d", o.Quantity)}
	}
	switch o.Kind {
	case Market:
	case Limit, Stop:
		if o.LimitPrice <= 0 {
			return &ValidationError{OrderID: o.ID,
				Reason: fmt.Sprintf("%s order requires a positive price, got %v", o.Kind, o.LimitPrice)}
		}
	default:
		return &ValidationError{OrderID: o.ID, Reason: fmt.Sprintf("bad kind %d", o.Kind)}
	}
	if o.Symbol == "" {
		return &ValidationError{OrderID: o.ID, Reason: "symbol is required"}
	}
	return nil
}
