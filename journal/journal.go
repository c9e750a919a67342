package journal

import (
	"time"

	"github.com/rustyeddy/backtester/orders"
)

// OrderRecord is the persisted view of one order's lifecycle. It is written
// when the order is submitted and rewritten whenever its status changes, so
// the stored row always reflects the latest state while fills preserve the
// step-by-step history.
type OrderRecord struct {
	RunID      string
	OrderID    int64
	Symbol     string
	Side       string
	Kind       string
	Quantity   int64
	LimitPrice float64
	Status     string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	FilledQty  int64
}

// NewOrderRecord snapshots an order for journaling.
func NewOrderRecord(runID string, o *orders.Order) OrderRecord {
	return OrderRecord{
		RunID:      runID,
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Side:       o.Side.String(),
		Kind:       o.Kind.String(),
		Quantity:   o.Quantity,
		LimitPrice: o.LimitPrice,
		Status:     o.Status.String(),
		CreatedAt:  o.CreatedAt,
		ExpiresAt:  o.ExpiresAt,
		FilledQty:  o.FilledQty,
	}
}

// FillRecord is one executed fill.
type FillRecord struct {
	RunID      string
	OrderID    int64
	Symbol     string
	Side       string
	Quantity   int64
	Price      float64
	Commission float64
	Time       time.Time
}

// NewFillRecord snapshots a fill for journaling.
func NewFillRecord(runID string, f orders.Fill) FillRecord {
	return FillRecord{
		RunID:      runID,
		OrderID:    f.OrderID,
		Symbol:     f.Symbol,
		Side:       f.Side.String(),
		Quantity:   f.Quantity,
		Price:      f.Price,
		Commission: f.Commission,
		Time:       f.Time,
	}
}

// EquityRecord is one equity-curve sample.
type EquityRecord struct {
	RunID  string
	Time   time.Time
	Cash   float64
	Equity float64
}

// RunRecord summarizes one completed backtest run.
type RunRecord struct {
	RunID       string
	Created     time.Time
	Strategy    string
	Symbols     string
	InitialCash float64
	FinalCash   float64
	FinalEquity float64
	Steps       int
	Fills       int
}

// Journal persists the audit trail of a run. Implementations must accept
// records in the order they are produced; the driver never reorders.
type Journal interface {
	RecordOrder(OrderRecord) error
	RecordFill(FillRecord) error
	RecordEquity(EquityRecord) error
	RecordRun(RunRecord) error
	Close() error
}

// Nop discards everything. Useful for sweeps that only need the in-memory
// results.
type Nop struct{}

func (Nop) RecordOrder(OrderRecord) error   { return nil }
func (Nop) RecordFill(FillRecord) error     { return nil }
func (Nop) RecordEquity(EquityRecord) error { return nil }
func (Nop) RecordRun(RunRecord) error       { return nil }
func (Nop) Close() error                    { return nil }
