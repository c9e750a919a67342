package broker

import (
	"context"

	"github.com/rustyeddy/backtester/orders"
	"github.com/rustyeddy/backtester/portfolio"
)

// Broker is the asynchronous order interface used by paper trading. The
// backtest driver bypasses it and owns its book directly; this surface
// exists for strategies running against a live-style loop.
type Broker interface {
	SubmitOrder(ctx context.Context, o orders.Order) (int64, error)
	CancelOrder(ctx context.Context, id int64) (bool, error)
	PollFills(ctx context.Context) ([]orders.Fill, error)
	Account(ctx context.Context) (AccountState, error)
}

// AccountState is a point-in-time snapshot of the paper account.
type AccountState struct {
	Cash       float64
	Equity     float64
	RealizedPL float64
	Positions  map[string]portfolio.Position
}
