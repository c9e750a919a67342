package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/orders"
)

var barTime = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func bar(open, high, low, close, volume float64) market.Bar {
	return market.Bar{
		Symbol: "SPY",
		Time:   barTime,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
	}
}

func order(id int64, side orders.Side, kind orders.Kind, qty int64, px float64) *orders.Order {
	return &orders.Order{
		ID:         id,
		Symbol:     "SPY",
		Side:       side,
		Kind:       kind,
		Quantity:   qty,
		LimitPrice: px,
		Status:     orders.Pending,
		CreatedAt:  barTime,
	}
}

func TestMatchMarketAtOpen(t *testing.T) {
	e := New(DefaultConfig())
	o := order(1, orders.Buy, orders.Market, 100, 0)

	out := e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{o})
	require.Len(t, out, 1)
	assert.Equal(t, int64(100), out[0].Fill.Quantity)
	assert.Equal(t, 50.0, out[0].Fill.Price)
	assert.False(t, out[0].CancelRemainder)
}

func TestMatchMarketAtClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriceRef = FillAtClose
	e := New(cfg)
	o := order(1, orders.Sell, orders.Market, 100, 0)

	out := e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{o})
	require.Len(t, out, 1)
	assert.Equal(t, 51.0, out[0].Fill.Price)
}

func TestMatchLiquidityCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LiquidityFraction = 0.1
	e := New(cfg)

	// floor(2500 * 0.1) = 250 shares available this bar.
	o := order(1, orders.Buy, orders.Market, 1000, 0)
	out := e.Match(bar(50, 52, 49, 51, 2500), []*orders.Order{o})
	require.Len(t, out, 1)
	assert.Equal(t, int64(250), out[0].Fill.Quantity)

	// The cap uses floor, never rounding up.
	o2 := order(2, orders.Buy, orders.Market, 1000, 0)
	out = e.Match(bar(50, 52, 49, 51, 2509), []*orders.Order{o2})
	require.Len(t, out, 1)
	assert.Equal(t, int64(250), out[0].Fill.Quantity)
}

func TestMatchZeroVolume(t *testing.T) {
	e := New(DefaultConfig())
	o := order(1, orders.Buy, orders.Market, 100, 0)

	out := e.Match(bar(50, 52, 49, 51, 0), []*orders.Order{o})
	assert.Empty(t, out)
}

func TestMatchImmediateOrCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ImmediateOrCancel = true
	e := New(cfg)

	t.Run("partial fill cancels remainder", func(t *testing.T) {
		o := order(1, orders.Buy, orders.Market, 1000, 0)
		out := e.Match(bar(50, 52, 49, 51, 2500), []*orders.Order{o})
		require.Len(t, out, 1)
		assert.Equal(t, int64(250), out[0].Fill.Quantity)
		assert.True(t, out[0].CancelRemainder)
	})

	t.Run("zero liquidity still gives up", func(t *testing.T) {
		o := order(2, orders.Buy, orders.Market, 1000, 0)
		out := e.Match(bar(50, 52, 49, 51, 0), []*orders.Order{o})
		require.Len(t, out, 1)
		assert.Equal(t, int64(0), out[0].Fill.Quantity)
		assert.True(t, out[0].CancelRemainder)
	})

	t.Run("full fill does not cancel", func(t *testing.T) {
		o := order(3, orders.Buy, orders.Market, 100, 0)
		out := e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{o})
		require.Len(t, out, 1)
		assert.False(t, out[0].CancelRemainder)
	})
}

func TestMatchLimit(t *testing.T) {
	e := New(DefaultConfig())

	t.Run("fills at exactly the limit inside the range", func(t *testing.T) {
		o := order(1, orders.Buy, orders.Limit, 100, 50.5)
		out := e.Match(bar(51, 52, 50, 51.5, 10_000), []*orders.Order{o})
		require.Len(t, out, 1)
		assert.Equal(t, 50.5, out[0].Fill.Price)
	})

	t.Run("limit below the low never fills", func(t *testing.T) {
		o := order(2, orders.Buy, orders.Limit, 100, 48)
		out := e.Match(bar(51, 52, 50, 51.5, 10_000), []*orders.Order{o})
		assert.Empty(t, out)
	})

	t.Run("limit above the high never fills", func(t *testing.T) {
		o := order(3, orders.Sell, orders.Limit, 100, 53)
		out := e.Match(bar(51, 52, 50, 51.5, 10_000), []*orders.Order{o})
		assert.Empty(t, out)
	})

	t.Run("limit at the boundary fills", func(t *testing.T) {
		o := order(4, orders.Buy, orders.Limit, 100, 50)
		out := e.Match(bar(51, 52, 50, 51.5, 10_000), []*orders.Order{o})
		require.Len(t, out, 1)
		assert.Equal(t, 50.0, out[0].Fill.Price)
	})
}

func TestMatchStop(t *testing.T) {
	e := New(DefaultConfig())

	t.Run("buy stop triggers on high cross", func(t *testing.T) {
		o := order(1, orders.Buy, orders.Stop, 100, 51)
		out := e.Match(bar(50, 52, 49, 51.5, 10_000), []*orders.Order{o})
		require.Len(t, out, 1)
		// Open gapped below the stop: execution bounded at the stop level.
		assert.Equal(t, 51.0, out[0].Fill.Price)
	})

	t.Run("buy stop gap-up never improves", func(t *testing.T) {
		o := order(2, orders.Buy, orders.Stop, 100, 51)
		out := e.Match(bar(53, 54, 52.5, 53.5, 10_000), []*orders.Order{o})
		require.Len(t, out, 1)
		assert.Equal(t, 53.0, out[0].Fill.Price)
	})

	t.Run("sell stop triggers on low cross", func(t *testing.T) {
		o := order(3, orders.Sell, orders.Stop, 100, 49)
		out := e.Match(bar(50, 51, 48, 48.5, 10_000), []*orders.Order{o})
		require.Len(t, out, 1)
		assert.Equal(t, 49.0, out[0].Fill.Price)
	})

	t.Run("untriggered stop stays open", func(t *testing.T) {
		o := order(4, orders.Buy, orders.Stop, 100, 55)
		out := e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{o})
		assert.Empty(t, out)
	})
}

func TestMatchSlippage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlippageSpreadFrac = 0.25
	e := New(cfg)

	// Spread = 52 - 49 = 3; offset = 0.75, always against the order.
	buy := order(1, orders.Buy, orders.Market, 100, 0)
	out := e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{buy})
	require.Len(t, out, 1)
	assert.InDelta(t, 50.75, out[0].Fill.Price, 1e-9)

	sell := order(2, orders.Sell, orders.Market, 100, 0)
	out = e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{sell})
	require.Len(t, out, 1)
	assert.InDelta(t, 49.25, out[0].Fill.Price, 1e-9)
}

func TestMatchSkipsOtherSymbolsAndTerminal(t *testing.T) {
	e := New(DefaultConfig())

	other := order(1, orders.Buy, orders.Market, 100, 0)
	other.Symbol = "QQQ"
	done := order(2, orders.Buy, orders.Market, 100, 0)
	done.Cancel()

	out := e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{other, done})
	assert.Empty(t, out)
}

func TestCommissionModels(t *testing.T) {
	assert.Equal(t, 1.0, FlatCommission{Fee: 1}.Commission(500, 50))
	assert.Equal(t, 2.5, PerShareCommission{Fee: 0.005}.Commission(500, 50))
	assert.InDelta(t, 25.0, PercentCommission{Rate: 0.001}.Commission(500, 50), 1e-9)
}

func TestMatchCommissionOnFill(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Commission = PerShareCommission{Fee: 0.01}
	e := New(cfg)

	o := order(1, orders.Buy, orders.Market, 100, 0)
	out := e.Match(bar(50, 52, 49, 51, 10_000), []*orders.Order{o})
	require.Len(t, out, 1)
	assert.InDelta(t, 1.0, out[0].Fill.Commission, 1e-9)
}
