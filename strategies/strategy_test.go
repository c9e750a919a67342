package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/market"
)

var base = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// windowAt builds the trailing window a driver would hand a strategy at
// bar index i of the given closes.
func windowAt(symbol string, closes []float64, i int) Window {
	bars := make([]market.Bar, 0, i+1)
	for j := 0; j <= i; j++ {
		px := closes[j]
		bars = append(bars, market.Bar{
			Symbol: symbol,
			Time:   base.Add(time.Duration(j) * 24 * time.Hour),
			Open:   px, High: px + 1, Low: px - 1, Close: px,
			Volume: 10_000,
		})
	}
	return Window{
		Time: bars[len(bars)-1].Time,
		Bars: map[string][]market.Bar{symbol: bars},
	}
}

func TestWindowLatest(t *testing.T) {
	w := windowAt("SPY", []float64{100, 101}, 1)

	b, ok := w.Latest("SPY")
	require.True(t, ok)
	assert.Equal(t, 101.0, b.Close)

	// Stale newest bar (symbol gapped at this timestamp) is not current.
	w.Time = w.Time.Add(24 * time.Hour)
	_, ok = w.Latest("SPY")
	assert.False(t, ok)

	_, ok = w.Latest("QQQ")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := Builtin()
	assert.Equal(t, []string{"bollinger", "buy-and-hold", "noop", "rsi-reversion", "sma-cross"}, reg.Names())

	s, err := reg.New("sma-cross", "SPY", map[string]float64{"fast": 2, "slow": 4})
	require.NoError(t, err)
	assert.Equal(t, "sma-cross", s.Name())
	assert.Equal(t, []string{"SPY"}, s.Symbols())

	_, err = reg.New("nope", "SPY", nil)
	assert.Error(t, err)

	assert.Error(t, reg.Register("noop", func(string, map[string]float64) (Strategy, error) {
		return NoopStrategy{}, nil
	}))
}

func TestNoopNeverSignals(t *testing.T) {
	s := NoopStrategy{}
	sigs := s.GenerateSignals(windowAt("SPY", []float64{100, 101, 102}, 2))
	assert.Empty(t, sigs)
}

func TestBuyAndHoldBuysOnce(t *testing.T) {
	s := NewBuyAndHold("SPY")
	closes := []float64{100, 101, 102}

	sigs := s.GenerateSignals(windowAt("SPY", closes, 0))
	require.Len(t, sigs, 1)
	assert.Equal(t, Buy, sigs["SPY"].Kind)

	for i := 1; i < len(closes); i++ {
		assert.Empty(t, s.GenerateSignals(windowAt("SPY", closes, i)))
	}
}

func TestBuyAndHoldWaitsForData(t *testing.T) {
	s := NewBuyAndHold("SPY")

	// No bar for its symbol yet: no signal, and the buy is not consumed.
	w := Window{Time: base, Bars: map[string][]market.Bar{}}
	assert.Empty(t, s.GenerateSignals(w))

	sigs := s.GenerateSignals(windowAt("SPY", []float64{100}, 0))
	assert.Len(t, sigs, 1)
}
