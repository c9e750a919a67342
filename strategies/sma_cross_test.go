package strategies

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMACrossParamsValidate(t *testing.T) {
	assert.NoError(t, SMACrossParams{Symbol: "SPY", FastWindow: 10, SlowWindow: 30}.Validate())
	assert.Error(t, SMACrossParams{FastWindow: 10, SlowWindow: 30}.Validate())
	assert.Error(t, SMACrossParams{Symbol: "SPY", FastWindow: 0, SlowWindow: 30}.Validate())
	assert.Error(t, SMACrossParams{Symbol: "SPY", FastWindow: 30, SlowWindow: 30}.Validate())
}

func TestSMACrossSignals(t *testing.T) {
	s, err := NewSMACross(SMACrossParams{Symbol: "SPY", FastWindow: 2, SlowWindow: 4})
	require.NoError(t, err)

	// Falling then sharply rising then falling again: one bullish cross
	// followed by one bearish cross once both SMAs are warm.
	closes := []float64{110, 108, 106, 104, 102, 100, 110, 120, 130, 100, 70, 60}

	var kinds []Kind
	for i := range closes {
		sigs := s.GenerateSignals(windowAt("SPY", closes, i))
		if sig, ok := sigs["SPY"]; ok {
			kinds = append(kinds, sig.Kind)
		}
	}

	var buys, sells int
	for _, k := range kinds {
		switch k {
		case Buy:
			buys++
		case Sell:
			sells++
		}
	}
	assert.Equal(t, 1, buys, "expected exactly one bullish cross: %v", kinds)
	assert.Equal(t, 1, sells, "expected exactly one bearish cross: %v", kinds)
}

func TestSMACrossIgnoresRepeatedWindow(t *testing.T) {
	s, err := NewSMACross(SMACrossParams{Symbol: "SPY", FastWindow: 2, SlowWindow: 3})
	require.NoError(t, err)

	closes := []float64{100, 101, 102}
	w := windowAt("SPY", closes, 2)

	s.GenerateSignals(windowAt("SPY", closes, 0))
	s.GenerateSignals(windowAt("SPY", closes, 1))
	s.GenerateSignals(w)

	// Same timestamp again: the bar must not be fed twice.
	assert.Empty(t, s.GenerateSignals(w))
}

func TestRSIReversionValidate(t *testing.T) {
	_, err := NewRSIReversion(RSIReversionParams{Symbol: "SPY", Window: 14, Oversold: 30, Overbought: 70})
	assert.NoError(t, err)

	_, err = NewRSIReversion(RSIReversionParams{Symbol: "SPY", Window: 0, Oversold: 60, Overbought: 40})
	assert.Error(t, err)
}

func TestRSIReversionSignals(t *testing.T) {
	s, err := NewRSIReversion(RSIReversionParams{Symbol: "SPY", Window: 3, Oversold: 30, Overbought: 70})
	require.NoError(t, err)

	// Monotonic rise pins RSI at 100: sell once warm.
	closes := []float64{100, 101, 102, 103, 104}
	var sawSell bool
	for i := range closes {
		if sig, ok := s.GenerateSignals(windowAt("SPY", closes, i))["SPY"]; ok && sig.Kind == Sell {
			sawSell = true
		}
	}
	assert.True(t, sawSell)
}

func TestBollingerSignals(t *testing.T) {
	s, err := NewBollinger(BollingerParams{Symbol: "SPY", Window: 4, NumStd: 1})
	require.NoError(t, err)

	// Tight range then a collapse well below the lower band.
	closes := []float64{100, 100.2, 99.8, 100.1, 80}
	var sawBuy bool
	for i := range closes {
		if sig, ok := s.GenerateSignals(windowAt("SPY", closes, i))["SPY"]; ok && sig.Kind == Buy {
			sawBuy = true
		}
	}
	assert.True(t, sawBuy)
}
