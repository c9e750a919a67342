package indicators

import (
	"fmt"
	"math"
)

// Indicator is a streaming indicator fed one value per bar.
type Indicator interface {
	Name() string
	Warmup() int
	Update(v float64)
	Ready() bool
	Value() float64
	Reset()
}

// SimpleMA is a streaming Simple Moving Average.
type SimpleMA struct {
	period int
	window []float64
}

func NewSMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }
func (m *SimpleMA) Warmup() int  { return m.period }

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
}

func (m *SimpleMA) Update(v float64) {
	m.window = append(m.window, v)
	if len(m.window) > m.period {
		m.window = m.window[1:]
	}
}

func (m *SimpleMA) Ready() bool {
	return len(m.window) >= m.period
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	sum := 0.0
	for _, v := range m.window {
		sum += v
	}
	return sum / float64(len(m.window))
}

// ExponentialMA is a streaming Exponential Moving Average, seeded with an
// SMA over the warmup period.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *ExponentialMA) Warmup() int  { return e.period }

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(v float64) {
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// StdDev is a streaming population standard deviation over a rolling window.
type StdDev struct {
	period int
	window []float64
}

func NewStdDev(period int) *StdDev {
	return &StdDev{
		period: period,
		window: make([]float64, 0, period),
	}
}

func (s *StdDev) Name() string { return fmt.Sprintf("StdDev(%d)", s.period) }
func (s *StdDev) Warmup() int  { return s.period }

func (s *StdDev) Reset() {
	s.window = s.window[:0]
}

func (s *StdDev) Update(v float64) {
	s.window = append(s.window, v)
	if len(s.window) > s.period {
		s.window = s.window[1:]
	}
}

func (s *StdDev) Ready() bool {
	return len(s.window) >= s.period
}

func (s *StdDev) Value() float64 {
	if !s.Ready() {
		return 0
	}
	mean := 0.0
	for _, v := range s.window {
		mean += v
	}
	mean /= float64(len(s.window))

	variance := 0.0
	for _, v := range s.window {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(s.window)))
}

// RSI is a streaming Relative Strength Index using simple rolling averages
// of gains and losses.
type RSI struct {
	period int
	last   float64
	have   bool
	gains  []float64
	losses []float64
}

func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  make([]float64, 0, period),
		losses: make([]float64, 0, period),
	}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }
func (r *RSI) Warmup() int  { return r.period + 1 }

func (r *RSI) Reset() {
	r.last = 0
	r.have = false
	r.gains = r.gains[:0]
	r.losses = r.losses[:0]
}

func (r *RSI) Update(v float64) {
	if !r.have {
		r.last = v
		r.have = true
		return
	}
	delta := v - r.last
	r.last = v

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains = append(r.gains, gain)
	r.losses = append(r.losses, loss)
	if len(r.gains) > r.period {
		r.gains = r.gains[1:]
		r.losses = r.losses[1:]
	}
}

func (r *RSI) Ready() bool {
	return len(r.gains) >= r.period
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	avgGain, avgLoss := 0.0, 0.0
	for i := range r.gains {
		avgGain += r.gains[i]
		avgLoss += r.losses[i]
	}
	avgGain /= float64(r.period)
	avgLoss /= float64(r.period)

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
