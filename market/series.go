package market

import (
	"fmt"
	"sort"
	"time"
)

// GapError reports missing or non-monotonic bar data for one symbol.
// The driver treats it as non-fatal: the affected symbol is skipped for the
// timestamp in question while other symbols continue.
type GapError struct {
	Symbol string
	Time   time.Time
	Reason string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("market: %s at %s: %s", e.Symbol, e.Time.Format(time.RFC3339), e.Reason)
}

// Series is the time-indexed bar table for a single symbol, sorted ascending
// by timestamp with no duplicates. Gaps between bars are permitted.
type Series struct {
	Symbol string

	bars  []Bar
	index map[int64]int // unix nanos -> position in bars
}

// NewSeries validates and indexes a sorted slice of bars. A GapError is
// returned on out-of-order or duplicate timestamps, or on a bar whose symbol
// does not match.
func NewSeries(symbol string, bars []Bar) (*Series, error) {
	s := &Series{
		Symbol: symbol,
		bars:   bars,
		index:  make(map[int64]int, len(bars)),
	}

	var prev time.Time
	for i, b := range bars {
		if b.Symbol != symbol {
			return nil, &GapError{Symbol: symbol, Time: b.Time,
				Reason: fmt.Sprintf("bar symbol %q does not match series", b.Symbol)}
		}
		if i > 0 && !b.Time.After(prev) {
			return nil, &GapError{Symbol: symbol, Time: b.Time,
				Reason: "non-monotonic timestamp"}
		}
		prev = b.Time
		s.index[b.Time.UnixNano()] = i
	}
	return s, nil
}

func (s *Series) Len() int { return len(s.bars) }

// Bars returns the underlying bars. Callers must not mutate the slice.
func (s *Series) Bars() []Bar { return s.bars }

// At returns the bar at exactly t, if one exists.
func (s *Series) At(t time.Time) (Bar, bool) {
	i, ok := s.index[t.UnixNano()]
	if !ok {
		return Bar{}, false
	}
	return s.bars[i], true
}

// Window returns the trailing window of up to n bars whose timestamps are at
// or before t. It is the view a strategy sees when invoked at t.
func (s *Series) Window(t time.Time, n int) []Bar {
	// First bar strictly after t.
	hi := sort.Search(len(s.bars), func(i int) bool {
		return s.bars[i].Time.After(t)
	})
	lo := hi - n
	if n <= 0 || lo < 0 {
		lo = 0
	}
	return s.bars[lo:hi]
}

// Timeline returns the sorted union of all timestamps across the given
// series. Symbols sharing a timestamp contribute a single entry, so the
// replay loop visits each distinct instant exactly once.
func Timeline(series map[string]*Series) []time.Time {
	seen := make(map[int64]struct{})
	var out []time.Time
	for _, s := range series {
		for _, b := range s.bars {
			ns := b.Time.UnixNano()
			if _, ok := seen[ns]; ok {
				continue
			}
			seen[ns] = struct{}{}
			out = append(out, b.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Symbols returns the sorted symbol set of a series map. Lexicographic
// ordering keeps per-timestamp processing deterministic across runs.
func Symbols(series map[string]*Series) []string {
	out := make([]string, 0, len(series))
	for sym := range series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
