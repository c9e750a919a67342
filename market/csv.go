package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads OHLCV bars from a CSV file with rows of the form
//
//	time,symbol,open,high,low,close,volume
//
// where time is RFC3339 or RFC3339Nano. A single header row is allowed.
// Empty or short rows are skipped. Rows may interleave symbols; each
// symbol's bars must be in ascending time order.
func LoadCSV(path string) (map[string]*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	bySymbol := make(map[string][]Bar)
	sawFirst := false

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row.
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	out := make(map[string]*Series, len(bySymbol))
	for sym, bars := range bySymbol {
		s, err := NewSeries(sym, bars)
		if err != nil {
			return nil, err
		}
		out[sym] = s
	}
	return out, nil
}

func parseBarRow(row []string) (Bar, bool, error) {
	// Need at least: time,symbol,open,high,low,close,volume
	if len(row) < 7 {
		return Bar{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return Bar{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return Bar{}, false, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}

	sym := strings.TrimSpace(row[1])
	if sym == "" {
		return Bar{}, false, nil
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+2]), 64)
		if err != nil {
			return Bar{}, false, fmt.Errorf("bad value %q in column %d: %w", row[i+2], i+2, err)
		}
		vals[i] = v
	}

	return Bar{
		Symbol: sym,
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true, nil
}

// WriteCSV writes the series map back out in LoadCSV's format, rows ordered
// by time then symbol. Useful for generating fixtures and sweep inputs.
func WriteCSV(w io.Writer, series map[string]*Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "symbol", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}

	var all []Bar
	for _, s := range series {
		all = append(all, s.bars...)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Time.Equal(all[j].Time) {
			return all[i].Time.Before(all[j].Time)
		}
		return all[i].Symbol < all[j].Symbol
	})

	for _, b := range all {
		err := cw.Write([]string{
			b.Time.Format(time.RFC3339),
			b.Symbol,
			ff(b.Open), ff(b.High), ff(b.Low), ff(b.Close), ff(b.Volume),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ff(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
