package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	data := `time,symbol,open,high,low,close,volume
2024-01-02T00:00:00Z,SPY,100,101,99,100.5,10000
2024-01-02T00:00:00Z,QQQ,400,404,398,402,20000
2024-01-03T00:00:00Z,SPY,100.5,102,100,101,11000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	series, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, series, 2)

	spy := series["SPY"]
	require.NotNil(t, spy)
	assert.Equal(t, 2, spy.Len())
	assert.Equal(t, 100.0, spy.Bars()[0].Open)
	assert.Equal(t, 11000.0, spy.Bars()[1].Volume)

	qqq := series["QQQ"]
	require.NotNil(t, qqq)
	assert.Equal(t, 1, qqq.Len())
}

func TestLoadCSVNoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	data := "2024-01-02T00:00:00Z,SPY,100,101,99,100.5,10000\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	series, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 1, series["SPY"].Len())
}

func TestLoadCSVSkipsShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	data := `time,symbol,open,high,low,close,volume
2024-01-02T00:00:00Z,SPY,100,101,99,100.5,10000
,,,
2024-01-03T00:00:00Z,SPY,100.5,102,100,101,11000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	series, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, series["SPY"].Len())
}

func TestLoadCSVRejectsBadData(t *testing.T) {
	dir := t.TempDir()

	t.Run("unparseable price", func(t *testing.T) {
		path := filepath.Join(dir, "bad_price.csv")
		require.NoError(t, os.WriteFile(path,
			[]byte("2024-01-02T00:00:00Z,SPY,abc,101,99,100.5,10000\n"), 0644))
		_, err := LoadCSV(path)
		assert.Error(t, err)
	})

	t.Run("out of order bars", func(t *testing.T) {
		path := filepath.Join(dir, "unsorted.csv")
		data := "2024-01-03T00:00:00Z,SPY,100,101,99,100.5,10000\n" +
			"2024-01-02T00:00:00Z,SPY,100,101,99,100.5,10000\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))
		_, err := LoadCSV(path)
		var gap *GapError
		require.ErrorAs(t, err, &gap)
	})
}

func TestWriteCSVRoundTrip(t *testing.T) {
	spy, err := NewSeries("SPY", mkBars("SPY", 3, base))
	require.NoError(t, err)
	in := map[string]*Series{"SPY": spy}

	path := filepath.Join(t.TempDir(), "out.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, in))
	require.NoError(t, f.Close())

	out, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, spy.Bars(), out["SPY"].Bars())
}
