package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournal(t *testing.T) {
	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordFill(FillRecord{
		RunID: "run-1", OrderID: 1, Symbol: "SPY", Side: "BUY",
		Quantity: 100, Price: 50, Commission: 1, Time: t0,
	}))
	require.NoError(t, j.RecordEquity(EquityRecord{
		RunID: "run-1", Time: t0, Cash: 4999, Equity: 9999,
	}))

	// Orders and runs are not persisted in CSV mode.
	require.NoError(t, j.RecordOrder(OrderRecord{RunID: "run-1", OrderID: 1}))
	require.NoError(t, j.RecordRun(RunRecord{RunID: "run-1"}))

	require.NoError(t, j.Close())

	fills, err := os.ReadFile(fillsPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(fills)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "run_id,order_id,symbol,side,quantity,price,commission,time", lines[0])
	assert.Contains(t, lines[1], "run-1,1,SPY,BUY,100,50.000000,1.000000")

	equity, err := os.ReadFile(equityPath)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(equity)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "4999.000000,9999.000000")
}
