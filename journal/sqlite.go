package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordOrder(r OrderRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO orders
		(run_id, order_id, symbol, side, kind, quantity, limit_price, status, created_at, expires_at, filled_qty)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.OrderID, r.Symbol, r.Side, r.Kind, r.Quantity,
		r.LimitPrice, r.Status, r.CreatedAt, r.ExpiresAt, r.FilledQty,
	)
	return err
}

func (j *SQLiteJournal) RecordFill(r FillRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(run_id, order_id, symbol, side, quantity, price, commission, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.OrderID, r.Symbol, r.Side, r.Quantity, r.Price, r.Commission, r.Time,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(r EquityRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (run_id, time, cash, equity)
		VALUES (?, ?, ?, ?)`,
		r.RunID, r.Time, r.Cash, r.Equity,
	)
	return err
}

func (j *SQLiteJournal) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, strategy, symbols, initial_cash, final_cash, final_equity, steps, fills)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Symbols,
		r.InitialCash, r.FinalCash, r.FinalEquity, r.Steps, r.Fills,
	)
	return err
}

// ListFillsByRun returns a run's fills ordered by time then order ID.
func (j *SQLiteJournal) ListFillsByRun(runID string) ([]FillRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, order_id, symbol, side, quantity, price, commission, time
		FROM fills WHERE run_id = ? ORDER BY time, order_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var r FillRecord
		if err := rows.Scan(&r.RunID, &r.OrderID, &r.Symbol, &r.Side,
			&r.Quantity, &r.Price, &r.Commission, &r.Time); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListEquityByRun returns a run's equity curve in time order.
func (j *SQLiteJournal) ListEquityByRun(runID string) ([]EquityRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, time, cash, equity
		FROM equity WHERE run_id = ? ORDER BY time`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquityRecord
	for rows.Next() {
		var r EquityRecord
		if err := rows.Scan(&r.RunID, &r.Time, &r.Cash, &r.Equity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads one run summary.
func (j *SQLiteJournal) GetRun(runID string) (RunRecord, error) {
	var r RunRecord
	err := j.db.QueryRow(`
		SELECT run_id, created, strategy, symbols, initial_cash, final_cash, final_equity, steps, fills
		FROM runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.Created, &r.Strategy, &r.Symbols,
			&r.InitialCash, &r.FinalCash, &r.FinalEquity, &r.Steps, &r.Fills)
	return r, err
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
