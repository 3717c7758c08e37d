package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdswan/wheelhouse/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL UNIQUE,
	started_at TIMESTAMP NOT NULL,
	config_path TEXT NOT NULL,
	dry_run BOOLEAN NOT NULL DEFAULT 0,
	version TEXT NOT NULL,
	hostname TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	event_type TEXT NOT NULL,
	symbol TEXT,
	payload TEXT
);
CREATE TABLE IF NOT EXISTS account_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	summary_json TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS order_intents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	dry_run BOOLEAN NOT NULL DEFAULT 0,
	symbol TEXT NOT NULL,
	sec_type TEXT,
	action TEXT,
	quantity REAL,
	limit_price REAL,
	order_ref TEXT,
	tif TEXT,
	payload_json TEXT
);
CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	symbol TEXT NOT NULL,
	sec_type TEXT,
	action TEXT,
	quantity REAL,
	limit_price REAL,
	order_ref TEXT,
	broker_id TEXT,
	status TEXT,
	error TEXT
);
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	order_ref TEXT,
	symbol TEXT,
	side TEXT,
	shares REAL,
	price REAL,
	execution_time TIMESTAMP
);
CREATE TABLE IF NOT EXISTS historical_bars (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	bar_time TIMESTAMP NOT NULL,
	timeframe TEXT NOT NULL,
	open REAL,
	high REAL,
	low REAL,
	close REAL,
	volume INTEGER,
	UNIQUE(symbol, bar_time, timeframe)
);
CREATE INDEX IF NOT EXISTS idx_executions_ref_time ON executions(order_ref, execution_time);
CREATE INDEX IF NOT EXISTS idx_bars_symbol_time ON historical_bars(symbol, bar_time);
`

// SQLiteStore is the file-backed journal.
type SQLiteStore struct {
	db *sql.DB
}

var _ Interface = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the journal at path. ":memory:"
// opens an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite tolerates exactly one writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) BeginRun(ctx context.Context, meta RunMeta) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, config_path, dry_run, version, hostname) VALUES (?, ?, ?, ?, ?, ?)`,
		meta.RunID, meta.StartedAt.UTC(), meta.ConfigPath, meta.DryRun, meta.Version, meta.Hostname)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordEvent(ctx context.Context, runID, eventType, symbol string, payload any) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("marshaling event payload: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, created_at, event_type, symbol, payload) VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now().UTC(), eventType, symbol, string(body))
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordAccountSnapshot(ctx context.Context, runID string, snapshot *models.AccountSnapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO account_snapshots (run_id, created_at, summary_json) VALUES (?, ?, ?)`,
		runID, time.Now().UTC(), string(body))
	if err != nil {
		return fmt.Errorf("recording account snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordOrderIntents(ctx context.Context, runID string, dryRun bool, instructions []models.OrderInstruction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning intents transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, inst := range instructions {
		body, err := json.Marshal(inst)
		if err != nil {
			return fmt.Errorf("marshaling order intent: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_intents (run_id, created_at, dry_run, symbol, sec_type, action, quantity, limit_price, order_ref, tif, payload_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, now, dryRun, inst.Symbol, string(inst.SecType), string(inst.Side),
			inst.Quantity, inst.LimitPrice, inst.OrderRef, inst.TIF, string(body)); err != nil {
			return fmt.Errorf("recording order intent: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordOrderResult(ctx context.Context, runID string, result models.OrderResult) error {
	inst := result.Instruction
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (run_id, created_at, symbol, sec_type, action, quantity, limit_price, order_ref, broker_id, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, time.Now().UTC(), inst.Symbol, string(inst.SecType), string(inst.Side),
		inst.Quantity, inst.LimitPrice, inst.OrderRef, result.BrokerID, string(result.Status), result.Error)
	if err != nil {
		return fmt.Errorf("recording order result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordExecutions(ctx context.Context, runID string, executions []models.Execution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning executions transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, ex := range executions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO executions (run_id, created_at, order_ref, symbol, side, shares, price, execution_time)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, now, ex.OrderRef, ex.Symbol, string(ex.Side), ex.Shares, ex.Price, ex.Time.UTC()); err != nil {
			return fmt.Errorf("recording execution: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecordHistoricalBars(ctx context.Context, symbol, timeframe string, bars []models.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning bars transaction: %w", err)
	}
	defer tx.Rollback()

	for _, b := range bars {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO historical_bars (symbol, bar_time, timeframe, open, high, low, close, volume)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(symbol, bar_time, timeframe) DO UPDATE SET
			   open=excluded.open, high=excluded.high, low=excluded.low,
			   close=excluded.close, volume=excluded.volume`,
			symbol, b.Date.UTC(), timeframe, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("recording bar: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) HistoricalBars(ctx context.Context, symbol string, since time.Time) ([]models.Bar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bar_time, open, high, low, close, volume FROM historical_bars
		 WHERE symbol = ? AND bar_time >= ? ORDER BY bar_time ASC`,
		symbol, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying bars: %w", err)
	}
	defer rows.Close()

	var bars []models.Bar
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scanning bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) LastTaggedExecution(ctx context.Context, prefix string, symbols []string, since time.Time) (time.Time, bool, error) {
	if len(symbols) == 0 {
		return time.Time{}, false, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(symbols)), ",")
	args := []any{since.UTC(), prefix + "%"}
	for _, sym := range symbols {
		args = append(args, sym)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT execution_time FROM executions
		 WHERE execution_time >= ? AND order_ref LIKE ? AND symbol IN (`+placeholders+`)
		 ORDER BY execution_time DESC LIMIT 1`, args...)

	var ts time.Time
	if err := row.Scan(&ts); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("querying last tagged execution: %w", err)
	}
	return ts, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
