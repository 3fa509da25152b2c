package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"tradeengine/types"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS portfolio_state (
		id       INTEGER PRIMARY KEY CHECK (id = 1),
		payload  BLOB NOT NULL,
		checksum TEXT NOT NULL,
		saved_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trade_records (
		id           TEXT PRIMARY KEY,
		symbol       TEXT NOT NULL,
		entry_time   TEXT NOT NULL,
		exit_time    TEXT NOT NULL,
		entry_price  TEXT NOT NULL,
		exit_price   TEXT NOT NULL,
		quantity     INTEGER NOT NULL,
		realized_pnl TEXT NOT NULL,
		return_pct   TEXT NOT NULL,
		exit_reason  TEXT NOT NULL
	)`,
}

// SQLiteStore keeps the portfolio snapshot in a local SQLite file. Decimals
// are stored as text to keep them exact.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; the engine saves from a single goroutine anyway.
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveState(ctx context.Context, state types.Portfolio) error {
	payload, checksum, err := encodeState(state)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO portfolio_state (id, payload, checksum, saved_at) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, checksum = excluded.checksum, saved_at = excluded.saved_at`,
		payload, checksum, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	for _, t := range toTradeRows(state.Trades) {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trade_records (id, symbol, entry_time, exit_time, entry_price, exit_price,
			                           quantity, realized_pnl, return_pct, exit_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`,
			t.ID, t.Symbol,
			t.EntryTime.UTC().Format(time.RFC3339Nano), t.ExitTime.UTC().Format(time.RFC3339Nano),
			t.EntryPrice.String(), t.ExitPrice.String(), t.Quantity,
			t.RealizedPnL.String(), t.ReturnPct.String(), t.ExitReason)
		if err != nil {
			return fmt.Errorf("save trade %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadState(ctx context.Context) (*types.Portfolio, error) {
	var payload []byte
	var checksum string
	err := s.db.QueryRowContext(ctx, `SELECT payload, checksum FROM portfolio_state WHERE id = 1`).
		Scan(&payload, &checksum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	return decodeState(payload, checksum)
}

// TradeCount returns how many trades have been persisted.
func (s *SQLiteStore) TradeCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM trade_records`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
