package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS portfolio_state (
		id         SMALLINT PRIMARY KEY DEFAULT 1,
		payload    JSONB NOT NULL,
		checksum   TEXT NOT NULL,
		saved_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trade_records (
		id           TEXT PRIMARY KEY,
		symbol       TEXT NOT NULL,
		entry_time   TIMESTAMPTZ NOT NULL,
		exit_time    TIMESTAMPTZ NOT NULL,
		entry_price  NUMERIC NOT NULL,
		exit_price   NUMERIC NOT NULL,
		quantity     BIGINT NOT NULL,
		realized_pnl NUMERIC NOT NULL,
		return_pct   NUMERIC NOT NULL,
		exit_reason  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS trade_records_exit_time_idx ON trade_records (exit_time)`,
}

const getAssetByTicker = `
SELECT id, ticker, name, exchange, type, created_at, modified_at
FROM assets
WHERE ticker = $1
LIMIT 1`

const getAggregates = `
SELECT time_bucket($1::interval, timestamp) AS bucket,
       asset_id,
       first(open, timestamp) AS open,
       max(high) AS high,
       min(low) AS low,
       last(close, timestamp) AS close,
       sum(volume) AS volume
FROM candles
WHERE asset_id = $2 AND timestamp >= $3 AND timestamp < $4
GROUP BY bucket, asset_id
ORDER BY bucket`

const getSnapshot = `SELECT payload, checksum, saved_at FROM portfolio_state WHERE id = 1`

const upsertSnapshot = `
INSERT INTO portfolio_state (id, payload, checksum, saved_at)
VALUES (1, $1, $2, $3)
ON CONFLICT (id) DO UPDATE
SET payload = EXCLUDED.payload, checksum = EXCLUDED.checksum, saved_at = EXCLUDED.saved_at`

const insertTrade = `
INSERT INTO trade_records (id, symbol, entry_time, exit_time, entry_price, exit_price,
                           quantity, realized_pnl, return_pct, exit_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`

type assetRow struct {
	ID         int32
	Ticker     string
	Name       string
	Exchange   string
	Type       string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

type aggregatesParams struct {
	TimeBucket string
	AssetID    int32
	Starttime  *time.Time
	Endtime    *time.Time
}

type aggregateRow struct {
	Bucket  *time.Time
	AssetID int32
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
}

type snapshotRow struct {
	Payload  []byte
	Checksum string
	SavedAt  time.Time
}

type tradeRow struct {
	ID          string
	Symbol      string
	EntryTime   time.Time
	ExitTime    time.Time
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Quantity    int64
	RealizedPnL decimal.Decimal
	ReturnPct   decimal.Decimal
	ExitReason  string
}

// queries runs the statements above against a pool.
type queries struct {
	pool *pgxpool.Pool
}

func (q *queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	var a assetRow
	err := q.pool.QueryRow(ctx, getAssetByTicker, ticker).Scan(
		&a.ID, &a.Ticker, &a.Name, &a.Exchange, &a.Type, &a.CreatedAt, &a.ModifiedAt,
	)
	return a, err
}

func (q *queries) GetAggregates(ctx context.Context, arg aggregatesParams) ([]aggregateRow, error) {
	rows, err := q.pool.Query(ctx, getAggregates, arg.TimeBucket, arg.AssetID, arg.Starttime, arg.Endtime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (aggregateRow, error) {
		var r aggregateRow
		err := row.Scan(&r.Bucket, &r.AssetID, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume)
		return r, err
	})
}

func (q *queries) GetSnapshot(ctx context.Context) (snapshotRow, error) {
	var s snapshotRow
	err := q.pool.QueryRow(ctx, getSnapshot).Scan(&s.Payload, &s.Checksum, &s.SavedAt)
	return s, err
}

// SaveSnapshot replaces the snapshot and appends unseen trades in one
// transaction.
func (q *queries) SaveSnapshot(ctx context.Context, snap snapshotRow, trades []tradeRow) error {
	return pgx.BeginFunc(ctx, q.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertSnapshot, snap.Payload, snap.Checksum, snap.SavedAt); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, t := range trades {
			batch.Queue(insertTrade, t.ID, t.Symbol, t.EntryTime, t.ExitTime, t.EntryPrice, t.ExitPrice,
				t.Quantity, t.RealizedPnL, t.ReturnPct, t.ExitReason)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
