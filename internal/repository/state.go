package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"tradeengine/types"

	"github.com/jackc/pgx/v5"
)

// encodeState serializes a portfolio and returns it with its hex sha256.
func encodeState(state types.Portfolio) ([]byte, string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, "", fmt.Errorf("encode state: %w", err)
	}
	sum := sha256.Sum256(payload)
	return payload, hex.EncodeToString(sum[:]), nil
}

func decodeState(payload []byte, checksum string) (*types.Portfolio, error) {
	sum := sha256.Sum256(payload)
	if hex.EncodeToString(sum[:]) != checksum {
		return nil, ErrStateCorrupt
	}
	var state types.Portfolio
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if state.Positions == nil {
		state.Positions = make(map[string]types.Position)
	}
	return &state, nil
}

func toTradeRows(trades []types.TradeRecord) []tradeRow {
	rows := make([]tradeRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, tradeRow{
			ID:          t.ID,
			Symbol:      t.Symbol,
			EntryTime:   t.EntryTime,
			ExitTime:    t.ExitTime,
			EntryPrice:  t.EntryPrice,
			ExitPrice:   t.ExitPrice,
			Quantity:    t.Quantity,
			RealizedPnL: t.RealizedPnL,
			ReturnPct:   t.ReturnPct,
			ExitReason:  string(t.ExitReason),
		})
	}
	return rows
}

// SaveState replaces the stored snapshot. Closed trades are also appended to
// trade_records, where ids already present are skipped.
func (db *Database) SaveState(ctx context.Context, state types.Portfolio) error {
	payload, checksum, err := encodeState(state)
	if err != nil {
		return err
	}
	snap := snapshotRow{Payload: payload, Checksum: checksum, SavedAt: time.Now().UTC()}
	if err := db.state.SaveSnapshot(ctx, snap, toTradeRows(state.Trades)); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState returns nil without error when no snapshot has been saved.
func (db *Database) LoadState(ctx context.Context) (*types.Portfolio, error) {
	snap, err := db.state.GetSnapshot(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	return decodeState(snap.Payload, snap.Checksum)
}
