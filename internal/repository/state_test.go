package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
	"tradeengine/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type mockStateRepository struct {
	snap   *snapshotRow
	trades map[string]tradeRow
	getErr error
}

func (m *mockStateRepository) GetSnapshot(_ context.Context) (snapshotRow, error) {
	if m.getErr != nil {
		return snapshotRow{}, m.getErr
	}
	if m.snap == nil {
		return snapshotRow{}, pgx.ErrNoRows
	}
	return *m.snap, nil
}

func (m *mockStateRepository) SaveSnapshot(_ context.Context, snap snapshotRow, trades []tradeRow) error {
	m.snap = &snap
	if m.trades == nil {
		m.trades = make(map[string]tradeRow)
	}
	for _, t := range trades {
		if _, ok := m.trades[t.ID]; !ok {
			m.trades[t.ID] = t
		}
	}
	return nil
}

var stateTime = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func samplePortfolio() types.Portfolio {
	p := types.NewPortfolio(decimal.NewFromInt(100000))
	p.Cash = decimal.RequireFromString("49900")
	p.DailyPnL = decimal.RequireFromString("-12.5")
	p.SessionDay = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	p.Counters.BuySignals = 2
	p.Positions["AAA"] = types.Position{
		Symbol:           "AAA",
		Quantity:         500,
		EntryPrice:       decimal.NewFromInt(100),
		EntryTime:        stateTime,
		StopLoss:         decimal.NewFromInt(98),
		OriginalStopLoss: decimal.NewFromInt(98),
		TakeProfit:       decimal.NewFromInt(103),
		HighestPrice:     decimal.RequireFromString("101.25"),
		TrailingEnabled:  true,
		TrailingPct:      decimal.RequireFromString("0.02"),
	}
	p.Trades = append(p.Trades, types.TradeRecord{
		ID:          "t-1",
		Symbol:      "BBB",
		EntryTime:   stateTime.Add(-time.Hour),
		ExitTime:    stateTime,
		EntryPrice:  decimal.NewFromInt(50),
		ExitPrice:   decimal.NewFromInt(51),
		Quantity:    10,
		RealizedPnL: decimal.RequireFromString("7.98"),
		ReturnPct:   decimal.RequireFromString("0.0159"),
		ExitReason:  types.ExitSignal,
	})
	return p
}

func assertPortfolioEqual(t *testing.T, got *types.Portfolio, want types.Portfolio) {
	t.Helper()
	if got == nil {
		t.Fatalf("state = nil, want portfolio")
	}
	if !got.Cash.Equal(want.Cash) || !got.DailyPnL.Equal(want.DailyPnL) || !got.InitialCapital.Equal(want.InitialCapital) {
		t.Errorf("money fields = %s/%s/%s, want %s/%s/%s",
			got.Cash, got.DailyPnL, got.InitialCapital, want.Cash, want.DailyPnL, want.InitialCapital)
	}
	if !got.SessionDay.Equal(want.SessionDay) {
		t.Errorf("SessionDay = %v, want %v", got.SessionDay, want.SessionDay)
	}
	if got.Counters != want.Counters {
		t.Errorf("Counters = %+v, want %+v", got.Counters, want.Counters)
	}
	if len(got.Positions) != len(want.Positions) {
		t.Fatalf("positions = %d, want %d", len(got.Positions), len(want.Positions))
	}
	for sym, wp := range want.Positions {
		gp, ok := got.Positions[sym]
		if !ok {
			t.Fatalf("missing position %s", sym)
		}
		if gp.Quantity != wp.Quantity || !gp.StopLoss.Equal(wp.StopLoss) || !gp.HighestPrice.Equal(wp.HighestPrice) ||
			!gp.TrailingPct.Equal(wp.TrailingPct) || gp.TrailingEnabled != wp.TrailingEnabled || !gp.EntryTime.Equal(wp.EntryTime) {
			t.Errorf("position %s = %+v, want %+v", sym, gp, wp)
		}
	}
	if len(got.Trades) != len(want.Trades) {
		t.Fatalf("trades = %d, want %d", len(got.Trades), len(want.Trades))
	}
	for i := range want.Trades {
		if got.Trades[i].ID != want.Trades[i].ID || !got.Trades[i].RealizedPnL.Equal(want.Trades[i].RealizedPnL) ||
			got.Trades[i].ExitReason != want.Trades[i].ExitReason {
			t.Errorf("trade %d = %+v, want %+v", i, got.Trades[i], want.Trades[i])
		}
	}
}

func TestDatabase_SaveLoadState(t *testing.T) {
	repo := &mockStateRepository{}
	db := &Database{state: repo}
	ctx := context.Background()

	got, err := db.LoadState(ctx)
	if err != nil || got != nil {
		t.Fatalf("LoadState() on empty store = %v, %v; want nil, nil", got, err)
	}

	want := samplePortfolio()
	if err := db.SaveState(ctx, want); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	if err := db.SaveState(ctx, want); err != nil {
		t.Fatalf("second SaveState() error = %v", err)
	}
	if len(repo.trades) != 1 {
		t.Errorf("trade rows = %d, want 1", len(repo.trades))
	}

	got, err = db.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	assertPortfolioEqual(t, got, want)
}

func TestDatabase_LoadState_Errors(t *testing.T) {
	tests := []struct {
		name    string
		repo    *mockStateRepository
		wantErr error
	}{
		{
			name:    "checksum mismatch",
			repo:    &mockStateRepository{snap: &snapshotRow{Payload: []byte(`{"cash":"1"}`), Checksum: "deadbeef"}},
			wantErr: ErrStateCorrupt,
		},
		{
			name:    "driver error",
			repo:    &mockStateRepository{getErr: errors.New("conn reset")},
			wantErr: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{state: tt.repo}
			got, err := db.LoadState(context.Background())
			if err == nil {
				t.Fatalf("LoadState() = %v, want error", got)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadState() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSQLiteStore_SaveLoadState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	got, err := store.LoadState(ctx)
	if err != nil || got != nil {
		t.Fatalf("LoadState() on new store = %v, %v; want nil, nil", got, err)
	}

	want := samplePortfolio()
	if err := store.SaveState(ctx, want); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	want.Cash = decimal.RequireFromString("50000")
	if err := store.SaveState(ctx, want); err != nil {
		t.Fatalf("second SaveState() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err = reopened.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	assertPortfolioEqual(t, got, want)

	n, err := reopened.TradeCount(ctx)
	if err != nil {
		t.Fatalf("TradeCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("TradeCount() = %d, want 1", n)
	}
}

func TestSQLiteStore_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if err := store.SaveState(ctx, samplePortfolio()); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `UPDATE portfolio_state SET payload = ? WHERE id = 1`, []byte(`{"cash":"999999"}`)); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if _, err := store.LoadState(ctx); !errors.Is(err, ErrStateCorrupt) {
		t.Errorf("LoadState() error = %v, want %v", err, ErrStateCorrupt)
	}
}
