package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"tradeengine/internal/repository"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// CandleStore is the slice of repository.Database the database source reads.
type CandleStore interface {
	GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error)
	GetCandles(ctx context.Context, assetId int, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error)
}

// DatabaseSource serves bars aggregated from the candles table over a
// trailing lookback window.
type DatabaseSource struct {
	store     CandleStore
	interval  types.Interval
	lookback  time.Duration
	now       func() time.Time
	quality   Validator
	vixTicker string

	mu     sync.Mutex
	assets map[string]int
}

func NewDatabaseSource(store CandleStore, interval types.Interval, lookback time.Duration, now func() time.Time, quality Validator) *DatabaseSource {
	if now == nil {
		now = time.Now
	}
	return &DatabaseSource{
		store:    store,
		interval: interval,
		lookback: lookback,
		now:      now,
		quality:  quality,
		assets:   make(map[string]int),
	}
}

// WithVIXTicker makes MarketContext read the volatility index from the
// latest daily bar of ticker.
func (s *DatabaseSource) WithVIXTicker(ticker string) *DatabaseSource {
	s.vixTicker = ticker
	return s
}

func (s *DatabaseSource) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	candles, err := s.Historical(ctx, symbol, s.interval)
	if err != nil {
		return decimal.Zero, err
	}
	return candles[len(candles)-1].Close, nil
}

func (s *DatabaseSource) Historical(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error) {
	assetID, err := s.assetID(ctx, symbol)
	if err != nil {
		return nil, err
	}
	end := s.now()
	candles, err := s.store.GetCandles(ctx, assetID, symbol, interval, end.Add(-s.lookback), end)
	if err != nil {
		if errors.Is(err, repository.ErrNoCandles) {
			return nil, fmt.Errorf("%s: %w", symbol, types.ErrNoData)
		}
		return nil, err
	}
	return candles, nil
}

func (s *DatabaseSource) MarketContext(ctx context.Context) (types.MarketContext, error) {
	mc := types.DefaultMarketContext()
	if s.vixTicker == "" {
		return mc, nil
	}
	bars, err := s.Historical(ctx, s.vixTicker, types.Day)
	if err != nil {
		return mc, err
	}
	mc.VIX = bars[len(bars)-1].Close
	return mc, nil
}

func (s *DatabaseSource) ValidateCandles(candles []types.Candle) error {
	return s.quality.Validate(candles)
}

func (s *DatabaseSource) assetID(ctx context.Context, symbol string) (int, error) {
	s.mu.Lock()
	id, ok := s.assets[symbol]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	asset, err := s.store.GetAssetByTicker(ctx, symbol)
	if err != nil {
		if errors.Is(err, repository.ErrAssetNotFound) {
			return 0, fmt.Errorf("%s: %w", symbol, types.ErrNoData)
		}
		return 0, err
	}
	s.mu.Lock()
	s.assets[symbol] = asset.Id
	s.mu.Unlock()
	return asset.Id, nil
}
