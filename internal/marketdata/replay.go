package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"
	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// ReplaySource reveals the bars of an underlying source only once they have
// closed according to now, so a simulated clock can walk through history
// without lookahead.
type ReplaySource struct {
	inner    engine.MarketDataSource
	now      func() time.Time
	interval types.Interval
	maxBars  int
}

// NewReplaySource limits each history to the last maxBars closed bars; zero
// keeps them all.
func NewReplaySource(inner engine.MarketDataSource, interval types.Interval, now func() time.Time, maxBars int) *ReplaySource {
	return &ReplaySource{inner: inner, now: now, interval: interval, maxBars: maxBars}
}

func (s *ReplaySource) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	candles, err := s.Historical(ctx, symbol, s.interval)
	if err != nil {
		return decimal.Zero, err
	}
	return candles[len(candles)-1].Close, nil
}

func (s *ReplaySource) Historical(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error) {
	all, err := s.inner.Historical(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}
	now := s.now()
	n := sort.Search(len(all), func(i int) bool {
		return all[i].CloseTime().After(now)
	})
	if n == 0 {
		return nil, fmt.Errorf("%s: no bars closed by %s: %w", symbol, now.Format(time.RFC3339), types.ErrNoData)
	}
	start := 0
	if s.maxBars > 0 && n > s.maxBars {
		start = n - s.maxBars
	}
	return all[start:n:n], nil
}

func (s *ReplaySource) MarketContext(ctx context.Context) (types.MarketContext, error) {
	return s.inner.MarketContext(ctx)
}

func (s *ReplaySource) ValidateCandles(candles []types.Candle) error {
	return s.inner.ValidateCandles(candles)
}

// Span returns the earliest bar open and the latest bar close across the
// given symbols. Symbols without data are skipped.
func Span(ctx context.Context, src engine.MarketDataSource, symbols []string, interval types.Interval) (time.Time, time.Time, error) {
	var start, end time.Time
	for _, symbol := range symbols {
		candles, err := src.Historical(ctx, symbol, interval)
		if err != nil || len(candles) == 0 {
			continue
		}
		first := candles[0].Timestamp
		last := candles[len(candles)-1].CloseTime()
		if start.IsZero() || first.Before(start) {
			start = first
		}
		if last.After(end) {
			end = last
		}
	}
	if start.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("no history for %d symbols: %w", len(symbols), types.ErrNoData)
	}
	return start, end, nil
}
