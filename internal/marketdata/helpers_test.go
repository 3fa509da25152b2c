package marketdata

import (
	"context"
	"sync"
	"time"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

var barStart = time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)

// makeBars builds consecutive 15 minute bars closing at the given prices.
func makeBars(symbol string, closes ...float64) []types.Candle {
	bars := make([]types.Candle, 0, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		bars = append(bars, types.Candle{
			Symbol:    symbol,
			Open:      price,
			High:      price.Add(decimal.NewFromInt(1)),
			Low:       price.Sub(decimal.NewFromInt(1)),
			Close:     price,
			Volume:    decimal.NewFromInt(1000),
			Interval:  types.FifteenMinutes,
			Timestamp: barStart.Add(time.Duration(i) * 15 * time.Minute),
		})
	}
	return bars
}

// stubSource is an in-memory engine.MarketDataSource with error injection.
type stubSource struct {
	mu    sync.Mutex
	bars  map[string][]types.Candle
	err   error
	block bool
	calls int
}

func (s *stubSource) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	bars, err := s.Historical(ctx, symbol, types.FifteenMinutes)
	if err != nil {
		return decimal.Zero, err
	}
	return bars[len(bars)-1].Close, nil
}

func (s *stubSource) Historical(ctx context.Context, symbol string, _ types.Interval) ([]types.Candle, error) {
	s.mu.Lock()
	s.calls++
	err, block := s.err, s.block
	bars, ok := s.bars[symbol]
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, types.ErrNoData
	}
	return bars, nil
}

func (s *stubSource) MarketContext(context.Context) (types.MarketContext, error) {
	return types.DefaultMarketContext(), nil
}

func (s *stubSource) ValidateCandles(candles []types.Candle) error {
	return NewValidator(1).Validate(candles)
}

func (s *stubSource) set(err error, block bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err, s.block = err, block
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
