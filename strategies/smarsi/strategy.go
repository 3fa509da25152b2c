// Package smarsi is a trend-following signal source: price above a rising
// pair of moving averages with RSI not overbought is a BUY, the mirror image
// is a SELL.
package smarsi

import (
	"context"
	"fmt"
	"time"
	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

type Config struct {
	FastPeriod   int
	SlowPeriod   int
	RSIPeriod    int
	Overbought   decimal.Decimal
	Oversold     decimal.Decimal
	StopFactor   decimal.Decimal
	TargetFactor decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		FastPeriod:   20,
		SlowPeriod:   50,
		RSIPeriod:    14,
		Overbought:   decimal.NewFromInt(70),
		Oversold:     decimal.NewFromInt(30),
		StopFactor:   decimal.RequireFromString("0.98"),
		TargetFactor: decimal.RequireFromString("1.03"),
	}
}

type Strategy struct {
	cfg Config
}

var _ engine.SignalSource = (*Strategy)(nil)

func New(cfg Config) (*Strategy, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= cfg.FastPeriod || cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("smarsi: need 0 < fast < slow and rsi > 0, got %d/%d/%d",
			cfg.FastPeriod, cfg.SlowPeriod, cfg.RSIPeriod)
	}
	if !cfg.StopFactor.IsPositive() || cfg.StopFactor.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("smarsi: stop factor must be in (0, 1), got %s", cfg.StopFactor)
	}
	if cfg.TargetFactor.LessThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("smarsi: target factor must be above 1, got %s", cfg.TargetFactor)
	}
	return &Strategy{cfg: cfg}, nil
}

// MinBars is the shortest history that can produce a non-HOLD signal.
func (s *Strategy) MinBars() int {
	return max(s.cfg.SlowPeriod, s.cfg.RSIPeriod+1)
}

func (s *Strategy) Signal(ctx context.Context, in engine.SignalInput) (types.Signal, error) {
	if err := ctx.Err(); err != nil {
		return types.Signal{}, err
	}
	candles := in.Candles
	if len(candles) == 0 {
		return types.Hold(in.Symbol, time.Time{}), nil
	}
	last := candles[len(candles)-1]
	at := last.CloseTime()

	fast, okFast := sma(candles, s.cfg.FastPeriod)
	slow, okSlow := sma(candles, s.cfg.SlowPeriod)
	strength, okRSI := rsi(candles, s.cfg.RSIPeriod)
	if !okFast || !okSlow || !okRSI {
		return types.Hold(in.Symbol, at), nil
	}

	price := last.Close
	var direction types.Direction
	var confidence decimal.Decimal
	switch {
	case price.GreaterThan(fast) && fast.GreaterThan(slow) && strength.LessThan(s.cfg.Overbought):
		direction, confidence = types.DirectionBuy, decimal.RequireFromString("0.7")
	case price.LessThan(fast) && fast.LessThan(slow) && strength.GreaterThan(s.cfg.Oversold):
		direction, confidence = types.DirectionSell, decimal.RequireFromString("0.3")
	default:
		return types.Hold(in.Symbol, at), nil
	}

	reason := fmt.Sprintf("close %s sma%d %s sma%d %s rsi%d %s",
		price.StringFixed(2),
		s.cfg.FastPeriod, fast.StringFixed(2),
		s.cfg.SlowPeriod, slow.StringFixed(2),
		s.cfg.RSIPeriod, strength.StringFixed(1))
	return types.NewSignal(
		in.Symbol,
		direction,
		price,
		price.Mul(s.cfg.StopFactor),
		price.Mul(s.cfg.TargetFactor),
		confidence,
		reason,
		at,
	)
}
