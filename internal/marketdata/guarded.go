package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"
	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// GuardOptions configures a GuardedSource. Zero values disable the
// corresponding protection.
type GuardOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	BreakerFailures   uint
	BreakerWindow     uint
	BreakerDelay      time.Duration
}

func DefaultGuardOptions() GuardOptions {
	return GuardOptions{
		Timeout:         10 * time.Second,
		BreakerFailures: 5,
		BreakerWindow:   10,
		BreakerDelay:    30 * time.Second,
	}
}

// GuardedSource bounds every call to the wrapped source with a timeout,
// paces requests and opens a circuit breaker when the source keeps failing.
//
//   - A timed out call is reported as types.ErrNoData for that symbol
//   - While the breaker is open calls fail fast with types.ErrFeedUnavailable
//   - Missing data does not count against the breaker
type GuardedSource struct {
	inner    engine.MarketDataSource
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  circuitbreaker.CircuitBreaker[any]
	pipeline failsafe.Executor[any]
	logger   *zap.SugaredLogger
}

func NewGuardedSource(inner engine.MarketDataSource, opts GuardOptions, logger *zap.SugaredLogger) *GuardedSource {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	g := &GuardedSource{
		inner:   inner,
		timeout: opts.Timeout,
		logger:  logger,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	failures, window := opts.BreakerFailures, opts.BreakerWindow
	if failures == 0 {
		failures, window = 5, 10
	}
	if window < failures {
		window = failures
	}
	delay := opts.BreakerDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}
	g.breaker = circuitbreaker.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return err != nil && !errors.Is(err, types.ErrNoData) &&
				!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}).
		WithFailureThresholdRatio(failures, window).
		WithDelay(delay).
		OnOpen(func(circuitbreaker.StateChangedEvent) {
			logger.Warnw("market data circuit opened", "delay", delay)
		}).
		OnClose(func(circuitbreaker.StateChangedEvent) {
			logger.Infow("market data circuit closed")
		}).
		Build()
	g.pipeline = failsafe.With[any](g.breaker)
	return g
}

func (g *GuardedSource) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return guard(ctx, g, symbol, func(ctx context.Context) (decimal.Decimal, error) {
		return g.inner.LatestPrice(ctx, symbol)
	})
}

func (g *GuardedSource) Historical(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error) {
	return guard(ctx, g, symbol, func(ctx context.Context) ([]types.Candle, error) {
		return g.inner.Historical(ctx, symbol, interval)
	})
}

func (g *GuardedSource) MarketContext(ctx context.Context) (types.MarketContext, error) {
	return guard(ctx, g, "market", func(ctx context.Context) (types.MarketContext, error) {
		return g.inner.MarketContext(ctx)
	})
}

func (g *GuardedSource) ValidateCandles(candles []types.Candle) error {
	return g.inner.ValidateCandles(candles)
}

// BreakerOpen reports whether calls are currently short-circuited.
func (g *GuardedSource) BreakerOpen() bool {
	return g.breaker.IsOpen()
}

func guard[T any](ctx context.Context, g *GuardedSource, key string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}

	res, err := g.pipeline.WithContext(ctx).Get(func() (any, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		v, err := call(callCtx)
		// A call that ran out of its own time budget is missing data, which
		// the breaker ignores.
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			g.logger.Debugw("market data call timed out", "key", key, "timeout", g.timeout)
			return v, fmt.Errorf("%s: timed out after %s: %w", key, g.timeout, types.ErrNoData)
		}
		return v, err
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return zero, fmt.Errorf("%s: %w", key, types.ErrFeedUnavailable)
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}
