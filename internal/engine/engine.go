package engine

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"
	"time"
	"tradeengine/types"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseIdle         Phase = "IDLE"
	PhaseMarketClosed Phase = "MARKET_CLOSED"
	PhaseScanning     Phase = "SCANNING"
	PhaseStopped      Phase = "STOPPED"
)

const shutdownTimeout = 30 * time.Second

var ErrEngineStopped = errors.New("engine already ran")

// Options carries the optional collaborators of an Engine.
type Options struct {
	Store    StateStore
	Reports  ReportSink
	Recorder Recorder
	Clock    Clock
	Logger   *zap.SugaredLogger
	// InitialState resumes from a saved portfolio instead of a fresh one.
	InitialState *types.Portfolio
}

// Engine owns the portfolio and drives it through trading sessions. Only the
// goroutine inside Run touches the state; everyone else reads the published
// snapshot.
type Engine struct {
	logger    *zap.SugaredLogger
	market    MarketDataSource
	signals   SignalSource
	risk      *RiskEvaluator
	executor  *Executor
	schedule  *ScheduleConfig
	execution *ExecutionConfig
	store     StateStore
	reports   ReportSink
	recorder  Recorder
	clock     Clock

	state     types.Portfolio
	phase     Phase
	lastScan  time.Time
	marketCtx types.MarketContext
	curve     []EquityPoint
	halted    bool

	started   atomic.Bool
	published atomic.Pointer[snapshot]
}

type snapshot struct {
	status types.StatusSnapshot
	trades []types.TradeRecord
}

func NewEngine(
	portfolioConfig *PortfolioConfig,
	riskConfig *RiskConfig,
	trailingConfig *TrailingConfig,
	scheduleConfig *ScheduleConfig,
	executionConfig *ExecutionConfig,
	market MarketDataSource,
	signals SignalSource,
	sink OrderSink,
	opts Options,
) *Engine {
	e := &Engine{
		logger:    opts.Logger,
		market:    market,
		signals:   signals,
		risk:      NewRiskEvaluator(riskConfig),
		schedule:  scheduleConfig,
		execution: executionConfig,
		store:     opts.Store,
		reports:   opts.Reports,
		recorder:  opts.Recorder,
		clock:     opts.Clock,
		phase:     PhaseIdle,
		marketCtx: types.DefaultMarketContext(),
	}
	if e.logger == nil {
		e.logger = zap.NewNop().Sugar()
	}
	if e.recorder == nil {
		e.recorder = noopRecorder{}
	}
	if e.clock == nil {
		e.clock = SystemClock{}
	}
	e.executor = NewExecutor(riskConfig.costRate, trailingConfig, sink, e.clock)

	if opts.InitialState != nil {
		e.state = opts.InitialState.Clone()
	} else {
		e.state = types.NewPortfolio(portfolioConfig.initialCash)
	}
	e.publish()
	return e
}

// Run drives the session state machine until ctx is cancelled (or a replay
// clock runs out), then closes every open position, writes the final report
// and returns. An engine runs at most once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrEngineStopped
	}
	e.logger.Infow("engine starting",
		"cash", e.state.Cash.StringFixed(2),
		"positions", len(e.state.Positions),
		"watchlist", len(e.execution.watchlist),
	)

	for ctx.Err() == nil {
		now := e.clock.Now()
		e.rollSession(ctx, now)

		wait := e.schedule.closedInterval
		if e.schedule.IsOpen(now) {
			e.setPhase(PhaseScanning)
			e.tick(ctx, now)
			wait = e.schedule.tickInterval
		} else {
			if e.phase == PhaseScanning && e.schedule.flattenAtClose {
				e.closeAll(ctx, "market closed")
			}
			e.setPhase(PhaseMarketClosed)
		}
		e.publish()

		if err := e.clock.Sleep(ctx, wait); err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				e.logger.Infow("clock stopped", "reason", err)
			}
			break
		}
	}
	return e.shutdown(ctx)
}

// Status returns the most recently published snapshot. Safe for concurrent use.
func (e *Engine) Status() types.StatusSnapshot {
	s := e.published.Load().status
	s.Positions = slices.Clone(s.Positions)
	return s
}

// Trades returns the closed trades as of the last published snapshot.
func (e *Engine) Trades() []types.TradeRecord {
	return slices.Clone(e.published.Load().trades)
}

func (e *Engine) shutdown(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	e.closeAll(sctx, "shutdown")
	e.setPhase(PhaseStopped)

	now := e.clock.Now()
	v := e.markEquity(now)

	e.writeReport(sctx, e.sessionDay(now), true)
	e.saveState(sctx)
	e.publish()

	e.logger.Infow("engine stopped",
		"equity", v.TotalEquity.StringFixed(2),
		"return_pct", v.ReturnPct.Shift(2).StringFixed(2),
		"trades", len(e.state.Trades),
		"open_positions", len(e.state.Positions),
	)
	return nil
}

// rollSession emits the previous day's report and resets daily figures when
// the session day changes.
func (e *Engine) rollSession(ctx context.Context, now time.Time) {
	day := e.schedule.SessionDay(now)
	if e.state.SessionDay.IsZero() {
		e.state = rollSession(e.state, day)
		return
	}
	if !day.After(e.state.SessionDay) {
		return
	}
	e.writeReport(ctx, e.sessionDay(e.state.SessionDay), false)
	e.state = rollSession(e.state, day)
	e.curve = nil
	e.lastScan = time.Time{}
	e.logger.Infow("new trading day", "day", day.Format("2006-01-02"))
}

func (e *Engine) sessionDay(t time.Time) time.Time {
	return e.schedule.SessionDay(t)
}

func (e *Engine) writeReport(ctx context.Context, day time.Time, final bool) {
	if e.reports == nil {
		return
	}
	v := Value(e.state, LastKnownPrices(e.state))
	trades := tradesClosedOn(e.state.Trades, day)
	report := BuildDailyReport(day, e.clock.Now(), e.state, v, trades, e.curve, e.marketCtx, final)
	if err := e.reports.WriteReport(ctx, report, trades); err != nil {
		e.logger.Warnw("failed to write daily report", "date", report.Date, "error", err)
		return
	}
	e.logger.Infow("daily report written",
		"date", report.Date,
		"portfolio_value", report.PortfolioValue.StringFixed(2),
		"daily_pnl", report.DailyPnL.StringFixed(2),
		"final", final,
	)
}

func (e *Engine) saveState(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveState(ctx, e.state.Clone()); err != nil {
		e.logger.Warnw("failed to persist portfolio state", "error", err)
	}
}

func (e *Engine) setPhase(p Phase) {
	if e.phase == p {
		return
	}
	e.logger.Infow("phase change", "from", e.phase, "to", p)
	e.phase = p
	e.recorder.PhaseChanged(p)
}

func (e *Engine) publish() {
	v := Value(e.state, LastKnownPrices(e.state))
	status := Status(e.state, v, e.clock.Now())
	status.Phase = string(e.phase)
	status.BuyingHalted = e.halted
	status.MarketContext = e.marketCtx
	e.published.Store(&snapshot{
		status: status,
		trades: slices.Clone(e.state.Trades),
	})
}
