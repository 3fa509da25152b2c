package engine

import (
	"context"
	"errors"
	"time"
	"tradeengine/types"
)

// tick runs one scan cycle. Exits are always handled before the signal scan
// so a stop hit in this tick frees its slot before any new entry.
func (e *Engine) tick(ctx context.Context, now time.Time) {
	e.checkExits(ctx, now)
	e.markEquity(now)
	if ctx.Err() != nil {
		return
	}
	if e.lastScan.IsZero() || now.Sub(e.lastScan) >= e.schedule.analysisInterval {
		e.scanSignals(ctx, now)
		e.lastScan = now
	}
}

// markEquity values the portfolio at its current marks, raises the peak and
// extends the session equity curve.
func (e *Engine) markEquity(now time.Time) Valuation {
	v := Value(e.state, LastKnownPrices(e.state))
	e.state = ObservePeak(e.state, v)
	e.curve = append(e.curve, EquityPoint{Time: now, Equity: v.TotalEquity})
	e.recorder.ObserveValuation(v, len(e.state.Positions))
	return v
}

// checkExits is the fast path: mark each open position, ratchet its trailing
// stop and close it on a stop or target hit.
func (e *Engine) checkExits(ctx context.Context, now time.Time) {
	for _, symbol := range e.state.Symbols() {
		if ctx.Err() != nil {
			return
		}
		price, err := e.market.LatestPrice(ctx, symbol)
		if err != nil {
			e.logDataError("price unavailable, skipping exit check", symbol, err)
			continue
		}

		before := e.state.Positions[symbol]
		pos := UpdateTrailingStop(before, price)
		pos.LastPrice = price
		pos.LastPriceTime = now
		if pos.StopLoss.GreaterThan(before.StopLoss) {
			e.logger.Infow("trailing stop raised",
				"symbol", symbol,
				"from", before.StopLoss.StringFixed(2),
				"to", pos.StopLoss.StringFixed(2),
				"highest", pos.HighestPrice.StringFixed(2),
			)
		}
		e.state = withPosition(e.state, pos)

		if reason, hit := e.risk.CheckExit(pos, price); hit {
			e.logger.Infow("exit triggered",
				"symbol", symbol,
				"reason", reason,
				"price", price.StringFixed(2),
				"stop", pos.StopLoss.StringFixed(2),
				"target", pos.TakeProfit.StringFixed(2),
			)
			e.execute(ctx, types.RiskDecision{
				Verdict:  types.VerdictAllow,
				Symbol:   symbol,
				Side:     types.SideTypeSell,
				Quantity: pos.Quantity,
				Price:    price,
			}, reason)
		}
	}
}

// scanSignals is the slow path over the watchlist.
func (e *Engine) scanSignals(ctx context.Context, now time.Time) {
	if mc, err := e.market.MarketContext(ctx); err != nil {
		e.logger.Debugw("market context unavailable, using defaults", "error", err)
		e.marketCtx = types.DefaultMarketContext()
	} else {
		e.marketCtx = mc
	}

	v := Value(e.state, LastKnownPrices(e.state))
	if halted := e.risk.BuyingHalted(v.DrawdownPct); halted != e.halted {
		e.halted = halted
		e.logger.Warnw("drawdown limit state changed",
			"buying_halted", halted,
			"drawdown_pct", v.DrawdownPct.Shift(2).StringFixed(2),
		)
	}

	for _, symbol := range e.execution.watchlist {
		if ctx.Err() != nil {
			return
		}
		signal := e.signalFor(ctx, symbol, v)
		if ctx.Err() != nil {
			return
		}
		e.state.Counters.Seen(signal.Direction)
		e.recorder.SignalSeen(signal.Direction)
		if signal.Direction == types.DirectionHold {
			continue
		}
		if signal.Direction == types.DirectionBuy && e.halted {
			e.reject(types.Reject(symbol, types.RejectDrawdownHalt))
			continue
		}

		v = Value(e.state, LastKnownPrices(e.state))
		decision := e.risk.Evaluate(View(e.state, v, now), symbol, signal)
		if !decision.Allowed() {
			e.reject(decision)
			continue
		}
		e.execute(ctx, decision, types.ExitSignal)
	}

	v = e.markEquity(now)
	e.logger.Infow("portfolio",
		"cash", e.state.Cash.StringFixed(2),
		"positions", len(e.state.Positions),
		"equity", v.TotalEquity.StringFixed(2),
		"return_pct", v.ReturnPct.Shift(2).StringFixed(2),
		"drawdown_pct", v.DrawdownPct.Shift(2).StringFixed(2),
	)
	e.saveState(ctx)
}

// signalFor fetches and checks bars for symbol and asks the signal source.
// Any failure along the way degrades to HOLD.
func (e *Engine) signalFor(ctx context.Context, symbol string, v Valuation) types.Signal {
	now := e.clock.Now()
	candles, err := e.market.Historical(ctx, symbol, e.execution.interval)
	if err != nil {
		e.logDataError("history unavailable", symbol, err)
		return types.Hold(symbol, now)
	}
	if err := e.market.ValidateCandles(candles); err != nil {
		e.logger.Warnw("data quality check failed", "symbol", symbol, "error", err)
		return types.Hold(symbol, now)
	}

	signal, err := e.signals.Signal(ctx, SignalInput{
		Symbol:        symbol,
		Candles:       candles,
		Market:        e.marketCtx,
		Equity:        v.TotalEquity,
		PeakEquity:    e.state.PeakValue,
		OpenPositions: e.state.Symbols(),
	})
	if err != nil {
		e.logger.Warnw("signal source failed", "symbol", symbol, "error", err)
		return types.Hold(symbol, now)
	}
	if signal.Symbol == "" {
		signal.Symbol = symbol
	}
	if !signal.Direction.Valid() || signal.Symbol != symbol ||
		(signal.Direction != types.DirectionHold && !signal.Price.IsPositive()) {
		e.logger.Warnw("discarding malformed signal",
			"symbol", symbol,
			"signal_symbol", signal.Symbol,
			"direction", signal.Direction,
			"price", signal.Price,
		)
		return types.Hold(symbol, now)
	}
	return signal
}

func (e *Engine) reject(d types.RiskDecision) {
	e.state.Counters.Rejections++
	e.recorder.Rejected(d.Reason)
	e.logger.Debugw("signal rejected", "symbol", d.Symbol, "reason", d.Reason)
}

// execute applies an ALLOW decision. Failures leave the state as it was.
func (e *Engine) execute(ctx context.Context, d types.RiskDecision, reason types.ExitReason) bool {
	next, record, err := e.executor.Execute(ctx, e.state, d, reason)
	if err != nil {
		e.state.Counters.ExecFailures++
		if isInvariantViolation(err) {
			e.logger.Errorw("execution refused", "symbol", d.Symbol, "side", d.Side, "error", err)
		} else {
			e.logger.Warnw("execution failed", "symbol", d.Symbol, "side", d.Side, "error", err)
		}
		return false
	}
	e.state = next

	if record != nil {
		e.recorder.TradeClosed(*record)
		e.logger.Infow("position closed",
			"symbol", record.Symbol,
			"qty", record.Quantity,
			"entry", record.EntryPrice.StringFixed(2),
			"exit", record.ExitPrice.StringFixed(2),
			"pnl", record.RealizedPnL.StringFixed(2),
			"reason", record.ExitReason,
		)
	} else {
		pos := e.state.Positions[d.Symbol]
		e.logger.Infow("position opened",
			"symbol", pos.Symbol,
			"qty", pos.Quantity,
			"entry", pos.EntryPrice.StringFixed(2),
			"stop", pos.StopLoss.StringFixed(2),
			"target", pos.TakeProfit.StringFixed(2),
			"cash", e.state.Cash.StringFixed(2),
		)
	}
	e.publish()
	return true
}

// closeAll force-closes every open position at its last known price.
func (e *Engine) closeAll(ctx context.Context, why string) {
	symbols := e.state.Symbols()
	if len(symbols) == 0 {
		return
	}
	e.logger.Infow("closing all positions", "count", len(symbols), "why", why)
	for _, symbol := range symbols {
		pos := e.state.Positions[symbol]
		e.execute(ctx, types.RiskDecision{
			Verdict:  types.VerdictAllow,
			Symbol:   symbol,
			Side:     types.SideTypeSell,
			Quantity: pos.Quantity,
			Price:    pos.Mark(),
		}, types.ExitSessionEnd)
	}
}

func (e *Engine) logDataError(msg, symbol string, err error) {
	if errors.Is(err, types.ErrNoData) {
		e.logger.Debugw(msg, "symbol", symbol, "error", err)
		return
	}
	e.logger.Warnw(msg, "symbol", symbol, "error", err)
}

func isInvariantViolation(err error) bool {
	return errors.Is(err, ErrDuplicatePosition) ||
		errors.Is(err, ErrNoPosition) ||
		errors.Is(err, ErrDecisionRejected) ||
		errors.Is(err, ErrInvalidQuantity)
}
