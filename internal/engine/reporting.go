package engine

import (
	"fmt"
	"io"
	"sort"
	"time"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// EquityPoint is one observation of total equity, taken after each scan.
type EquityPoint struct {
	Time   time.Time
	Equity decimal.Decimal
}

// BuildDailyReport summarizes a session. trades are the trades closed during
// the session; curve is the session's equity curve in time order.
func BuildDailyReport(
	day time.Time,
	now time.Time,
	state types.Portfolio,
	v Valuation,
	trades []types.TradeRecord,
	curve []EquityPoint,
	market types.MarketContext,
	final bool,
) types.DailyReport {
	report := types.DailyReport{
		Date:           day.Format("2006-01-02"),
		GeneratedAt:    now,
		Final:          final,
		PortfolioValue: v.TotalEquity,
		Cash:           state.Cash,
		Positions:      len(state.Positions),
		DailyPnL:       state.DailyPnL,
		ReturnPct:      v.ReturnPct,
		DrawdownPct:    v.DrawdownPct,
		TotalSignals:   state.Counters.TotalSignals(),
		BuySignals:     state.Counters.BuySignals,
		SellSignals:    state.Counters.SellSignals,
		ClosedTrades:   len(trades),
		WinRate:        WinRate(trades),
		MarketContext:  market,
	}
	for _, t := range trades {
		if t.Win() {
			report.SuccessfulTrades++
		}
	}
	report.AvgWin, report.AvgLoss = calcAvgWinLossPerTrade(trades)
	report.ProfitFactor = calcProfitFactor(trades)
	report.MaxConsecutiveLosses = calcMaxConsecutiveLosses(trades)
	report.BestTrade, report.WorstTrade = calcBestWorstTrade(trades)
	report.MaxDrawdown, report.MaxDrawdownPct, _ = calcDrawdownMetrics(curve)
	return report
}

// PrintReport writes a human readable summary.
func PrintReport(w io.Writer, report types.DailyReport) {
	fmt.Fprintln(w, "===== Trading Report =====")
	fmt.Fprintf(w, "Date:                  %s\n", report.Date)
	fmt.Fprintf(w, "Portfolio Value:       %s\n", report.PortfolioValue.StringFixed(2))
	fmt.Fprintf(w, "Cash:                  %s\n", report.Cash.StringFixed(2))
	fmt.Fprintf(w, "Open Positions:        %d\n", report.Positions)
	fmt.Fprintf(w, "Daily P&L:             %s\n", report.DailyPnL.StringFixed(2))
	fmt.Fprintf(w, "Return:                %s%%\n", report.ReturnPct.Shift(2).StringFixed(2))

	fmt.Fprintln(w, "\n-- Signals --")
	fmt.Fprintf(w, "Total / Buy / Sell:    %d / %d / %d\n", report.TotalSignals, report.BuySignals, report.SellSignals)

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Closed Trades:         %d\n", report.ClosedTrades)
	fmt.Fprintf(w, "Win Rate:              %s%%\n", report.WinRate.Shift(2).StringFixed(1))
	fmt.Fprintf(w, "Avg Win:               %s\n", report.AvgWin.StringFixed(2))
	fmt.Fprintf(w, "Avg Loss:              %s\n", report.AvgLoss.StringFixed(2))
	fmt.Fprintf(w, "Profit Factor:         %s\n", report.ProfitFactor.StringFixed(2))
	fmt.Fprintf(w, "Best / Worst:          %s / %s\n", report.BestTrade.StringFixed(2), report.WorstTrade.StringFixed(2))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %s\n", report.MaxDrawdown.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", report.MaxDrawdownPct.Shift(2).StringFixed(2))
	fmt.Fprintf(w, "Max Consecutive Losses:%d\n", report.MaxConsecutiveLosses)

	fmt.Fprintln(w, "==========================")
}

func calcAvgWinLossPerTrade(trades []types.TradeRecord) (decimal.Decimal, decimal.Decimal) {
	sumWins := decimal.Zero
	sumLosses := decimal.Zero // absolute loss amounts
	winCount := 0
	lossCount := 0

	for _, tr := range trades {
		switch {
		case tr.RealizedPnL.GreaterThan(decimal.Zero):
			sumWins = sumWins.Add(tr.RealizedPnL)
			winCount++
		case tr.RealizedPnL.LessThan(decimal.Zero):
			sumLosses = sumLosses.Add(tr.RealizedPnL.Abs())
			lossCount++
		}
	}

	avgWin := decimal.Zero
	avgLoss := decimal.Zero
	if winCount > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(lossCount)))
	}
	return avgWin, avgLoss
}

// calcProfitFactor is gross profit over gross loss. Zero when nothing was lost.
func calcProfitFactor(trades []types.TradeRecord) decimal.Decimal {
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	for _, tr := range trades {
		if tr.RealizedPnL.IsPositive() {
			grossProfit = grossProfit.Add(tr.RealizedPnL)
		} else {
			grossLoss = grossLoss.Add(tr.RealizedPnL.Abs())
		}
	}
	if grossLoss.IsZero() {
		return decimal.Zero
	}
	return grossProfit.Div(grossLoss)
}

func calcMaxConsecutiveLosses(trades []types.TradeRecord) int {
	sorted := make([]types.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExitTime.Before(sorted[j].ExitTime)
	})

	maxLossStreak := 0
	currentStreak := 0
	for _, tr := range sorted {
		if tr.RealizedPnL.LessThan(decimal.Zero) {
			currentStreak++
			if currentStreak > maxLossStreak {
				maxLossStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxLossStreak
}

func calcBestWorstTrade(trades []types.TradeRecord) (decimal.Decimal, decimal.Decimal) {
	if len(trades) == 0 {
		return decimal.Zero, decimal.Zero
	}
	best, worst := trades[0].RealizedPnL, trades[0].RealizedPnL
	for _, tr := range trades[1:] {
		best = decimal.Max(best, tr.RealizedPnL)
		worst = decimal.Min(worst, tr.RealizedPnL)
	}
	return best, worst
}

// calcDrawdownMetrics returns the largest peak-to-trough drop of the curve,
// as an amount, a fraction of the peak, and the time since that peak.
func calcDrawdownMetrics(curve []EquityPoint) (decimal.Decimal, decimal.Decimal, time.Duration) {
	if len(curve) == 0 {
		return decimal.Zero, decimal.Zero, 0
	}

	peak := decimal.Zero
	var peakTime time.Time

	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for i, point := range curve {
		if i == 0 || point.Equity.GreaterThan(peak) || peak.IsZero() {
			peak = point.Equity
			peakTime = point.Time
		}

		if peak.GreaterThan(decimal.Zero) {
			dd := peak.Sub(point.Equity)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
				maxDDPct = dd.Div(peak)
				maxDDDuration = point.Time.Sub(peakTime)
			}
		}
	}
	return maxDD, maxDDPct, maxDDDuration
}

// tradesClosedOn filters trades whose exit falls on the given session day.
func tradesClosedOn(trades []types.TradeRecord, day time.Time) []types.TradeRecord {
	var out []types.TradeRecord
	next := day.AddDate(0, 0, 1)
	for _, t := range trades {
		if !t.ExitTime.Before(day) && t.ExitTime.Before(next) {
			out = append(out, t)
		}
	}
	return out
}
