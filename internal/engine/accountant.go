package engine

import (
	"slices"
	"time"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// PriceLookup returns the current price for a symbol, or false when none is
// available.
type PriceLookup func(symbol string) (decimal.Decimal, bool)

type Valuation struct {
	Cash          decimal.Decimal
	MarketValue   decimal.Decimal
	TotalEquity   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	PeakValue     decimal.Decimal
	DrawdownPct   decimal.Decimal
	ReturnPct     decimal.Decimal
}

// LastKnownPrices values positions at their last observed mark.
func LastKnownPrices(state types.Portfolio) PriceLookup {
	return func(symbol string) (decimal.Decimal, bool) {
		pos, ok := state.Positions[symbol]
		if !ok {
			return decimal.Zero, false
		}
		return pos.Mark(), true
	}
}

func QuotedPrices(quotes map[string]decimal.Decimal) PriceLookup {
	return func(symbol string) (decimal.Decimal, bool) {
		p, ok := quotes[symbol]
		return p, ok && p.IsPositive()
	}
}

// Value computes equity and derived ratios. It never mutates state; a symbol
// the lookup cannot price is valued at its entry price.
func Value(state types.Portfolio, lookup PriceLookup) Valuation {
	v := Valuation{
		Cash:          state.Cash,
		MarketValue:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		PeakValue:     state.PeakValue,
		DrawdownPct:   decimal.Zero,
		ReturnPct:     decimal.Zero,
	}
	for _, pos := range state.Positions {
		price := pos.EntryPrice
		if lookup != nil {
			if p, ok := lookup(pos.Symbol); ok {
				price = p
			}
		}
		qty := decimal.NewFromInt(pos.Quantity)
		v.MarketValue = v.MarketValue.Add(qty.Mul(price))
		v.UnrealizedPnL = v.UnrealizedPnL.Add(qty.Mul(price.Sub(pos.EntryPrice)))
	}
	v.TotalEquity = v.Cash.Add(v.MarketValue)

	if v.PeakValue.IsPositive() && v.TotalEquity.LessThan(v.PeakValue) {
		v.DrawdownPct = v.PeakValue.Sub(v.TotalEquity).Div(v.PeakValue)
	}
	if state.InitialCapital.IsPositive() {
		v.ReturnPct = v.TotalEquity.Sub(state.InitialCapital).Div(state.InitialCapital)
	}
	return v
}

// ObservePeak raises the peak equity mark when v exceeds it.
func ObservePeak(state types.Portfolio, v Valuation) types.Portfolio {
	if v.TotalEquity.GreaterThan(state.PeakValue) {
		state.PeakValue = v.TotalEquity
	}
	return state
}

// WinRate is the fraction of trades with positive realized P&L.
func WinRate(trades []types.TradeRecord) decimal.Decimal {
	if len(trades) == 0 {
		return decimal.Zero
	}
	wins := 0
	for _, t := range trades {
		if t.Win() {
			wins++
		}
	}
	return decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(len(trades))))
}

func View(state types.Portfolio, v Valuation, now time.Time) types.PortfolioView {
	view := types.PortfolioView{
		Cash:        state.Cash,
		TotalEquity: v.TotalEquity,
		Positions:   make(map[string]types.PositionSnapshot, len(state.Positions)),
		Time:        now,
	}
	for sym := range state.Positions {
		view.Positions[sym] = state.Snapshot(sym)
	}
	return view
}

func Status(state types.Portfolio, v Valuation, now time.Time) types.StatusSnapshot {
	positions := make([]types.PositionSnapshot, 0, len(state.Positions))
	for _, sym := range state.Symbols() {
		positions = append(positions, state.Snapshot(sym))
	}
	return types.StatusSnapshot{
		Time:          now,
		Cash:          state.Cash,
		TotalEquity:   v.TotalEquity,
		UnrealizedPnL: v.UnrealizedPnL,
		DailyPnL:      state.DailyPnL,
		ReturnPct:     v.ReturnPct,
		DrawdownPct:   v.DrawdownPct,
		PeakValue:     state.PeakValue,
		WinRate:       WinRate(state.Trades),
		OpenPositions: len(state.Positions),
		ClosedTrades:  len(state.Trades),
		Positions:     positions,
		Counters:      state.Counters,
	}
}

// RecentTrades returns up to n of the latest trades, newest last.
func RecentTrades(trades []types.TradeRecord, n int) []types.TradeRecord {
	if n <= 0 || len(trades) <= n {
		return slices.Clone(trades)
	}
	return slices.Clone(trades[len(trades)-n:])
}
