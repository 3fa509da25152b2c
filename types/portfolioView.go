package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioView is the read-only picture the risk evaluator works from.
type PortfolioView struct {
	Cash        decimal.Decimal
	TotalEquity decimal.Decimal
	Positions   map[string]PositionSnapshot
	Time        time.Time
}

type PositionSnapshot struct {
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	AvgEntryPrice decimal.Decimal `json:"entry_price"`
	LastPrice     decimal.Decimal `json:"last_price"`
	StopLoss      decimal.Decimal `json:"stop_loss"`
	TakeProfit    decimal.Decimal `json:"take_profit"`
	HighestPrice  decimal.Decimal `json:"highest_price"`
	Trailing      bool            `json:"trailing_activated"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	EntryTime     time.Time       `json:"entry_time"`
}

// StatusSnapshot is what external readers (status API, CLI) see.
type StatusSnapshot struct {
	Time          time.Time          `json:"time"`
	Phase         string             `json:"phase"`
	Cash          decimal.Decimal    `json:"cash"`
	TotalEquity   decimal.Decimal    `json:"total_equity"`
	UnrealizedPnL decimal.Decimal    `json:"unrealized_pnl"`
	DailyPnL      decimal.Decimal    `json:"daily_pnl"`
	ReturnPct     decimal.Decimal    `json:"return_pct"`
	DrawdownPct   decimal.Decimal    `json:"drawdown_pct"`
	PeakValue     decimal.Decimal    `json:"peak_value"`
	WinRate       decimal.Decimal    `json:"win_rate"`
	OpenPositions int                `json:"open_positions"`
	ClosedTrades  int                `json:"closed_trades"`
	Positions     []PositionSnapshot `json:"positions"`
	Counters      Counters           `json:"counters"`
	BuyingHalted  bool               `json:"buying_halted"`
	MarketContext MarketContext      `json:"market_context"`
}

func (p Portfolio) Snapshot(symbol string) PositionSnapshot {
	pos := p.Positions[symbol]
	mark := pos.Mark()
	return PositionSnapshot{
		Symbol:        pos.Symbol,
		Quantity:      pos.Quantity,
		AvgEntryPrice: pos.EntryPrice,
		LastPrice:     mark,
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		HighestPrice:  pos.HighestPrice,
		Trailing:      pos.TrailingActivated,
		UnrealizedPnL: mark.Sub(pos.EntryPrice).Mul(decimal.NewFromInt(pos.Quantity)),
		EntryTime:     pos.EntryTime,
	}
}
