package types

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is the whole mutable trading state. It is passed by value between
// the executor and the accountant; use Clone before mutating a copy so the
// caller's maps and slices are never shared.
type Portfolio struct {
	InitialCapital decimal.Decimal     `json:"initial_capital"`
	Cash           decimal.Decimal     `json:"cash"`
	PeakValue      decimal.Decimal     `json:"peak_value"`
	DailyPnL       decimal.Decimal     `json:"daily_pnl"`
	Positions      map[string]Position `json:"positions"`
	Trades         []TradeRecord       `json:"trades"`
	Counters       Counters            `json:"counters"`
	SessionDay     time.Time           `json:"session_day"`
}

type Position struct {
	Symbol                string          `json:"symbol"`
	Quantity              int64           `json:"quantity"`
	EntryPrice            decimal.Decimal `json:"entry_price"`
	EntryTime             time.Time       `json:"entry_time"`
	StopLoss              decimal.Decimal `json:"stop_loss"`
	OriginalStopLoss      decimal.Decimal `json:"original_stop_loss"`
	TakeProfit            decimal.Decimal `json:"take_profit"`
	HighestPrice          decimal.Decimal `json:"highest_price"`
	TrailingEnabled       bool            `json:"trailing_enabled"`
	TrailingActivationPct decimal.Decimal `json:"trailing_activation_pct"`
	TrailingPct           decimal.Decimal `json:"trailing_pct"`
	TrailingActivated     bool            `json:"trailing_activated"`
	LastPrice             decimal.Decimal `json:"last_price"`
	LastPriceTime         time.Time       `json:"last_price_time"`
}

// Counters are session statistics that feed the daily report.
type Counters struct {
	BuySignals    int `json:"buy_signals"`
	SellSignals   int `json:"sell_signals"`
	HoldSignals   int `json:"hold_signals"`
	BuysExecuted  int `json:"buys_executed"`
	SellsExecuted int `json:"sells_executed"`
	Rejections    int `json:"rejections"`
	ExecFailures  int `json:"exec_failures"`
}

func (c Counters) TotalSignals() int {
	return c.BuySignals + c.SellSignals + c.HoldSignals
}

func (c *Counters) Seen(d Direction) {
	switch d {
	case DirectionBuy:
		c.BuySignals++
	case DirectionSell:
		c.SellSignals++
	default:
		c.HoldSignals++
	}
}

func NewPortfolio(initialCapital decimal.Decimal) Portfolio {
	return Portfolio{
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		PeakValue:      initialCapital,
		DailyPnL:       decimal.Zero,
		Positions:      make(map[string]Position),
	}
}

func (p Portfolio) Clone() Portfolio {
	out := p
	out.Positions = maps.Clone(p.Positions)
	if out.Positions == nil {
		out.Positions = make(map[string]Position)
	}
	out.Trades = slices.Clone(p.Trades)
	return out
}

func (p Portfolio) HasPosition(symbol string) bool {
	_, ok := p.Positions[symbol]
	return ok
}

// Symbols returns open position symbols in a stable order.
func (p Portfolio) Symbols() []string {
	return slices.Sorted(maps.Keys(p.Positions))
}

func (p Position) CostBasis() decimal.Decimal {
	return p.EntryPrice.Mul(decimal.NewFromInt(p.Quantity))
}

// Mark is the last known price, falling back to entry.
func (p Position) Mark() decimal.Decimal {
	if p.LastPrice.IsPositive() {
		return p.LastPrice
	}
	return p.EntryPrice
}
