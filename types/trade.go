package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is written once when a position closes and never changes.
type TradeRecord struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	EntryTime   time.Time       `json:"entry_time"`
	ExitTime    time.Time       `json:"exit_time"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	Quantity    int64           `json:"quantity"`
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
	ReturnPct   decimal.Decimal `json:"return_pct"`
	ExitReason  ExitReason      `json:"exit_reason"`
}

func (t TradeRecord) Win() bool {
	return t.RealizedPnL.IsPositive()
}
