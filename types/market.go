package types

import "github.com/shopspring/decimal"

// MarketContext is the broad-market backdrop handed to signal sources.
type MarketContext struct {
	VIX     decimal.Decimal `json:"vix"`
	Breadth decimal.Decimal `json:"breadth"`
	Trend   string          `json:"trend"`
}

func DefaultMarketContext() MarketContext {
	return MarketContext{
		VIX:     decimal.NewFromInt(15),
		Breadth: decimal.NewFromInt(1),
		Trend:   "neutral",
	}
}
