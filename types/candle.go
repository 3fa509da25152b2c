package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Candle struct {
	AssetId   int             `json:"assetId,omitempty"`
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}

// CloseTime is when the bar is complete and safe to act on.
func (c Candle) CloseTime() time.Time {
	return c.Timestamp.Add(IntervalToTime[c.Interval])
}
