package engine

import (
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// UpdateTrailingStop returns pos after observing price. The stop only ever
// moves up once trailing has activated. Positions without trailing come back
// unchanged.
func UpdateTrailingStop(pos types.Position, price decimal.Decimal) types.Position {
	if !pos.TrailingEnabled || !pos.EntryPrice.IsPositive() {
		return pos
	}
	if price.GreaterThan(pos.HighestPrice) {
		pos.HighestPrice = price
	}
	if !pos.TrailingActivated {
		profitPct := price.Sub(pos.EntryPrice).Div(pos.EntryPrice)
		if profitPct.GreaterThanOrEqual(pos.TrailingActivationPct) {
			pos.TrailingActivated = true
		}
	}
	if pos.TrailingActivated {
		candidate := pos.HighestPrice.Mul(one.Sub(pos.TrailingPct))
		if candidate.GreaterThan(pos.StopLoss) {
			pos.StopLoss = candidate
		}
	}
	return pos
}
