package smarsi

import (
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// sma is the simple average of the last period closes.
func sma(candles []types.Candle, period int) (decimal.Decimal, bool) {
	if period <= 0 || len(candles) < period {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, c := range candles[len(candles)-period:] {
		sum = sum.Add(c.Close)
	}
	return sum.Div(decimal.NewFromInt(int64(period))), true
}

// rsi uses plain rolling means of gains and losses over the last period
// close-to-close changes. Flat windows have no defined value.
func rsi(candles []types.Candle, period int) (decimal.Decimal, bool) {
	if period <= 0 || len(candles) < period+1 {
		return decimal.Zero, false
	}
	window := candles[len(candles)-period-1:]
	gains, losses := decimal.Zero, decimal.Zero
	for i := 1; i < len(window); i++ {
		delta := window[i].Close.Sub(window[i-1].Close)
		if delta.IsPositive() {
			gains = gains.Add(delta)
		} else {
			losses = losses.Add(delta.Abs())
		}
	}
	if gains.IsZero() && losses.IsZero() {
		return decimal.Zero, false
	}
	if losses.IsZero() {
		return hundred, true
	}
	// the period cancels out of avgGain / avgLoss
	rs := gains.Div(losses)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs))), true
}
