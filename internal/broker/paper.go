// Package broker holds order sinks. PaperBroker simulates fills locally.
package broker

import (
	"context"
	"time"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

var bpsDivisor = decimal.NewFromInt(10000)

// PaperBroker fills every market order immediately at the order's reference
// price moved against the trader by a fixed slippage.
//
//   - Buys fill at price * (1 + slippage)
//   - Sells fill at price * (1 - slippage)
//   - Transaction costs are not charged here; the executor applies them.
type PaperBroker struct {
	slippage decimal.Decimal
	now      func() time.Time
}

func NewPaperBroker(slippageBps decimal.Decimal, now func() time.Time) *PaperBroker {
	if now == nil {
		now = time.Now
	}
	return &PaperBroker{
		slippage: slippageBps.Div(bpsDivisor),
		now:      now,
	}
}

func (b *PaperBroker) Submit(ctx context.Context, order types.Order) (types.ExecutionReport, error) {
	if err := ctx.Err(); err != nil {
		return types.ExecutionReport{}, err
	}
	reportTime := b.now()

	if order.Quantity <= 0 {
		return types.NewRejectedReport(order, "Non-positive order quantity", reportTime), nil
	}
	if !order.Price.IsPositive() {
		return types.NewRejectedReport(order, "No reference price for market order", reportTime), nil
	}

	var fillPrice decimal.Decimal
	switch order.Side {
	case types.SideTypeBuy:
		fillPrice = order.Price.Mul(decimal.NewFromInt(1).Add(b.slippage))
	case types.SideTypeSell:
		fillPrice = order.Price.Mul(decimal.NewFromInt(1).Sub(b.slippage))
	default:
		return types.NewRejectedReport(order, "Unknown order side", reportTime), nil
	}

	fill := types.NewFill(reportTime, fillPrice, order.Quantity)
	return types.NewExecutionReport(
		order.ID,
		order.Symbol,
		order.Side,
		types.OrderFilled,
		[]types.Fill{fill},
		"",
		reportTime,
	), nil
}
