package engine

import (
	"context"
	"errors"
	"fmt"
	"tradeengine/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDecisionRejected = errors.New("cannot execute a rejected decision")
	ErrInvalidQuantity  = errors.New("order quantity must be positive")
	ErrOrderRejected    = errors.New("order rejected by sink")
	ErrPartialFill      = errors.New("order not fully filled")
)

// Executor turns ALLOW decisions into fills and applies them to a portfolio.
// Every call either returns a fully updated copy of the state or an error with
// the input state unchanged.
type Executor struct {
	costRate decimal.Decimal
	trailing *TrailingConfig
	sink     OrderSink
	clock    Clock
	newID    func() string
}

func NewExecutor(costRate decimal.Decimal, trailing *TrailingConfig, sink OrderSink, clock Clock) *Executor {
	if clock == nil {
		clock = SystemClock{}
	}
	if trailing == nil {
		trailing = NewTrailingConfig(false, decimal.Zero, decimal.Zero)
	}
	return &Executor{
		costRate: costRate,
		trailing: trailing,
		sink:     sink,
		clock:    clock,
		newID:    uuid.NewString,
	}
}

func (x *Executor) Execute(
	ctx context.Context,
	state types.Portfolio,
	decision types.RiskDecision,
	reason types.ExitReason,
) (types.Portfolio, *types.TradeRecord, error) {
	if !decision.Allowed() {
		return state, nil, fmt.Errorf("%w: %s %s", ErrDecisionRejected, decision.Symbol, decision.Reason)
	}
	switch decision.Side {
	case types.SideTypeBuy:
		next, err := x.buy(ctx, state, decision)
		return next, nil, err
	case types.SideTypeSell:
		return x.sell(ctx, state, decision, reason)
	default:
		return state, nil, fmt.Errorf("unknown side %q for %s", decision.Side, decision.Symbol)
	}
}

func (x *Executor) buy(ctx context.Context, state types.Portfolio, d types.RiskDecision) (types.Portfolio, error) {
	if d.Quantity <= 0 {
		return state, fmt.Errorf("%w: %s qty %d", ErrInvalidQuantity, d.Symbol, d.Quantity)
	}
	if state.HasPosition(d.Symbol) {
		return state, fmt.Errorf("%w: %s", ErrDuplicatePosition, d.Symbol)
	}
	qty := decimal.NewFromInt(d.Quantity)
	// The cash reserve was checked at the decision price. Slippage on the fill
	// may eat into the reserve; only a negative balance is refused. Refuse
	// before routing if the order cannot be paid for at the decision price.
	if estimate := qty.Mul(d.Price).Mul(one.Add(x.costRate)); estimate.GreaterThan(state.Cash) {
		return state, fmt.Errorf("%w: %s needs %s, have %s", ErrInsufficientCash, d.Symbol, estimate.StringFixed(2), state.Cash.StringFixed(2))
	}

	fillPrice, err := x.route(ctx, types.NewOrder(d.Symbol, types.SideTypeBuy, d.Quantity, d.Price, "entry", x.clock.Now()))
	if err != nil {
		return state, err
	}

	now := x.clock.Now()
	pos := types.Position{
		Symbol:                d.Symbol,
		Quantity:              d.Quantity,
		EntryPrice:            fillPrice,
		EntryTime:             now,
		StopLoss:              d.StopLoss,
		OriginalStopLoss:      d.StopLoss,
		TakeProfit:            d.TakeProfit,
		HighestPrice:          fillPrice,
		TrailingEnabled:       x.trailing.enabled,
		TrailingActivationPct: x.trailing.activationPct,
		TrailingPct:           x.trailing.trailPct,
		LastPrice:             fillPrice,
		LastPriceTime:         now,
	}

	next := state.Clone()
	if err := openPosition(&next, pos, qty.Mul(fillPrice).Mul(one.Add(x.costRate))); err != nil {
		return state, err
	}
	next.Counters.BuysExecuted++
	return next, nil
}

func (x *Executor) sell(ctx context.Context, state types.Portfolio, d types.RiskDecision, reason types.ExitReason) (types.Portfolio, *types.TradeRecord, error) {
	symbol := d.Symbol
	pos, ok := state.Positions[symbol]
	if !ok {
		return state, nil, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	if reason == "" {
		reason = types.ExitSignal
	}
	refPrice := d.Price
	if !refPrice.IsPositive() {
		refPrice = pos.Mark()
	}

	// A sell always closes the whole position.
	fillPrice, err := x.route(ctx, types.NewOrder(symbol, types.SideTypeSell, pos.Quantity, refPrice, string(reason), x.clock.Now()))
	if err != nil {
		return state, nil, err
	}

	next := state.Clone()
	record, err := closePosition(&next, symbol, fillPrice, x.costRate, reason, x.clock.Now(), x.newID())
	if err != nil {
		return state, nil, err
	}
	next.Counters.SellsExecuted++
	next = ObservePeak(next, Value(next, LastKnownPrices(next)))
	return next, &record, nil
}

// route submits the order and returns the average fill price. Anything short
// of a complete fill is an error.
func (x *Executor) route(ctx context.Context, order types.Order) (decimal.Decimal, error) {
	if x.sink == nil {
		return decimal.Zero, fmt.Errorf("%w: no order sink configured", ErrOrderRejected)
	}
	report, err := x.sink.Submit(ctx, order)
	if err != nil {
		return decimal.Zero, fmt.Errorf("submit %s %s: %w", order.Side, order.Symbol, err)
	}
	switch report.Status() {
	case types.OrderFilled:
	case types.OrderRejected:
		return decimal.Zero, fmt.Errorf("%w: %s %s: %s", ErrOrderRejected, order.Side, order.Symbol, report.RejectReason())
	default:
		return decimal.Zero, fmt.Errorf("%w: %s %s status %s", ErrPartialFill, order.Side, order.Symbol, report.Status())
	}
	if report.FilledQty() != order.Quantity {
		return decimal.Zero, fmt.Errorf("%w: %s %s filled %d of %d", ErrPartialFill, order.Side, order.Symbol, report.FilledQty(), order.Quantity)
	}
	if !report.AvgFillPrice().IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s %s non-positive fill price", ErrOrderRejected, order.Side, order.Symbol)
	}
	return report.AvgFillPrice(), nil
}
