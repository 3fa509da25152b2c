package engine

import (
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

type RiskEvaluator struct {
	cfg *RiskConfig
}

func NewRiskEvaluator(cfg *RiskConfig) *RiskEvaluator {
	return &RiskEvaluator{cfg: cfg}
}

// Evaluate applies the admission rules in order; the first failing rule
// decides the rejection reason.
func (r *RiskEvaluator) Evaluate(view types.PortfolioView, symbol string, signal types.Signal) types.RiskDecision {
	switch signal.Direction {
	case types.DirectionBuy:
		return r.evaluateBuy(view, symbol, signal)
	case types.DirectionSell:
		return r.evaluateSell(view, symbol, signal)
	default:
		return types.Reject(symbol, types.RejectNoOp)
	}
}

func (r *RiskEvaluator) evaluateBuy(view types.PortfolioView, symbol string, signal types.Signal) types.RiskDecision {
	if _, open := view.Positions[symbol]; open {
		return types.Reject(symbol, types.RejectDuplicatePosition)
	}
	if len(view.Positions) >= r.cfg.maxPositions {
		return types.Reject(symbol, types.RejectPositionLimit)
	}

	price := signal.Price
	stop, target := r.brackets(signal)

	shares := r.PositionSize(view.TotalEquity, price, stop)
	if signal.SizingHint > 0 && signal.SizingHint < shares {
		shares = signal.SizingHint
	}
	if shares <= 0 {
		return types.Reject(symbol, types.RejectNonPositiveSize)
	}

	totalCost := price.Mul(decimal.NewFromInt(shares)).Mul(one.Add(r.cfg.costRate))
	available := view.Cash.Mul(one.Sub(r.cfg.cashReserve))
	if totalCost.GreaterThan(available) {
		return types.Reject(symbol, types.RejectInsufficientCapital)
	}

	return types.RiskDecision{
		Verdict:       types.VerdictAllow,
		Symbol:        symbol,
		Side:          types.SideTypeBuy,
		Quantity:      shares,
		Price:         price,
		StopLoss:      stop,
		TakeProfit:    target,
		EstimatedCost: totalCost,
	}
}

func (r *RiskEvaluator) evaluateSell(view types.PortfolioView, symbol string, signal types.Signal) types.RiskDecision {
	pos, open := view.Positions[symbol]
	if !open {
		return types.Reject(symbol, types.RejectNothingToSell)
	}
	return types.RiskDecision{
		Verdict:  types.VerdictAllow,
		Symbol:   symbol,
		Side:     types.SideTypeSell,
		Quantity: pos.Quantity,
		Price:    signal.Price,
	}
}

// PositionSize is floor(equity*risk_per_trade / (price-stop)), or 0 when the
// stop is not below the price.
func (r *RiskEvaluator) PositionSize(equity, price, stop decimal.Decimal) int64 {
	perShareRisk := price.Sub(stop)
	if !perShareRisk.IsPositive() {
		return 0
	}
	budget := equity.Mul(r.cfg.riskPerTrade)
	return budget.Div(perShareRisk).Floor().IntPart()
}

func (r *RiskEvaluator) brackets(signal types.Signal) (decimal.Decimal, decimal.Decimal) {
	stop := signal.SuggestedStop
	if !stop.IsPositive() {
		stop = signal.Price.Mul(one.Sub(r.cfg.defaultStop))
	}
	target := signal.SuggestedTarget
	if !target.IsPositive() {
		target = signal.Price.Mul(one.Add(r.cfg.defaultTarget))
	}
	return stop, target
}

// CheckExit reports whether price breaches the position's stop or target.
// A zero stop or target is treated as unset.
func (r *RiskEvaluator) CheckExit(pos types.Position, price decimal.Decimal) (types.ExitReason, bool) {
	if pos.StopLoss.IsPositive() && price.LessThanOrEqual(pos.StopLoss) {
		return types.ExitStopLoss, true
	}
	if pos.TakeProfit.IsPositive() && price.GreaterThanOrEqual(pos.TakeProfit) {
		return types.ExitTakeProfit, true
	}
	return "", false
}

// BuyingHalted reports whether the drawdown limit blocks new entries.
func (r *RiskEvaluator) BuyingHalted(drawdownPct decimal.Decimal) bool {
	return r.cfg.maxDrawdownPct.IsPositive() && drawdownPct.GreaterThanOrEqual(r.cfg.maxDrawdownPct)
}
