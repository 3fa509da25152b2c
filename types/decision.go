package types

import "github.com/shopspring/decimal"

type Verdict string

// RejectReason is the fixed vocabulary of risk rejections.
type RejectReason string

const (
	VerdictAllow  Verdict = "ALLOW"
	VerdictReject Verdict = "REJECT"

	RejectNoOp                RejectReason = "no-op"
	RejectDuplicatePosition   RejectReason = "duplicate position"
	RejectPositionLimit       RejectReason = "position limit"
	RejectNonPositiveSize     RejectReason = "non-positive size"
	RejectInsufficientCapital RejectReason = "insufficient capital"
	RejectNothingToSell       RejectReason = "nothing to sell"
	RejectDrawdownHalt        RejectReason = "drawdown halt"
)

// RiskDecision is the outcome of evaluating one signal against the portfolio.
// It is transient and never stored.
type RiskDecision struct {
	Verdict       Verdict
	Reason        RejectReason
	Symbol        string
	Side          Side
	Quantity      int64
	Price         decimal.Decimal
	StopLoss      decimal.Decimal
	TakeProfit    decimal.Decimal
	EstimatedCost decimal.Decimal
}

func (d RiskDecision) Allowed() bool {
	return d.Verdict == VerdictAllow
}

func Reject(symbol string, reason RejectReason) RiskDecision {
	return RiskDecision{Verdict: VerdictReject, Reason: reason, Symbol: symbol}
}
