package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExecutionReport struct {
	OrderId      string
	Symbol       string
	side         Side
	status       OrderStatus
	fills        []Fill
	filledQty    int64
	avgFillPrice decimal.Decimal
	rejectReason string
	reportTime   time.Time
}

type Fill struct {
	Time  time.Time
	Price decimal.Decimal
	Qty   int64
}

func NewFill(time time.Time, price decimal.Decimal, qty int64) Fill {
	return Fill{
		Time:  time,
		Price: price,
		Qty:   qty,
	}
}

func NewExecutionReport(
	orderID string,
	symbol string,
	side Side,
	status OrderStatus,
	fills []Fill,
	rejectReason string,
	reportTime time.Time,
) ExecutionReport {
	report := ExecutionReport{
		OrderId:      orderID,
		Symbol:       symbol,
		side:         side,
		status:       status,
		fills:        fills,
		rejectReason: rejectReason,
		reportTime:   reportTime,
	}
	notional := decimal.Zero
	for _, f := range fills {
		report.filledQty += f.Qty
		notional = notional.Add(f.Price.Mul(decimal.NewFromInt(f.Qty)))
	}
	if report.filledQty > 0 {
		report.avgFillPrice = notional.Div(decimal.NewFromInt(report.filledQty))
	}
	return report
}

// NewRejectedReport is a report for an order that never reached the market.
func NewRejectedReport(order Order, reason string, reportTime time.Time) ExecutionReport {
	return NewExecutionReport(order.ID, order.Symbol, order.Side, OrderRejected, nil, reason, reportTime)
}

func (r ExecutionReport) Side() Side                    { return r.side }
func (r ExecutionReport) Status() OrderStatus           { return r.status }
func (r ExecutionReport) Fills() []Fill                 { return r.fills }
func (r ExecutionReport) FilledQty() int64              { return r.filledQty }
func (r ExecutionReport) AvgFillPrice() decimal.Decimal { return r.avgFillPrice }
func (r ExecutionReport) RejectReason() string          { return r.rejectReason }
func (r ExecutionReport) ReportTime() time.Time         { return r.reportTime }
