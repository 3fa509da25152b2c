package engine

import (
	"errors"
	"fmt"
	"time"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicatePosition = errors.New("position already open for symbol")
	ErrNoPosition        = errors.New("no open position for symbol")
	ErrInsufficientCash  = errors.New("insufficient cash for buy")
)

// openPosition debits cost and records pos. p must be a clone owned by the
// caller; on error it is left untouched.
func openPosition(p *types.Portfolio, pos types.Position, cost decimal.Decimal) error {
	if p.HasPosition(pos.Symbol) {
		return fmt.Errorf("%w: %s", ErrDuplicatePosition, pos.Symbol)
	}
	newCash := p.Cash.Sub(cost)
	if newCash.IsNegative() {
		return fmt.Errorf("%w: %s needs %s, have %s", ErrInsufficientCash, pos.Symbol, cost.StringFixed(2), p.Cash.StringFixed(2))
	}
	p.Cash = newCash
	p.Positions[pos.Symbol] = pos
	return nil
}

// closePosition removes symbol from p, credits the net proceeds and returns the
// trade record. p must be a clone owned by the caller.
func closePosition(
	p *types.Portfolio,
	symbol string,
	exitPrice decimal.Decimal,
	costRate decimal.Decimal,
	reason types.ExitReason,
	exitTime time.Time,
	id string,
) (types.TradeRecord, error) {
	pos, ok := p.Positions[symbol]
	if !ok {
		return types.TradeRecord{}, fmt.Errorf("%w: %s", ErrNoPosition, symbol)
	}
	qty := decimal.NewFromInt(pos.Quantity)
	proceeds := qty.Mul(exitPrice).Mul(one.Sub(costRate))
	costBasis := qty.Mul(pos.EntryPrice).Mul(one.Add(costRate))
	realized := proceeds.Sub(costBasis)

	returnPct := decimal.Zero
	if costBasis.IsPositive() {
		returnPct = realized.Div(costBasis)
	}

	record := types.TradeRecord{
		ID:          id,
		Symbol:      symbol,
		EntryTime:   pos.EntryTime,
		ExitTime:    exitTime,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    pos.Quantity,
		RealizedPnL: realized,
		ReturnPct:   returnPct,
		ExitReason:  reason,
	}

	p.Cash = p.Cash.Add(proceeds)
	p.DailyPnL = p.DailyPnL.Add(realized)
	p.Trades = append(p.Trades, record)
	delete(p.Positions, symbol)
	return record, nil
}

// withPosition returns a copy of p with pos replacing the stored position.
func withPosition(p types.Portfolio, pos types.Position) types.Portfolio {
	next := p.Clone()
	next.Positions[pos.Symbol] = pos
	return next
}

// rollSession starts a new trading day: daily P&L and signal counters reset.
func rollSession(p types.Portfolio, day time.Time) types.Portfolio {
	p.SessionDay = day
	p.DailyPnL = decimal.Zero
	p.Counters = types.Counters{}
	return p
}
