package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Signal struct {
	Symbol          string
	Direction       Direction
	Price           decimal.Decimal
	SuggestedStop   decimal.Decimal
	SuggestedTarget decimal.Decimal
	Confidence      decimal.Decimal
	// SizingHint caps the share count when positive.
	SizingHint int64
	Reason     string
	CreatedAt  time.Time
}

// NewSignal builds a Signal and rejects shapes the risk layer cannot act on.
func NewSignal(
	symbol string,
	direction Direction,
	price decimal.Decimal,
	stop decimal.Decimal,
	target decimal.Decimal,
	confidence decimal.Decimal,
	reason string,
	createdAt time.Time,
) (Signal, error) {
	if symbol == "" {
		return Signal{}, fmt.Errorf("%w: empty symbol", ErrInvalidSignal)
	}
	if !direction.Valid() {
		return Signal{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidSignal, direction)
	}
	if direction != DirectionHold && !price.IsPositive() {
		return Signal{}, fmt.Errorf("%w: %s %s at non-positive price %s", ErrInvalidSignal, direction, symbol, price)
	}
	if stop.IsNegative() || target.IsNegative() {
		return Signal{}, fmt.Errorf("%w: negative stop or target for %s", ErrInvalidSignal, symbol)
	}
	return Signal{
		Symbol:          symbol,
		Direction:       direction,
		Price:           price,
		SuggestedStop:   stop,
		SuggestedTarget: target,
		Confidence:      confidence,
		Reason:          reason,
		CreatedAt:       createdAt,
	}, nil
}

// Hold is the signal used whenever a source has nothing to say.
func Hold(symbol string, at time.Time) Signal {
	return Signal{Symbol: symbol, Direction: DirectionHold, CreatedAt: at}
}
