package marketdata

import (
	"errors"
	"fmt"
	"tradeengine/types"
)

var (
	ErrInsufficientBars = errors.New("insufficient bars")
	ErrInvalidBar       = errors.New("invalid bar")
)

// Validator is the data-quality gate every source applies before bars reach
// a signal source.
type Validator struct {
	minBars int
}

func NewValidator(minBars int) Validator {
	if minBars < 1 {
		minBars = 1
	}
	return Validator{minBars: minBars}
}

// Validate rejects short histories and bars with non-positive prices or a
// high below any of low, open and close.
func (v Validator) Validate(candles []types.Candle) error {
	if len(candles) < v.minBars {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBars, len(candles), v.minBars)
	}
	for _, c := range candles {
		if !c.Open.IsPositive() || !c.High.IsPositive() || !c.Low.IsPositive() || !c.Close.IsPositive() {
			return fmt.Errorf("%w: non-positive price at %s", ErrInvalidBar, c.Timestamp)
		}
		if c.High.LessThan(c.Low) || c.High.LessThan(c.Open) || c.High.LessThan(c.Close) {
			return fmt.Errorf("%w: high below range at %s", ErrInvalidBar, c.Timestamp)
		}
	}
	return nil
}
