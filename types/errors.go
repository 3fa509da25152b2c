package types

import "errors"

var (
	// ErrNoData is returned by market data sources when a symbol has no usable
	// data right now. Callers treat it as "skip this symbol this tick".
	ErrNoData = errors.New("market data unavailable")
	// ErrFeedUnavailable means the feed itself is failing and calls are being
	// short-circuited.
	ErrFeedUnavailable = errors.New("market data feed unavailable")
	ErrInvalidSignal   = errors.New("invalid signal")
)
