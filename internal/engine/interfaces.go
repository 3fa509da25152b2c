package engine

import (
	"context"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

type MarketDataSource interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Historical(ctx context.Context, symbol string, interval types.Interval) ([]types.Candle, error)
	MarketContext(ctx context.Context) (types.MarketContext, error)
	// ValidateCandles is the data-quality gate applied before bars reach a
	// signal source.
	ValidateCandles(candles []types.Candle) error
}

// SignalInput is everything a signal source is allowed to look at.
type SignalInput struct {
	Symbol        string
	Candles       []types.Candle
	Market        types.MarketContext
	Equity        decimal.Decimal
	PeakEquity    decimal.Decimal
	OpenPositions []string
}

type SignalSource interface {
	Signal(ctx context.Context, in SignalInput) (types.Signal, error)
}

type OrderSink interface {
	Submit(ctx context.Context, order types.Order) (types.ExecutionReport, error)
}

type StateStore interface {
	SaveState(ctx context.Context, state types.Portfolio) error
	// LoadState returns nil without error when nothing was saved yet.
	LoadState(ctx context.Context) (*types.Portfolio, error)
}

type ReportSink interface {
	WriteReport(ctx context.Context, report types.DailyReport, trades []types.TradeRecord) error
}

// Recorder receives metric events. Implementations must not block.
type Recorder interface {
	ObserveValuation(v Valuation, openPositions int)
	SignalSeen(direction types.Direction)
	Rejected(reason types.RejectReason)
	TradeClosed(trade types.TradeRecord)
	PhaseChanged(phase Phase)
}

type noopRecorder struct{}

func (noopRecorder) ObserveValuation(Valuation, int) {}
func (noopRecorder) SignalSeen(types.Direction)      {}
func (noopRecorder) Rejected(types.RejectReason)     {}
func (noopRecorder) TradeClosed(types.TradeRecord)   {}
func (noopRecorder) PhaseChanged(Phase)              {}
