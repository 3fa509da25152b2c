package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveValuation(t *testing.T) {
	m := New()
	m.ObserveValuation(engine.Valuation{
		Cash:          decimal.RequireFromString("49900"),
		TotalEquity:   decimal.RequireFromString("100400"),
		UnrealizedPnL: decimal.RequireFromString("500"),
		DrawdownPct:   decimal.RequireFromString("0.015"),
	}, 2)

	assert.Equal(t, 100400.0, testutil.ToFloat64(m.equity))
	assert.Equal(t, 49900.0, testutil.ToFloat64(m.cash))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.unrealizedPnL))
	assert.InDelta(t, 0.015, testutil.ToFloat64(m.drawdown), 1e-12)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.openPositions))
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.SignalSeen(types.DirectionBuy)
	m.SignalSeen(types.DirectionBuy)
	m.SignalSeen(types.DirectionHold)
	m.Rejected(types.RejectPositionLimit)
	m.TradeClosed(types.TradeRecord{ExitReason: types.ExitStopLoss, RealizedPnL: decimal.NewFromInt(-150)})
	m.TradeClosed(types.TradeRecord{ExitReason: types.ExitTakeProfit, RealizedPnL: decimal.NewFromInt(400)})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.signals.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.signals.WithLabelValues("HOLD")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues(string(types.RejectPositionLimit))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesClosed.WithLabelValues("STOP_LOSS")))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.realizedPnL))
}

func TestMetrics_PhaseChanged(t *testing.T) {
	m := New()
	m.PhaseChanged(engine.PhaseScanning)
	m.PhaseChanged(engine.PhaseMarketClosed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues(string(engine.PhaseMarketClosed))))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues(string(engine.PhaseScanning))))
	assert.Equal(t, 4, testutil.CollectAndCount(m.phase))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SignalSeen(types.DirectionSell)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tradeengine_signals_total{direction="SELL"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
