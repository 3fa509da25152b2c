// Package metrics exposes engine activity as Prometheus series.
package metrics

import (
	"net/http"
	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tradeengine"

var phases = []engine.Phase{
	engine.PhaseIdle,
	engine.PhaseMarketClosed,
	engine.PhaseScanning,
	engine.PhaseStopped,
}

// Metrics implements engine.Recorder on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	equity        prometheus.Gauge
	cash          prometheus.Gauge
	unrealizedPnL prometheus.Gauge
	drawdown      prometheus.Gauge
	openPositions prometheus.Gauge
	realizedPnL   prometheus.Gauge
	phase         *prometheus.GaugeVec

	signals      *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	tradesClosed *prometheus.CounterVec
}

var _ engine.Recorder = (*Metrics)(nil)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_equity",
			Help:      "Cash plus marked value of open positions",
		}),
		cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_cash",
			Help:      "Uninvested cash",
		}),
		unrealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_unrealized_pnl",
			Help:      "Mark-to-market P&L of open positions",
		}),
		drawdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_drawdown_ratio",
			Help:      "Drawdown from peak equity as a fraction",
		}),
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Number of open positions",
		}),
		realizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_pnl",
			Help:      "Realized P&L of trades closed since start",
		}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_phase",
			Help:      "1 for the current orchestrator phase, 0 otherwise",
		}, []string{"phase"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Signals evaluated by direction",
		}, []string{"direction"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_rejections_total",
			Help:      "Risk decisions that rejected a signal",
		}, []string{"reason"}),
		tradesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_closed_total",
			Help:      "Closed trades by exit reason",
		}, []string{"exit_reason"}),
	}

	m.registry.MustRegister(
		m.equity,
		m.cash,
		m.unrealizedPnL,
		m.drawdown,
		m.openPositions,
		m.realizedPnL,
		m.phase,
		m.signals,
		m.rejections,
		m.tradesClosed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, p := range phases {
		m.phase.WithLabelValues(string(p)).Set(0)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveValuation(v engine.Valuation, openPositions int) {
	m.equity.Set(v.TotalEquity.InexactFloat64())
	m.cash.Set(v.Cash.InexactFloat64())
	m.unrealizedPnL.Set(v.UnrealizedPnL.InexactFloat64())
	m.drawdown.Set(v.DrawdownPct.InexactFloat64())
	m.openPositions.Set(float64(openPositions))
}

func (m *Metrics) SignalSeen(direction types.Direction) {
	m.signals.WithLabelValues(string(direction)).Inc()
}

func (m *Metrics) Rejected(reason types.RejectReason) {
	m.rejections.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) TradeClosed(trade types.TradeRecord) {
	m.tradesClosed.WithLabelValues(string(trade.ExitReason)).Inc()
	m.realizedPnL.Add(trade.RealizedPnL.InexactFloat64())
}

func (m *Metrics) PhaseChanged(phase engine.Phase) {
	for _, p := range phases {
		v := 0.0
		if p == phase {
			v = 1
		}
		m.phase.WithLabelValues(string(p)).Set(v)
	}
}
