package engine

import (
	"time"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

type PortfolioConfig struct {
	initialCash decimal.Decimal
}

func NewPortfolioConfig(initialCash decimal.Decimal) *PortfolioConfig {
	return &PortfolioConfig{
		initialCash: initialCash,
	}
}

type RiskConfig struct {
	maxPositions   int
	riskPerTrade   decimal.Decimal
	costRate       decimal.Decimal
	cashReserve    decimal.Decimal
	defaultStop    decimal.Decimal
	defaultTarget  decimal.Decimal
	maxDrawdownPct decimal.Decimal
}

// NewRiskConfig takes fractions (0.01 = 1%) for every rate.
func NewRiskConfig(maxPositions int, riskPerTrade, costRate, cashReserve decimal.Decimal) *RiskConfig {
	return &RiskConfig{
		maxPositions:  maxPositions,
		riskPerTrade:  riskPerTrade,
		costRate:      costRate,
		cashReserve:   cashReserve,
		defaultStop:   decimal.RequireFromString("0.02"),
		defaultTarget: decimal.RequireFromString("0.03"),
	}
}

// WithDefaultBrackets sets the stop/target distance used when a BUY signal
// carries none.
func (c *RiskConfig) WithDefaultBrackets(stopPct, targetPct decimal.Decimal) *RiskConfig {
	c.defaultStop = stopPct
	c.defaultTarget = targetPct
	return c
}

// WithMaxDrawdown halts new entries once drawdown reaches pct. Zero disables.
func (c *RiskConfig) WithMaxDrawdown(pct decimal.Decimal) *RiskConfig {
	c.maxDrawdownPct = pct
	return c
}

func (c *RiskConfig) CostRate() decimal.Decimal {
	return c.costRate
}

type TrailingConfig struct {
	enabled       bool
	activationPct decimal.Decimal
	trailPct      decimal.Decimal
}

func NewTrailingConfig(enabled bool, activationPct, trailPct decimal.Decimal) *TrailingConfig {
	return &TrailingConfig{
		enabled:       enabled,
		activationPct: activationPct,
		trailPct:      trailPct,
	}
}

type ExecutionConfig struct {
	interval  types.Interval
	watchlist []string
}

func NewExecutionConfig(interval types.Interval, watchlist []string) *ExecutionConfig {
	return &ExecutionConfig{
		interval:  interval,
		watchlist: watchlist,
	}
}

type ScheduleConfig struct {
	location         *time.Location
	open             time.Duration
	close            time.Duration
	days             map[time.Weekday]bool
	analysisInterval time.Duration
	tickInterval     time.Duration
	closedInterval   time.Duration
	flattenAtClose   bool
}

// NewScheduleConfig describes the trading session. open and close are offsets
// from local midnight in loc.
func NewScheduleConfig(loc *time.Location, open, close time.Duration, days []time.Weekday) *ScheduleConfig {
	if loc == nil {
		loc = time.UTC
	}
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return &ScheduleConfig{
		location:         loc,
		open:             open,
		close:            close,
		days:             set,
		analysisInterval: 15 * time.Minute,
		tickInterval:     30 * time.Second,
		closedInterval:   time.Minute,
	}
}

func (s *ScheduleConfig) WithIntervals(analysis, tick, closed time.Duration) *ScheduleConfig {
	s.analysisInterval = analysis
	s.tickInterval = tick
	s.closedInterval = closed
	return s
}

// WithFlattenAtClose closes every position when the session ends.
func (s *ScheduleConfig) WithFlattenAtClose(flatten bool) *ScheduleConfig {
	s.flattenAtClose = flatten
	return s
}

// IsOpen reports whether t falls inside the session, both ends inclusive.
func (s *ScheduleConfig) IsOpen(t time.Time) bool {
	local := t.In(s.location)
	if !s.days[local.Weekday()] {
		return false
	}
	offset := local.Sub(s.SessionDay(t))
	return offset >= s.open && offset <= s.close
}

// SessionDay is local midnight of the day t belongs to.
func (s *ScheduleConfig) SessionDay(t time.Time) time.Time {
	local := t.In(s.location)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.location)
}

func (s *ScheduleConfig) Location() *time.Location {
	return s.location
}

type ReportingConfig struct {
	dir         string
	printTrades bool
}

func NewReportingConfig(dir string, printTrades bool) *ReportingConfig {
	return &ReportingConfig{
		dir:         dir,
		printTrades: printTrades,
	}
}
