package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyReport summarizes one trading session.
type DailyReport struct {
	Date                 string          `json:"date"`
	GeneratedAt          time.Time       `json:"generated_at"`
	Final                bool            `json:"final"`
	PortfolioValue       decimal.Decimal `json:"portfolio_value"`
	Cash                 decimal.Decimal `json:"cash"`
	Positions            int             `json:"positions"`
	DailyPnL             decimal.Decimal `json:"daily_pnl"`
	ReturnPct            decimal.Decimal `json:"return_pct"`
	DrawdownPct          decimal.Decimal `json:"drawdown_pct"`
	TotalSignals         int             `json:"total_signals"`
	BuySignals           int             `json:"buy_signals"`
	SellSignals          int             `json:"sell_signals"`
	SuccessfulTrades     int             `json:"successful_trades"`
	ClosedTrades         int             `json:"closed_trades"`
	WinRate              decimal.Decimal `json:"win_rate"`
	AvgWin               decimal.Decimal `json:"avg_win"`
	AvgLoss              decimal.Decimal `json:"avg_loss"`
	ProfitFactor         decimal.Decimal `json:"profit_factor"`
	MaxConsecutiveLosses int             `json:"max_consecutive_losses"`
	BestTrade            decimal.Decimal `json:"best_trade"`
	WorstTrade           decimal.Decimal `json:"worst_trade"`
	MaxDrawdown          decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPct       decimal.Decimal `json:"max_drawdown_pct"`
	MarketContext        MarketContext   `json:"market_context"`
}
