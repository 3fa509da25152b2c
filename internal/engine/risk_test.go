package engine

import (
	"testing"
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

func TestRiskEvaluator_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		view       types.PortfolioView
		symbol     string
		signal     types.Signal
		wantAllow  bool
		wantReason types.RejectReason
		wantQty    int64
		wantCost   string
		wantStop   string
		wantTarget string
	}{
		{
			name:       "sizes a buy from the stop distance",
			view:       newView("100000", "100000"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionBuy, "100", "98", "104"),
			wantAllow:  true,
			wantQty:    500,
			wantCost:   "50100",
			wantStop:   "98",
			wantTarget: "104",
		},
		{
			name:       "hold is a no-op",
			view:       newView("100000", "100000"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionHold, "0", "0", "0"),
			wantReason: types.RejectNoOp,
		},
		{
			name:       "second buy for an open symbol",
			view:       newView("100000", "100000", "AAA"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionBuy, "100", "98", "0"),
			wantReason: types.RejectDuplicatePosition,
		},
		{
			name:       "duplicate is checked before the position limit",
			view:       newView("100000", "100000", "AAA", "BBB", "CCC", "DDD", "EEE"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionBuy, "100", "98", "0"),
			wantReason: types.RejectDuplicatePosition,
		},
		{
			name:       "position limit reached",
			view:       newView("100000", "100000", "AAA", "BBB", "CCC", "DDD", "EEE"),
			symbol:     "FFF",
			signal:     newSignal("FFF", types.DirectionBuy, "100", "98", "0"),
			wantReason: types.RejectPositionLimit,
		},
		{
			name:       "stop at the price gives no size",
			view:       newView("100000", "100000"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionBuy, "100", "100", "0"),
			wantReason: types.RejectNonPositiveSize,
		},
		{
			name:       "risk budget smaller than one share of risk",
			view:       newView("100000", "100"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionBuy, "100", "98", "0"),
			wantReason: types.RejectNonPositiveSize,
		},
		{
			name:       "cost beyond the cash reserve",
			view:       newView("60000", "100000"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionBuy, "100", "98", "0"),
			wantReason: types.RejectInsufficientCapital,
		},
		{
			name:       "sell without a position",
			view:       newView("100000", "100000"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionSell, "100", "0", "0"),
			wantReason: types.RejectNothingToSell,
		},
		{
			name:      "sell closes the whole position",
			view:      newView("100000", "100000", "AAA"),
			symbol:    "AAA",
			signal:    newSignal("AAA", types.DirectionSell, "101", "0", "0"),
			wantAllow: true,
			wantQty:   10,
		},
		{
			name:       "missing brackets fall back to defaults",
			view:       newView("100000", "100000"),
			symbol:     "AAA",
			signal:     newSignal("AAA", types.DirectionBuy, "100", "0", "0"),
			wantAllow:  true,
			wantQty:    500,
			wantCost:   "50100",
			wantStop:   "98",
			wantTarget: "103",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRiskEvaluator(testRiskConfig())
			got := r.Evaluate(tt.view, tt.symbol, tt.signal)

			if got.Allowed() != tt.wantAllow {
				t.Fatalf("Evaluate() verdict = %v (%s), want allow %v", got.Verdict, got.Reason, tt.wantAllow)
			}
			if !tt.wantAllow {
				if got.Reason != tt.wantReason {
					t.Errorf("Evaluate() reason = %q, want %q", got.Reason, tt.wantReason)
				}
				return
			}
			if got.Quantity != tt.wantQty {
				t.Errorf("Evaluate() qty = %d, want %d", got.Quantity, tt.wantQty)
			}
			if tt.wantCost != "" && !got.EstimatedCost.Equal(decimal.RequireFromString(tt.wantCost)) {
				t.Errorf("Evaluate() cost = %s, want %s", got.EstimatedCost, tt.wantCost)
			}
			if tt.wantStop != "" && !got.StopLoss.Equal(decimal.RequireFromString(tt.wantStop)) {
				t.Errorf("Evaluate() stop = %s, want %s", got.StopLoss, tt.wantStop)
			}
			if tt.wantTarget != "" && !got.TakeProfit.Equal(decimal.RequireFromString(tt.wantTarget)) {
				t.Errorf("Evaluate() target = %s, want %s", got.TakeProfit, tt.wantTarget)
			}
		})
	}
}

func TestRiskEvaluator_SizingHintCapsShares(t *testing.T) {
	r := NewRiskEvaluator(testRiskConfig())
	signal := newSignal("AAA", types.DirectionBuy, "100", "98", "0")
	signal.SizingHint = 120

	got := r.Evaluate(newView("100000", "100000"), "AAA", signal)
	if !got.Allowed() || got.Quantity != 120 {
		t.Fatalf("Evaluate() = %+v, want 120 shares allowed", got)
	}
}

func TestRiskEvaluator_CheckExit(t *testing.T) {
	pos := types.Position{
		Symbol:     "AAA",
		Quantity:   10,
		EntryPrice: d("100"),
		StopLoss:   d("98"),
		TakeProfit: d("103"),
	}
	tests := []struct {
		name       string
		pos        types.Position
		price      string
		wantReason types.ExitReason
		wantHit    bool
	}{
		{"between stop and target", pos, "100", "", false},
		{"at the stop", pos, "98", types.ExitStopLoss, true},
		{"below the stop", pos, "97.5", types.ExitStopLoss, true},
		{"at the target", pos, "103", types.ExitTakeProfit, true},
		{"unset brackets never fire", types.Position{EntryPrice: d("100")}, "1", "", false},
	}
	r := NewRiskEvaluator(testRiskConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, hit := r.CheckExit(tt.pos, d(tt.price))
			if hit != tt.wantHit || reason != tt.wantReason {
				t.Errorf("CheckExit() = (%q, %v), want (%q, %v)", reason, hit, tt.wantReason, tt.wantHit)
			}
		})
	}
}

func TestRiskEvaluator_BuyingHalted(t *testing.T) {
	disabled := NewRiskEvaluator(testRiskConfig())
	if disabled.BuyingHalted(d("0.5")) {
		t.Errorf("BuyingHalted() with no limit = true, want false")
	}
	limited := NewRiskEvaluator(testRiskConfig().WithMaxDrawdown(d("0.1")))
	if limited.BuyingHalted(d("0.09")) {
		t.Errorf("BuyingHalted(0.09) = true, want false")
	}
	if !limited.BuyingHalted(d("0.1")) {
		t.Errorf("BuyingHalted(0.1) = false, want true")
	}
}

func testRiskConfig() *RiskConfig {
	return NewRiskConfig(5, d("0.01"), d("0.002"), d("0.20"))
}

func newView(cash, equity string, symbols ...string) types.PortfolioView {
	view := types.PortfolioView{
		Cash:        d(cash),
		TotalEquity: d(equity),
		Positions:   make(map[string]types.PositionSnapshot),
	}
	for _, sym := range symbols {
		view.Positions[sym] = types.PositionSnapshot{Symbol: sym, Quantity: 10, AvgEntryPrice: d("100")}
	}
	return view
}

func newSignal(symbol string, dir types.Direction, price, stop, target string) types.Signal {
	return types.Signal{
		Symbol:          symbol,
		Direction:       dir,
		Price:           d(price),
		SuggestedStop:   d(stop),
		SuggestedTarget: d(target),
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
