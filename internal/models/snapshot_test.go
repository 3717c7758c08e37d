package models

import (
	"math"
	"testing"
)

func TestQuoteMarketPrice(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name     string
		quote    Quote
		expected float64
		wantErr  bool
	}{
		{
			name:     "midpoint preferred",
			quote:    Quote{Symbol: "SPY", Bid: 99, Ask: 101, Last: 100.5, Close: 98},
			expected: 100,
		},
		{
			name:     "falls back to last",
			quote:    Quote{Symbol: "SPY", Bid: nan, Ask: 101, Last: 100.5, Close: 98},
			expected: 100.5,
		},
		{
			name:     "falls back to close",
			quote:    Quote{Symbol: "SPY", Bid: nan, Ask: nan, Last: nan, Close: 98},
			expected: 98,
		},
		{
			name:    "nothing usable",
			quote:   Quote{Symbol: "SPY", Bid: nan, Ask: nan, Last: nan, Close: nan},
			wantErr: true,
		},
		{
			name:    "zeros are not prices",
			quote:   Quote{Symbol: "SPY", Bid: 0, Ask: 0, Last: 0, Close: 0},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.quote.MarketPrice()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("MarketPrice() = %v, expected error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("MarketPrice() unexpected error: %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-10 {
				t.Errorf("MarketPrice() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestActionPriorityOrdering(t *testing.T) {
	closeAct := ProposedAction{Type: ActionClose}
	roll := ProposedAction{Type: ActionRoll}
	sellHedge := ProposedAction{Type: ActionSellHedge}
	sweepSell := ProposedAction{Type: ActionCashSweep, Side: SideSell}
	shares := ProposedAction{Type: ActionBuyShares}
	writePut := ProposedAction{Type: ActionWritePut}
	sweepBuy := ProposedAction{Type: ActionCashSweep, Side: SideBuy}

	ordered := []ProposedAction{closeAct, roll, sellHedge, sweepSell, shares, writePut, sweepBuy}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Priority() >= ordered[i].Priority() {
			t.Errorf("expected %s to outrank %s (%d vs %d)",
				ordered[i-1].Type, ordered[i].Type, ordered[i-1].Priority(), ordered[i].Priority())
		}
	}
}

func TestOpensContracts(t *testing.T) {
	opening := []ActionType{ActionWritePut, ActionWriteCall, ActionBuyHedge}
	for _, typ := range opening {
		a := ProposedAction{Type: typ}
		if !a.OpensContracts() {
			t.Errorf("%s should count against the new-contract caps", typ)
		}
	}
	nonOpening := []ActionType{ActionClose, ActionRoll, ActionSellHedge, ActionBuyShares, ActionCashSweep}
	for _, typ := range nonOpening {
		a := ProposedAction{Type: typ}
		if a.OpensContracts() {
			t.Errorf("%s should not count against the new-contract caps", typ)
		}
	}
}
