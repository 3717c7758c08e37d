package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdswan/wheelhouse/internal/models"
)

func TestWriteCallsCoversHeldShares(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	// Calls default to green-day writing only.
	in.Quotes["SPY"] = greenQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{
		{Symbol: "SPY", Kind: models.KindEquity, Quantity: 300, AvgCost: 280},
	}

	actions, errs := WriteCalls(in, cfg)
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, models.ActionWriteCall, a.Type)
	assert.Equal(t, models.RightCall, a.Right)
	// 300 shares, target 333, cap_factor 1.0: all three lots coverable,
	// but the per-symbol new-contract cap limits the write.
	assert.GreaterOrEqual(t, a.Quantity, 1.0)
	assert.LessOrEqual(t, a.Quantity, 3.0)
	// Strike never below cost basis or market.
	assert.GreaterOrEqual(t, a.Strike, 300.0)
}

func TestWriteCallsStrikeFloorUsesCostBasis(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = greenQuote("SPY", 300)
	// Bought way above the market: never sell calls below the basis.
	in.Positions["SPY"] = []models.Position{
		{Symbol: "SPY", Kind: models.KindEquity, Quantity: 300, AvgCost: 350},
	}

	actions, _ := WriteCalls(in, cfg)
	require.Len(t, actions, 1)
	assert.GreaterOrEqual(t, actions[0].Strike, 350.0)
}

func TestWriteCallsSkipsWithoutFullLot(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = greenQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{
		{Symbol: "SPY", Kind: models.KindEquity, Quantity: 99, AvgCost: 280},
	}

	actions, _ := WriteCalls(in, cfg)
	assert.Empty(t, actions)
}

func TestWriteCallsExcessOnly(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 0.2}, []string{"SPY"})
	cfg.WriteWhen.Calls.ExcessOnly = true
	pct := 1.0
	cfg.Target.MaximumNewContractsPercent = &pct
	in := testInputs(100_000)
	in.Quotes["SPY"] = greenQuote("SPY", 300)
	// Target is 66 shares; 300 held leaves 234 excess: two lots.
	in.Positions["SPY"] = []models.Position{
		{Symbol: "SPY", Kind: models.KindEquity, Quantity: 300, AvgCost: 280},
	}

	actions, _ := WriteCalls(in, cfg)
	require.Len(t, actions, 1)
	assert.Equal(t, 2.0, actions[0].Quantity)
}

func TestWriteCallsAlreadyCovered(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = greenQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{
		{Symbol: "SPY", Kind: models.KindEquity, Quantity: 300, AvgCost: 280},
		{Symbol: "SPY", Kind: models.KindOption, Right: models.RightCall, Quantity: -3, Strike: 310},
	}

	actions, _ := WriteCalls(in, cfg)
	assert.Empty(t, actions)
}
