package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
)

func regimeConfig(t *testing.T) *config.Config {
	cfg := testConfig(t, map[string]float64{"SPY": 0.6, "TLT": 0.4}, []string{"SPY", "TLT"})
	cfg.RegimeRebalance = config.RegimeRebalanceConfig{
		Enabled:    true,
		Symbols:    []string{"SPY", "TLT"},
		SharesOnly: true,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

// choppyBars oscillates around a level: high choppiness, low efficiency.
func choppyBars(n int, level float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		c := level
		if i%2 == 1 {
			c = level * 1.02
		}
		bars[i] = models.Bar{Close: c}
	}
	return bars
}

// trendingBars climbs steadily: low choppiness, high efficiency.
func trendingBars(n int, start float64) []models.Bar {
	bars := make([]models.Bar, n)
	c := start
	for i := range bars {
		bars[i] = models.Bar{Close: c}
		c *= 1.01
	}
	return bars
}

func regimeInputs(cfg *config.Config, spyShares, tltShares float64, bars func(int, float64) []models.Bar) *Inputs {
	in := testInputs(100_000)
	// Keep spare cash below the minimum flow trade so only the band
	// passes act in these scenarios.
	in.Snapshot.TotalCash = 1_000
	in.Quotes["SPY"] = greenQuote("SPY", 100)
	in.Quotes["TLT"] = greenQuote("TLT", 100)
	in.Positions["SPY"] = []models.Position{{Symbol: "SPY", Kind: models.KindEquity, Quantity: spyShares, MarketValue: spyShares * 100}}
	in.Positions["TLT"] = []models.Position{{Symbol: "TLT", Kind: models.KindEquity, Quantity: tltShares, MarketValue: tltShares * 100}}
	n := cfg.RegimeRebalance.LookbackDays
	in.Bars["SPY"] = bars(n, 100)
	in.Bars["TLT"] = bars(n, 100)
	return in
}

func TestRegimeSoftRebalanceInChoppyMarket(t *testing.T) {
	cfg := regimeConfig(t)
	// Weight base is net liq (no options): 100k. Targets 600/400 shares;
	// held 500/400 puts SPY ~17% under target weight.
	in := regimeInputs(cfg, 500, 400, choppyBars)

	actions, errs := RegimeRebalance(in, cfg)
	require.Empty(t, errs)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionBuyShares, actions[0].Type)
	assert.Equal(t, "SPY", actions[0].Symbol)
	assert.InDelta(t, 100, actions[0].Quantity, 5)
}

func TestRegimeMinShareThresholdFiltersSmallBuys(t *testing.T) {
	cfg := regimeConfig(t)
	minShares := 500
	cfg.Symbols.BySymbol["SPY"].BuyOnlyMinThresholdShares = &minShares
	// Same choppy scenario that otherwise buys ~100 SPY.
	in := regimeInputs(cfg, 500, 400, choppyBars)

	actions, errs := RegimeRebalance(in, cfg)
	assert.Empty(t, errs)
	assert.Empty(t, actions)
}

func TestRegimeMinAmountThresholdFiltersSmallBuys(t *testing.T) {
	cfg := regimeConfig(t)
	minAmount := 50_000.0
	cfg.Symbols.BySymbol["SPY"].BuyOnlyMinThresholdAmount = &minAmount
	in := regimeInputs(cfg, 500, 400, choppyBars)

	actions, errs := RegimeRebalance(in, cfg)
	assert.Empty(t, errs)
	assert.Empty(t, actions)
}

func TestRegimeMinPercentThresholdFiltersSmallBuys(t *testing.T) {
	cfg := regimeConfig(t)
	minPercent := 0.5
	cfg.Symbols.BySymbol["SPY"].BuyOnlyMinThresholdPercent = &minPercent
	// ~100 shares at 100 is 10k notional, under half of SPY's 60k target.
	in := regimeInputs(cfg, 500, 400, choppyBars)

	actions, errs := RegimeRebalance(in, cfg)
	assert.Empty(t, errs)
	assert.Empty(t, actions)
}

func TestRegimeSellThresholdLeavesBuysAlone(t *testing.T) {
	cfg := regimeConfig(t)
	minShares := 500
	cfg.Symbols.BySymbol["SPY"].SellOnlyMinThresholdShares = &minShares
	in := regimeInputs(cfg, 500, 400, choppyBars)

	actions, errs := RegimeRebalance(in, cfg)
	require.Empty(t, errs)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionBuyShares, actions[0].Type)
}

func TestRegimeSoftSuppressedInTrendingMarket(t *testing.T) {
	cfg := regimeConfig(t)
	in := regimeInputs(cfg, 500, 400, trendingBars)

	actions, errs := RegimeRebalance(in, cfg)
	assert.Empty(t, errs)
	assert.Empty(t, actions)
}

func TestRegimeHardBandIgnoresGate(t *testing.T) {
	cfg := regimeConfig(t)
	// SPY at 25% of its 60% target: far past the hard band even with a
	// trending (gate-failing) market.
	in := regimeInputs(cfg, 150, 400, trendingBars)

	actions, errs := RegimeRebalance(in, cfg)
	assert.Empty(t, errs)
	require.NotEmpty(t, actions)
	assert.Equal(t, models.ActionBuyShares, actions[0].Type)
	assert.Equal(t, "SPY", actions[0].Symbol)
}

func TestRegimeInsufficientHistoryFailsClosed(t *testing.T) {
	cfg := regimeConfig(t)
	in := regimeInputs(cfg, 500, 400, choppyBars)
	in.Bars["SPY"] = in.Bars["SPY"][:5]

	actions, errs := RegimeRebalance(in, cfg)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Err, "regime computation failed")
	assert.Empty(t, actions)
}

func TestRegimeHardBandSurvivesMissingHistory(t *testing.T) {
	cfg := regimeConfig(t)
	in := regimeInputs(cfg, 150, 400, choppyBars)
	in.Bars["SPY"] = nil

	actions, errs := RegimeRebalance(in, cfg)
	assert.NotEmpty(t, errs)
	require.NotEmpty(t, actions)
	assert.Equal(t, "SPY", actions[0].Symbol)
}

func TestRegimeCooldownBlocksSoftRebalance(t *testing.T) {
	cfg := regimeConfig(t)
	in := regimeInputs(cfg, 500, 400, choppyBars)
	in.RecentExecutions = []models.Execution{{
		OrderRef: TagRegimeRebalance + " band rebalance",
		Symbol:   "SPY",
		Time:     in.Now.AddDate(0, 0, -1),
	}}

	actions, _ := RegimeRebalance(in, cfg)
	assert.Empty(t, actions)
}

func TestRegimeCooldownPassesWithNoHistory(t *testing.T) {
	cfg := regimeConfig(t)
	in := regimeInputs(cfg, 500, 400, choppyBars)
	in.RecentExecutions = nil

	actions, _ := RegimeRebalance(in, cfg)
	assert.NotEmpty(t, actions)
}

func TestRegimeCooldownPassesAfterWindow(t *testing.T) {
	cfg := regimeConfig(t)
	in := regimeInputs(cfg, 500, 400, choppyBars)
	in.RecentExecutions = []models.Execution{{
		OrderRef: TagRegimeRebalance,
		Symbol:   "SPY",
		Time:     in.Now.AddDate(0, 0, -14),
	}}

	actions, _ := RegimeRebalance(in, cfg)
	assert.NotEmpty(t, actions)
}

func TestRegimeBuyOnlyBlocksSells(t *testing.T) {
	cfg := regimeConfig(t)
	on := true
	cfg.Symbols.BySymbol["SPY"].BuyOnlyRebalancing = &on
	// SPY far overweight: without the flag this would sell.
	in := regimeInputs(cfg, 950, 50, choppyBars)

	actions, _ := RegimeRebalance(in, cfg)
	for _, a := range actions {
		if a.Symbol == "SPY" {
			assert.NotEqual(t, models.ActionSellShares, a.Type)
		}
	}
}

func TestWeekdaysBetween(t *testing.T) {
	// Monday to the following Monday spans five sessions.
	mon := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, weekdaysBetween(mon, mon.AddDate(0, 0, 7)))
	assert.Equal(t, 0, weekdaysBetween(mon, mon))
}
