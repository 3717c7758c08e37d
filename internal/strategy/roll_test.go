package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdswan/wheelhouse/internal/models"
)

// shortPut builds a short put position expiring dteDays from the test clock.
func shortPut(now time.Time, strike, premium, pnl float64, dteDays int) models.Position {
	avgCost := premium * models.SharesPerContract
	return models.Position{
		Symbol:        "SPY",
		Kind:          models.KindOption,
		Right:         models.RightPut,
		Quantity:      -1,
		Strike:        strike,
		Expiry:        now.AddDate(0, 0, dteDays),
		AvgCost:       avgCost,
		MarketPrice:   premium * (1 - pnl),
		UnrealizedPnL: pnl * avgCost,
	}
}

func TestRollTriggersNearExpiry(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.5, 10)}

	actions, errs := Roll(in, cfg)
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, models.ActionRoll, a.Type)
	assert.Equal(t, 290.0, a.OldStrike)
	assert.Equal(t, 1.0, a.Quantity)
}

func TestRollSkipsFarExpiryWithoutPnl(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	// 40 DTE, modest profit: neither trigger fires.
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.5, 40)}

	actions, _ := Roll(in, cfg)
	assert.Empty(t, actions)
}

func TestRollTriggersOnPnlAlone(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	// Keep close_at_pnl above the roll pnl trigger so the roller owns it.
	closeAt := 0.99
	cfg.RollWhen.CloseAtPnl = &closeAt
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.95, 40)}

	actions, _ := Roll(in, cfg)
	require.Len(t, actions, 1)
}

func TestRollSkipsITMPutByDefault(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 280)
	// Put struck above the market is ITM; default config leaves it alone.
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, -0.5, 10)}

	actions, errs := Roll(in, cfg)
	assert.Empty(t, errs)
	assert.Empty(t, actions)
}

func TestRollITMPutNeverRaisesStrike(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	cfg.RollWhen.Puts.ITM = true
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 280)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.1, 10)}

	actions, _ := Roll(in, cfg)
	require.Len(t, actions, 1)
	assert.LessOrEqual(t, actions[0].Strike, 290.0)
}

func TestRollPutStrikeCappedByCredit(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	pos := shortPut(in.Now, 250, 2.0, 0.5, 10)
	in.Positions["SPY"] = []models.Position{pos}

	actions, _ := Roll(in, cfg)
	require.Len(t, actions, 1)
	// Old strike plus the realized per-share credit bounds the new strike.
	credit := pos.AvgCost/models.SharesPerContract - pos.MarketPrice
	assert.LessOrEqual(t, actions[0].Strike, 250.0+credit)
}

func TestRollMaxDTENeverRolls(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	max := 30
	cfg.RollWhen.MaxDTE = &max
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.95, 40)}

	actions, _ := Roll(in, cfg)
	assert.Empty(t, actions)
}

func TestRollLeavesCloseCandidatesToCloser(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	closeAt := 0.8
	cfg.RollWhen.CloseAtPnl = &closeAt
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.9, 10)}

	rollActions, _ := Roll(in, cfg)
	assert.Empty(t, rollActions)

	closeActions, _ := Close(in, cfg)
	require.Len(t, closeActions, 1)
	assert.Equal(t, models.ActionClose, closeActions[0].Type)
	assert.Equal(t, 1.0, closeActions[0].Quantity)
}

func TestRollEarlyRollBudgetedLikeNewWrite(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	closeAt := 0.99
	cfg.RollWhen.CloseAtPnl = &closeAt
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	pos := shortPut(in.Now, 290, 2.0, 0.95, 40)
	pos.Quantity = -5
	pos.UnrealizedPnL = 0.95 * pos.AvgCost * 5
	in.Positions["SPY"] = []models.Position{pos}

	actions, _ := Roll(in, cfg)
	require.Len(t, actions, 1)
	// Profit-triggered at 40 DTE: the reopened quantity draws on the same
	// new-contract budget as a fresh write.
	assert.Equal(t, 1.0, actions[0].Quantity)
}

func TestRollNearExpiryKeepsFullQuantity(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	pos := shortPut(in.Now, 290, 2.0, 0.5, 10)
	pos.Quantity = -5
	pos.UnrealizedPnL = 0.5 * pos.AvgCost * 5
	in.Positions["SPY"] = []models.Position{pos}

	actions, _ := Roll(in, cfg)
	require.Len(t, actions, 1)
	assert.Equal(t, 5.0, actions[0].Quantity)
}

func TestCloseSkipsITMPut(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	closeAt := 0.8
	cfg.RollWhen.CloseAtPnl = &closeAt
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 280)
	// Profit past the threshold, but the put is struck above the market:
	// ITM positions ride to expiry by default.
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.95, 10)}

	actions, errs := Close(in, cfg)
	assert.Empty(t, errs)
	assert.Empty(t, actions)
}

func TestCloseITMPutWithOptIn(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	closeAt := 0.8
	cfg.RollWhen.CloseAtPnl = &closeAt
	cfg.RollWhen.Puts.ITM = true
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 280)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.95, 10)}

	actions, _ := Close(in, cfg)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionClose, actions[0].Type)
}

func TestCloseMissingQuoteRecordsError(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	closeAt := 0.8
	cfg.RollWhen.CloseAtPnl = &closeAt
	in := testInputs(100_000)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.95, 10)}

	actions, errs := Close(in, cfg)
	assert.Empty(t, actions)
	require.Len(t, errs, 1)
	assert.Equal(t, "SPY", errs[0].Symbol)
}

func TestCloseDisabledByZeroThreshold(t *testing.T) {
	cfg := testConfig(t, map[string]float64{"SPY": 1.0}, []string{"SPY"})
	zero := 0.0
	cfg.RollWhen.CloseAtPnl = &zero
	in := testInputs(100_000)
	in.Quotes["SPY"] = redQuote("SPY", 300)
	in.Positions["SPY"] = []models.Position{shortPut(in.Now, 290, 2.0, 0.99, 10)}

	actions, _ := Close(in, cfg)
	assert.Empty(t, actions)
}
