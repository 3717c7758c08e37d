// Package strategy contains the rule evaluators. Each evaluator is a pure
// function over the run's immutable inputs: no I/O, no clock reads, no
// randomness. Identical inputs always produce identical proposals.
package strategy

import (
	"math"
	"time"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
	"github.com/pdswan/wheelhouse/internal/util"
)

// Rationale tags attached to proposals and carried through to order refs.
const (
	TagWritePuts       = "tg:write-puts"
	TagWriteCalls      = "tg:write-calls"
	TagRoll            = "tg:roll"
	TagClose           = "tg:close"
	TagRegimeRebalance = "tg:regime-rebalance"
	TagVIXHedge        = "tg:vix-hedge"
	TagCashManagement  = "tg:cash-management"
)

// Inputs is the shared evaluation state, collected once per run. Evaluators
// must treat it as read-only.
type Inputs struct {
	Snapshot         *models.AccountSnapshot
	Positions        map[string][]models.Position
	Quotes           map[string]*models.Quote
	Bars             map[string][]models.Bar
	RecentExecutions []models.Execution
	Now              time.Time
}

// Evaluator is the shape every rule evaluator shares.
type Evaluator func(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError)

// BuyingPower is the deployable capital: net liquidation scaled by the
// configured margin usage, floored to whole dollars.
func BuyingPower(in *Inputs, cfg *config.Config) float64 {
	return math.Floor(in.Snapshot.NetLiquidation * cfg.Account.MarginUsage)
}

// Shares returns the whole-share stock count held for a symbol.
func (in *Inputs) Shares(symbol string) int {
	var total float64
	for _, p := range in.Positions[symbol] {
		if !p.IsOption() {
			total += p.Quantity
		}
	}
	return int(math.Floor(total))
}

// StockAvgCost returns the average cost of the symbol's stock position, or
// zero when none is held.
func (in *Inputs) StockAvgCost(symbol string) float64 {
	for _, p := range in.Positions[symbol] {
		if !p.IsOption() {
			return p.AvgCost
		}
	}
	return 0
}

// ShortOptionCount counts short option contracts of one right.
func (in *Inputs) ShortOptionCount(symbol string, right models.Right) int {
	var total float64
	for _, p := range in.Positions[symbol] {
		if p.IsOption() && p.Right == right && p.Quantity < 0 {
			total -= p.Quantity
		}
	}
	return int(math.Floor(total))
}

// LongOptionCount counts long option contracts of one right.
func (in *Inputs) LongOptionCount(symbol string, right models.Right) int {
	var total float64
	for _, p := range in.Positions[symbol] {
		if p.IsOption() && p.Right == right && p.Quantity > 0 {
			total += p.Quantity
		}
	}
	return int(math.Floor(total))
}

// NetShortOptionCount counts short contracts net of longs when netting is
// enabled, floored at zero.
func (in *Inputs) NetShortOptionCount(symbol string, right models.Right, net bool) int {
	shorts := in.ShortOptionCount(symbol, right)
	if !net {
		return shorts
	}
	n := shorts - in.LongOptionCount(symbol, right)
	if n < 0 {
		return 0
	}
	return n
}

// ShortOptions returns the short option positions of one right.
func (in *Inputs) ShortOptions(symbol string, right models.Right) []models.Position {
	var out []models.Position
	for _, p := range in.Positions[symbol] {
		if p.IsOption() && p.Right == right && p.Quantity < 0 {
			out = append(out, p)
		}
	}
	return out
}

// MarketPrice resolves the usable price for a symbol's quote.
func (in *Inputs) MarketPrice(symbol string) (float64, error) {
	q, ok := in.Quotes[symbol]
	if !ok {
		return 0, &missingQuoteError{symbol: symbol}
	}
	return q.MarketPrice()
}

// Closes extracts the close series from a symbol's bars.
func (in *Inputs) Closes(symbol string) []float64 {
	bars := in.Bars[symbol]
	closes := make([]float64, 0, len(bars))
	for _, b := range bars {
		closes = append(closes, b.Close)
	}
	return closes
}

type missingQuoteError struct {
	symbol string
}

func (e *missingQuoteError) Error() string {
	return "no quote available for " + e.symbol
}

// targetShares is the desired whole-share position implied by the symbol's
// weight at the current price.
func targetShares(in *Inputs, cfg *config.Config, symbol string, price float64) int {
	if price <= 0 {
		return 0
	}
	target := cfg.Weight(symbol) * BuyingPower(in, cfg)
	return int(math.Floor(target / price))
}

// putShortfall computes how many additional puts are needed for a symbol
// (negative means excess short exposure).
func putShortfall(in *Inputs, cfg *config.Config, symbol string, price float64) int {
	netShortPuts := in.NetShortOptionCount(symbol, models.RightPut, cfg.WriteWhen.CalculateNetContracts)
	shortfallShares := targetShares(in, cfg, symbol, price) - in.Shares(symbol) - 100*netShortPuts
	return int(math.Floor(float64(shortfallShares) / 100.0))
}

// hasExcessPuts reports whether a symbol carries more short-put exposure
// than its target allows.
func hasExcessPuts(in *Inputs, cfg *config.Config, symbol string) bool {
	price, err := in.MarketPrice(symbol)
	if err != nil {
		return false
	}
	return putShortfall(in, cfg, symbol, price) < 0
}

// targetCalls computes the covered-call target for a symbol: cover at most
// cap_factor of the held shares while leaving cap_target_floor of the
// target uncovered. excess_only covers only shares above the target.
func targetCalls(cfg *config.Config, symbol string, shares, target int) int {
	if cfg.ExcessOnly(symbol) {
		excess := shares - target
		if excess < 0 {
			return 0
		}
		return excess / 100
	}
	maxCovered := int(math.Floor(float64(shares) * cfg.CapFactor(symbol) / 100.0))
	minUncovered := int(math.Floor(float64(target) * cfg.CapTargetFloor(symbol) / 100.0))
	covered := shares/100 - minUncovered
	if maxCovered < covered {
		covered = maxCovered
	}
	if covered < 0 {
		return 0
	}
	return covered
}

// hasExcessCalls reports whether a symbol carries more short calls than its
// covered-call target.
func hasExcessCalls(in *Inputs, cfg *config.Config, symbol string) bool {
	price, err := in.MarketPrice(symbol)
	if err != nil {
		return false
	}
	shares := in.Shares(symbol)
	shortCalls := in.NetShortOptionCount(symbol, models.RightCall, cfg.WriteWhen.CalculateNetContracts)
	return shortCalls > targetCalls(cfg, symbol, shares, targetShares(in, cfg, symbol, price))
}

// writeGatePasses applies the daily-move and green/red gates for writing
// new contracts. The daily move must reach the configured threshold; sigma
// thresholds take precedence over percentage thresholds.
func writeGatePasses(in *Inputs, cfg *config.Config, symbol string, right models.Right, price float64) bool {
	q, ok := in.Quotes[symbol]
	if !ok || q.Close <= 0 || math.IsNaN(q.Close) {
		return false
	}
	green := price > q.Close
	if !cfg.WriteAllowed(symbol, right, green) {
		return false
	}

	var threshold float64
	if sigma, ok := cfg.WriteThresholdSigma(symbol, right); ok {
		stddev := dailyStdDev(in, cfg, symbol)
		if stddev <= 0 {
			return false
		}
		threshold = util.SigmaWriteThreshold(q.Close, stddev, sigma)
	} else if pct, ok := cfg.WriteThreshold(symbol, right); ok {
		threshold = util.PercentWriteThreshold(q.Close, pct)
	} else {
		return true
	}
	return math.Abs(price-q.Close) >= threshold
}

// targetStrike picks the delta-target strike for a new contract. Without
// usable volatility history the quantile model degenerates to zero; anchor
// on the nearest listed strike at the money instead of proposing nothing.
func targetStrike(in *Inputs, cfg *config.Config, symbol string, price float64, dte int, right models.Right) float64 {
	strike := util.StrikeForDelta(price, dailyStdDev(in, cfg, symbol), dte, cfg.Delta(symbol, right), right == models.RightPut)
	if strike > 0 {
		return strike
	}
	if right == models.RightPut {
		return prevStrikeBelow(price)
	}
	return nextStrikeAbove(price)
}

// dailyStdDev computes the daily log-return standard deviation over the
// configured lookback window.
func dailyStdDev(in *Inputs, cfg *config.Config, symbol string) float64 {
	closes := in.Closes(symbol)
	window := cfg.Constants.DailyStdDevWindow
	if len(closes) > window+1 {
		closes = closes[len(closes)-window-1:]
	}
	return util.LogReturnStdDev(closes)
}
