package strategy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
	"github.com/pdswan/wheelhouse/internal/util"
)

// RegimeComputationError reports that the regime gate could not be computed,
// usually from missing or misaligned price history. The soft rebalance path
// fails closed on it; the hard band does not depend on the gate.
type RegimeComputationError struct {
	Reason string
	Err    error
}

func (e *RegimeComputationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("regime computation failed: %s: %v", e.Reason, e.Err)
	}
	return "regime computation failed: " + e.Reason
}

func (e *RegimeComputationError) Unwrap() error { return e.Err }

// RegimeRebalance drifts managed share positions back toward their target
// weights. Soft-band breaches rebalance only in a choppy, trendless regime
// and outside the cooldown window; hard-band breaches always act. A flow
// pass deploys excess cash (or trims a common overweight) proportionally to
// the remaining gaps.
func RegimeRebalance(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError) {
	rc := &cfg.RegimeRebalance
	if !rc.Enabled || len(rc.Symbols) == 0 {
		return nil, nil
	}

	var (
		actions []models.ProposedAction
		errs    []models.EvalError
	)

	base := weightBase(in, cfg)
	if base <= 0 {
		return nil, []models.EvalError{{Rule: "regime_rebalance", Err: "weight base is not positive"}}
	}

	gatePasses, gateErr := regimeGate(in, cfg)
	if gateErr != nil {
		errs = append(errs, models.EvalError{Rule: "regime_rebalance", Err: gateErr.Error()})
	}
	cooldownOK := cooldownElapsed(in, rc)

	minNotional := rc.FlowTradeMin * base
	rebalanced := make(map[string]bool)

	for _, symbol := range rc.Symbols {
		price, err := in.MarketPrice(symbol)
		if err != nil {
			errs = append(errs, models.EvalError{Symbol: symbol, Rule: "regime_rebalance", Err: err.Error()})
			continue
		}
		target := cfg.Weight(symbol)
		if target <= 0 {
			continue
		}
		current := float64(in.Shares(symbol)) * price / base
		drift := util.RelativeDrift(current, target)

		var fraction float64
		switch {
		case drift >= rc.HardBand:
			fraction = rc.HardBandRebalanceFraction
		case drift >= rc.SoftBand && gatePasses && gateErr == nil && cooldownOK:
			fraction = 1.0
		default:
			continue
		}

		gapShares := int(math.Round((target - current) * base / price * fraction))
		if act, ok := shareTrade(cfg, symbol, gapShares, price, minNotional, base, "band rebalance"); ok {
			actions = append(actions, act)
			rebalanced[symbol] = true
		}
	}

	actions = append(actions, flowTrades(in, cfg, base, minNotional, rebalanced, &errs)...)
	return actions, errs
}

// shareTrade turns a signed share gap into a buy or sell proposal, applying
// direction locks, the global minimum trade size, and the symbol's own
// minimum-size filters for that direction.
func shareTrade(cfg *config.Config, symbol string, gapShares int, price, minNotional, base float64, why string) (models.ProposedAction, bool) {
	notional := math.Abs(float64(gapShares)) * price
	if gapShares == 0 || notional < minNotional {
		return models.ProposedAction{}, false
	}
	if gapShares > 0 && cfg.SellOnlyRebalancing(symbol) {
		return models.ProposedAction{}, false
	}
	if gapShares < 0 && cfg.BuyOnlyRebalancing(symbol) {
		return models.ProposedAction{}, false
	}
	minShares, minAmount, minPercent := cfg.RebalanceMinThresholds(symbol, gapShares > 0)
	if abs := int(math.Abs(float64(gapShares))); abs < minShares {
		return models.ProposedAction{}, false
	}
	if notional < minAmount {
		return models.ProposedAction{}, false
	}
	if minPercent > 0 && notional < minPercent*cfg.Weight(symbol)*base {
		return models.ProposedAction{}, false
	}
	t := models.ActionBuyShares
	if gapShares < 0 {
		t = models.ActionSellShares
		gapShares = -gapShares
	}
	return models.ProposedAction{
		Type:      t,
		Symbol:    symbol,
		Quantity:  float64(gapShares),
		PriceHint: price,
		Rationale: TagRegimeRebalance + " " + why,
	}, true
}

// flowTrades deploys excess cash (or trims a common overweight) across the
// symbols the band pass left alone, proportionally to their gaps and never
// past their targets.
func flowTrades(in *Inputs, cfg *config.Config, base, minNotional float64, skip map[string]bool, errs *[]models.EvalError) []models.ProposedAction {
	rc := &cfg.RegimeRebalance

	type gap struct {
		symbol string
		price  float64
		value  float64 // target value minus current value
	}
	var (
		gaps     []gap
		totalAbs float64
		net      float64
	)
	for _, symbol := range rc.Symbols {
		if skip[symbol] {
			continue
		}
		price, err := in.MarketPrice(symbol)
		if err != nil {
			continue // already reported by the band pass
		}
		g := cfg.Weight(symbol)*base - float64(in.Shares(symbol))*price
		gaps = append(gaps, gap{symbol: symbol, price: price, value: g})
		totalAbs += math.Abs(g)
		net += g
	}
	if totalAbs <= 0 || math.Abs(net) <= rc.FlowImbalanceTau*totalAbs {
		return nil
	}

	var budget float64
	if net > 0 {
		// Common underweight: only deploy cash we actually hold beyond
		// the minimum trade size.
		budget = in.Snapshot.TotalCash
		if budget < minNotional {
			return nil
		}
		if budget > net {
			budget = net
		}
	} else {
		budget = -net
	}

	var actions []models.ProposedAction
	for _, g := range gaps {
		if net > 0 && g.value <= 0 {
			continue
		}
		if net < 0 && g.value >= 0 {
			continue
		}
		share := math.Abs(g.value) / totalAbs
		notional := math.Min(budget*share/(math.Abs(net)/totalAbs), math.Abs(g.value))
		gapShares := int(math.Floor(notional / g.price))
		if g.value < 0 {
			gapShares = -gapShares
		}
		if act, ok := shareTrade(cfg, g.symbol, gapShares, g.price, minNotional, base, "flow"); ok {
			actions = append(actions, act)
		}
	}
	return actions
}

// weightBase resolves the rebalance denominator per weight_base.
func weightBase(in *Inputs, cfg *config.Config) float64 {
	switch cfg.RegimeRebalance.WeightBase {
	case config.WeightBaseBuyingPower:
		return BuyingPower(in, cfg)
	case config.WeightBaseManagedStocks:
		var total float64
		for _, symbol := range cfg.RegimeRebalance.Symbols {
			for _, p := range in.Positions[symbol] {
				if !p.IsOption() {
					total += p.MarketValue
				}
			}
		}
		return total
	default: // net_liq_ex_options
		total := in.Snapshot.NetLiquidation
		for _, positions := range in.Positions {
			for _, p := range positions {
				if p.IsOption() {
					total -= p.MarketValue
				}
			}
		}
		return total
	}
}

// regimeGate computes the choppiness / efficiency gate over the weighted
// proxy series of the regime symbols.
func regimeGate(in *Inputs, cfg *config.Config) (bool, error) {
	rc := &cfg.RegimeRebalance

	closes := make(map[string][]float64, len(rc.Symbols))
	weights := make(map[string]float64, len(rc.Symbols))
	for _, symbol := range rc.Symbols {
		series := in.Closes(symbol)
		if len(series) < rc.LookbackDays {
			return false, &RegimeComputationError{Reason: fmt.Sprintf("%s has %d of %d lookback closes", symbol, len(series), rc.LookbackDays)}
		}
		closes[symbol] = series[len(series)-rc.LookbackDays:]

		// Invested value weights; fall back to target weights when the
		// book holds nothing yet.
		w := 0.0
		if price, err := in.MarketPrice(symbol); err == nil {
			w = float64(in.Shares(symbol)) * price
		}
		if w <= 0 {
			w = cfg.Weight(symbol)
		}
		weights[symbol] = w
	}

	proxy, err := util.ProxySeries(closes, weights)
	if err != nil {
		return false, &RegimeComputationError{Reason: "proxy series", Err: err}
	}
	chop := util.Choppiness(proxy, rc.Eps)
	eff := util.EfficiencyRatio(proxy, rc.Eps)
	return chop >= rc.ChoppinessMin && eff <= rc.EfficiencyMax, nil
}

// cooldownElapsed checks the exchange sessions since the last rebalance
// execution. No prior tagged execution means the cooldown passes.
func cooldownElapsed(in *Inputs, rc *config.RegimeRebalanceConfig) bool {
	var last time.Time
	for _, ex := range in.RecentExecutions {
		if !strings.HasPrefix(ex.OrderRef, TagRegimeRebalance) {
			continue
		}
		if !containsSymbol(rc.Symbols, ex.Symbol) {
			continue
		}
		if ex.Time.After(last) {
			last = ex.Time
		}
	}
	if last.IsZero() {
		return true
	}
	return weekdaysBetween(last, in.Now) >= *rc.CooldownDays
}

// weekdaysBetween counts exchange sessions strictly after from, up to and
// including to's date.
func weekdaysBetween(from, to time.Time) int {
	day := from.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	end := to.UTC().Truncate(24 * time.Hour)
	sessions := 0
	for !day.After(end) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			sessions++
		}
		day = day.AddDate(0, 0, 1)
	}
	return sessions
}

func containsSymbol(symbols []string, s string) bool {
	for _, sym := range symbols {
		if sym == s {
			return true
		}
	}
	return false
}
