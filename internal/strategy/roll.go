package strategy

import (
	"fmt"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
	"github.com/pdswan/wheelhouse/internal/util"
)

// Roll proposes rolling short options approaching expiry or carrying enough
// profit. Only short positions are considered. Positions that qualify for an
// outright close are left to the closer.
func Roll(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError) {
	var (
		actions []models.ProposedAction
		errs    []models.EvalError
	)
	bp := BuyingPower(in, cfg)

	for _, symbol := range cfg.Symbols.Order {
		if cfg.NoTrading(symbol) {
			continue
		}
		price, err := in.MarketPrice(symbol)
		if err != nil {
			errs = append(errs, models.EvalError{Symbol: symbol, Rule: "roll_positions", Err: err.Error()})
			continue
		}

		for _, right := range []models.Right{models.RightPut, models.RightCall} {
			for _, p := range in.ShortOptions(symbol, right) {
				pos := p
				if closeable(cfg, &pos, price) {
					continue
				}
				if !rollable(in, cfg, &pos, price) {
					continue
				}
				action, ok := buildRoll(in, cfg, &pos, price, bp)
				if !ok {
					if convertToClose(in, cfg, &pos) {
						actions = append(actions, closeAction(&pos, "unable to roll"))
					} else {
						errs = append(errs, models.EvalError{
							Symbol: symbol,
							Rule:   "roll_positions",
							Err:    fmt.Sprintf("no strike satisfies the roll caps for %s %s %.2f", symbol, right, pos.Strike),
						})
					}
					continue
				}
				actions = append(actions, action)
			}
		}
	}
	return actions, errs
}

// rollable applies the roll triggers for one short option.
func rollable(in *Inputs, cfg *config.Config, p *models.Position, underlying float64) bool {
	itm := p.ITM(underlying)
	if itm {
		if alwaysWhenITM(cfg, p.Right) {
			return true
		}
		if !itmRollAllowed(cfg, p.Right) {
			return false
		}
	}
	if hasExcess(in, cfg, p.Symbol, p.Right) && !rollWhenExcess(cfg, p.Right) {
		return false
	}
	dte := p.DTE(in.Now)
	if max, ok := maxRollDTE(cfg, p.Symbol); ok && dte > max {
		return false
	}
	pnl := p.PnLFraction()
	if dte <= cfg.RollWhen.DTE && pnl >= cfg.RollWhen.MinPnl {
		return true
	}
	return pnl >= cfg.RollWhen.Pnl
}

// buildRoll assembles the roll proposal, applying the strike caps. ok is
// false when no strike can satisfy them.
func buildRoll(in *Inputs, cfg *config.Config, p *models.Position, underlying, bp float64) (models.ProposedAction, bool) {
	dte := cfg.TradingDTE(p.Symbol)
	strike := targetStrike(in, cfg, p.Symbol, underlying, dte, p.Right)

	switch p.Right {
	case models.RightPut:
		// The new strike may only ratchet up by the premium credit the
		// roll realizes; an ITM put never rolls above its old strike.
		premium := p.AvgCost / p.EffectiveMultiplier()
		cap := p.Strike + (premium - p.MarketPrice)
		if cap < p.Strike {
			cap = p.Strike
		}
		if limit, ok := cfg.StrikeLimit(p.Symbol, models.RightPut); ok && limit < cap {
			cap = limit
		}
		if p.ITM(underlying) && p.Strike < cap {
			cap = p.Strike
		}
		if strike > cap {
			strike = util.RoundStrike(cap)
			if strike > cap {
				strike = prevStrikeBelow(cap)
			}
		}
		if strike <= 0 {
			return models.ProposedAction{}, false
		}
	case models.RightCall:
		floor := 0.0
		if limit, ok := cfg.StrikeLimit(p.Symbol, models.RightCall); ok {
			floor = limit
		}
		if cost := in.StockAvgCost(p.Symbol); cost > floor {
			floor = cost
		}
		if cfg.MaintainHighWaterMark(p.Symbol) && p.Strike > floor {
			floor = p.Strike
		}
		if strike < floor {
			strike = util.RoundStrike(floor)
			if strike < floor {
				strike = nextStrikeAbove(floor)
			}
		}
	}

	qty := -p.Quantity
	if p.DTE(in.Now) > cfg.RollWhen.DTE {
		// A profit-triggered early roll opens fresh long-dated exposure;
		// budget it like a new write.
		if max := maximumNewContracts(cfg, bp, underlying); qty > float64(max) {
			qty = float64(max)
		}
	}

	action := models.ProposedAction{
		Type:      models.ActionRoll,
		Symbol:    p.Symbol,
		Quantity:  qty,
		Strike:    strike,
		Expiry:    expiryFor(in, dte),
		Right:     p.Right,
		OldStrike: p.Strike,
		OldExpiry: p.Expiry,
		Rationale: fmt.Sprintf("%s dte=%d pnl=%.2f", TagRoll, p.DTE(in.Now), p.PnLFraction()),
	}
	if creditOnly(cfg, p.Right) {
		// Negative hint: the combo must fill for at least the minimum credit.
		action.PriceHint = -cfg.Orders.MinimumCredit
	}
	return action, true
}

// convertToClose decides whether a roll that found no viable strike should
// become a buyback instead.
func convertToClose(in *Inputs, cfg *config.Config, p *models.Position) bool {
	if !cfg.CloseIfUnableToRoll(p.Symbol) {
		return false
	}
	if max, ok := maxRollDTE(cfg, p.Symbol); ok && p.DTE(in.Now) > max {
		return false
	}
	return p.PnLFraction() > 0
}

// prevStrikeBelow drops a price to the previous strike on the listing grid.
func prevStrikeBelow(price float64) float64 {
	switch {
	case price < 25:
		return util.FloorToTick(price, 0.5)
	case price < 200:
		return util.FloorToTick(price, 1)
	default:
		return util.FloorToTick(price, 5)
	}
}

func itmRollAllowed(cfg *config.Config, right models.Right) bool {
	if right == models.RightPut {
		return cfg.RollWhen.Puts.ITM
	}
	return *cfg.RollWhen.Calls.ITM
}

func alwaysWhenITM(cfg *config.Config, right models.Right) bool {
	if right == models.RightPut {
		return cfg.RollWhen.Puts.AlwaysWhenITM
	}
	return cfg.RollWhen.Calls.AlwaysWhenITM
}

func rollWhenExcess(cfg *config.Config, right models.Right) bool {
	if right == models.RightPut {
		return *cfg.RollWhen.Puts.HasExcess
	}
	return *cfg.RollWhen.Calls.HasExcess
}

func creditOnly(cfg *config.Config, right models.Right) bool {
	if right == models.RightPut {
		return cfg.RollWhen.Puts.CreditOnly
	}
	return cfg.RollWhen.Calls.CreditOnly
}

func hasExcess(in *Inputs, cfg *config.Config, symbol string, right models.Right) bool {
	if right == models.RightPut {
		return hasExcessPuts(in, cfg, symbol)
	}
	return hasExcessCalls(in, cfg, symbol)
}

// maxRollDTE resolves the symbol-level max_dte override, falling back to the
// global roll_when setting.
func maxRollDTE(cfg *config.Config, symbol string) (int, bool) {
	if max, ok := cfg.MaxDTE(symbol); ok {
		return max, true
	}
	if cfg.RollWhen.MaxDTE != nil {
		return *cfg.RollWhen.MaxDTE, true
	}
	return 0, false
}
