package strategy

import (
	"fmt"
	"math"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
	"github.com/pdswan/wheelhouse/internal/util"
)

// WriteCalls proposes covered calls against held shares. The covered count
// respects cap_factor, cap_target_floor, and excess_only; the strike never
// goes below the cost basis or the current market price.
func WriteCalls(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError) {
	var (
		actions []models.ProposedAction
		errs    []models.EvalError
	)
	bp := BuyingPower(in, cfg)

	for _, symbol := range cfg.Symbols.Order {
		if cfg.NoTrading(symbol) {
			continue
		}
		shares := in.Shares(symbol)
		if shares < int(models.SharesPerContract) {
			continue
		}
		price, err := in.MarketPrice(symbol)
		if err != nil {
			errs = append(errs, models.EvalError{Symbol: symbol, Rule: "write_calls", Err: err.Error()})
			continue
		}

		target := targetShares(in, cfg, symbol, price)
		shortCalls := in.NetShortOptionCount(symbol, models.RightCall, cfg.WriteWhen.CalculateNetContracts)
		needed := targetCalls(cfg, symbol, shares, target) - shortCalls
		if needed <= 0 {
			continue
		}
		if !writeGatePasses(in, cfg, symbol, models.RightCall, price) {
			continue
		}

		if max := maximumNewContracts(cfg, bp, price); needed > max {
			needed = max
		}
		// Never write more calls than uncovered lots on hand.
		if uncovered := shares/int(models.SharesPerContract) - shortCalls; needed > uncovered {
			needed = uncovered
		}
		if needed <= 0 {
			continue
		}

		dte := cfg.TradingDTE(symbol)
		strike := targetStrike(in, cfg, symbol, price, dte, models.RightCall)
		if floor := callStrikeFloor(in, cfg, symbol, price); strike < floor {
			strike = util.RoundStrike(floor)
			if strike < floor {
				strike = nextStrikeAbove(floor)
			}
		}

		actions = append(actions, models.ProposedAction{
			Type:      models.ActionWriteCall,
			Symbol:    symbol,
			Quantity:  float64(needed),
			Strike:    strike,
			Expiry:    expiryFor(in, dte),
			Right:     models.RightCall,
			Rationale: fmt.Sprintf("%s dte=%d", TagWriteCalls, dte),
		})
	}
	return actions, errs
}

// callStrikeFloor is the lowest acceptable call strike: the configured
// limit, the stock's cost basis, or the market price, whichever is highest.
func callStrikeFloor(in *Inputs, cfg *config.Config, symbol string, price float64) float64 {
	floor := price
	if cost := in.StockAvgCost(symbol); cost > floor {
		floor = cost
	}
	if limit, ok := cfg.StrikeLimit(symbol, models.RightCall); ok && limit > floor {
		floor = limit
	}
	return math.Ceil(floor)
}

// nextStrikeAbove bumps a price to the next strike on the listing grid.
func nextStrikeAbove(price float64) float64 {
	switch {
	case price < 25:
		return util.CeilToTick(price, 0.5)
	case price < 200:
		return util.CeilToTick(price, 1)
	default:
		return util.CeilToTick(price, 5)
	}
}
