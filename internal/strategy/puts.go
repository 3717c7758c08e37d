package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
	"github.com/pdswan/wheelhouse/internal/util"
)

// WritePuts proposes short-put openings for symbols below their target
// allocation. Targets are sized from buying power, net of held shares and
// existing short puts. Symbols above target are left alone here; the roller
// picks up the excess flag.
func WritePuts(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError) {
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
			errs = append(errs, models.EvalError{Symbol: symbol, Rule: "write_puts", Err: err.Error()})
			continue
		}

		contracts := putShortfall(in, cfg, symbol, price)
		if contracts <= 0 {
			continue
		}
		if !writeGatePasses(in, cfg, symbol, models.RightPut, price) {
			continue
		}

		if max := maximumNewContracts(cfg, bp, price); contracts > max {
			contracts = max
		}

		dte := cfg.TradingDTE(symbol)
		strike := targetStrike(in, cfg, symbol, price, dte, models.RightPut)
		if limit, ok := cfg.StrikeLimit(symbol, models.RightPut); ok && strike > limit {
			strike = util.RoundStrike(math.Floor(limit))
		}
		if strike <= 0 {
			continue
		}

		// Each contract obligates strike x 100 of cash; never write more
		// than buying power can secure.
		if affordable := int(math.Floor(bp / (strike * models.SharesPerContract))); contracts > affordable {
			contracts = affordable
		}
		if contracts <= 0 {
			continue
		}

		actions = append(actions, models.ProposedAction{
			Type:      models.ActionWritePut,
			Symbol:    symbol,
			Quantity:  float64(contracts),
			Strike:    strike,
			Expiry:    expiryFor(in, dte),
			Right:     models.RightPut,
			Rationale: fmt.Sprintf("%s dte=%d", TagWritePuts, dte),
		})
	}
	return actions, errs
}

// maximumNewContracts is the per-symbol cap implied by
// maximum_new_contracts_percent, never below one contract.
func maximumNewContracts(cfg *config.Config, buyingPower, price float64) int {
	pct := *cfg.Target.MaximumNewContractsPercent
	if pct <= 0 || price <= 0 {
		return math.MaxInt32
	}
	n := int(math.Round(pct * buyingPower / (price * models.SharesPerContract)))
	if n < 1 {
		return 1
	}
	return n
}

// expiryFor returns the target expiration date dte calendar days out.
func expiryFor(in *Inputs, dte int) time.Time {
	return in.Now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, dte)
}
