package strategy

import (
	"fmt"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
)

// Close proposes buying back short options whose profit has run past the
// close_at_pnl threshold. Taking the win early frees the margin for the
// next write instead of holding for the last few cents.
func Close(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError) {
	var (
		actions []models.ProposedAction
		errs    []models.EvalError
	)

	for _, symbol := range cfg.Symbols.Order {
		if cfg.NoTrading(symbol) {
			continue
		}
		shorts := append(in.ShortOptions(symbol, models.RightPut), in.ShortOptions(symbol, models.RightCall)...)
		if len(shorts) == 0 {
			continue
		}
		price, err := in.MarketPrice(symbol)
		if err != nil {
			errs = append(errs, models.EvalError{Symbol: symbol, Rule: "close_positions", Err: err.Error()})
			continue
		}
		for _, p := range shorts {
			pos := p
			if closeable(cfg, &pos, price) {
				actions = append(actions, closeAction(&pos, fmt.Sprintf("pnl=%.2f above close threshold", pos.PnLFraction())))
			}
		}
	}
	return actions, errs
}

// closeable reports whether a short option has crossed the close threshold.
// A zero close_at_pnl disables closing entirely. ITM positions are held to
// expiry unless the ITM opt-in covers the right.
func closeable(cfg *config.Config, p *models.Position, underlying float64) bool {
	threshold := *cfg.RollWhen.CloseAtPnl
	if threshold <= 0 || p.PnLFraction() <= threshold {
		return false
	}
	if p.ITM(underlying) && !itmRollAllowed(cfg, p.Right) {
		return false
	}
	return true
}

func closeAction(p *models.Position, why string) models.ProposedAction {
	return models.ProposedAction{
		Type:      models.ActionClose,
		Symbol:    p.Symbol,
		Quantity:  -p.Quantity,
		Strike:    p.Strike,
		Expiry:    p.Expiry,
		Right:     p.Right,
		Rationale: TagClose + " " + why,
	}
}
