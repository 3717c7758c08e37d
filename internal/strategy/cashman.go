package strategy

import (
	"fmt"
	"math"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
)

// CashManagement sweeps cash above the target balance into the cash fund
// and sells the fund back when cash falls below it. Thresholds on both
// sides keep small balances from churning.
func CashManagement(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError) {
	cm := &cfg.CashManagement
	if !cm.Enabled {
		return nil, nil
	}

	cash := in.Snapshot.TotalCash
	surplus := cash - cm.TargetCashBalance

	switch {
	case surplus > *cm.BuyThreshold:
		price, err := in.MarketPrice(cm.CashFund)
		if err != nil {
			return nil, []models.EvalError{{Symbol: cm.CashFund, Rule: "cash_management", Err: err.Error()}}
		}
		qty := math.Floor(surplus / price)
		if qty < 1 {
			return nil, nil
		}
		return []models.ProposedAction{{
			Type:      models.ActionCashSweep,
			Symbol:    cm.CashFund,
			Side:      models.SideBuy,
			Quantity:  qty,
			PriceHint: price,
			Rationale: fmt.Sprintf("%s surplus=%.2f", TagCashManagement, surplus),
		}}, nil

	case -surplus > *cm.SellThreshold:
		held := in.Shares(cm.CashFund)
		if held <= 0 {
			return nil, []models.EvalError{{
				Symbol: cm.CashFund,
				Rule:   "cash_management",
				Err:    fmt.Sprintf("cash %.2f below target but no %s held", cash, cm.CashFund),
			}}
		}
		price, err := in.MarketPrice(cm.CashFund)
		if err != nil {
			return nil, []models.EvalError{{Symbol: cm.CashFund, Rule: "cash_management", Err: err.Error()}}
		}
		qty := math.Ceil(-surplus / price)
		if qty > float64(held) {
			qty = float64(held)
		}
		return []models.ProposedAction{{
			Type:      models.ActionCashSweep,
			Symbol:    cm.CashFund,
			Side:      models.SideSell,
			Quantity:  qty,
			PriceHint: price,
			Rationale: fmt.Sprintf("%s shortfall=%.2f", TagCashManagement, -surplus),
		}}, nil
	}
	return nil, nil
}
