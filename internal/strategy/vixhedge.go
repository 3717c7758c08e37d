package strategy

import (
	"fmt"
	"math"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
)

// Index symbols the hedge consults. VIXMO (the 30-day implied vol index)
// picks the allocation tier so a spiking front month does not whipsaw the
// hedge size.
const (
	VIXSymbol   = "VIX"
	VIXMOSymbol = "VIXMO"
)

// VIXHedge maintains a small long VIX call position as a tail hedge. When
// hedges are on and the index spikes past the exit level they are sold;
// when none are on, a new hedge is sized from the VIXMO allocation table.
func VIXHedge(in *Inputs, cfg *config.Config) ([]models.ProposedAction, []models.EvalError) {
	hc := &cfg.VIXCallHedge
	if !hc.Enabled {
		return nil, nil
	}

	longCalls := hedgeCalls(in, hc)
	if len(longCalls) > 0 {
		if hc.CloseHedgesWhenVIXExceeds == nil {
			return nil, nil
		}
		vix, err := in.MarketPrice(VIXSymbol)
		if err != nil {
			return nil, []models.EvalError{{Symbol: VIXSymbol, Rule: "vix_hedge", Err: err.Error()}}
		}
		if vix <= *hc.CloseHedgesWhenVIXExceeds {
			return nil, nil
		}
		var actions []models.ProposedAction
		for _, p := range longCalls {
			actions = append(actions, models.ProposedAction{
				Type:      models.ActionSellHedge,
				Symbol:    VIXSymbol,
				Quantity:  p.Quantity,
				Strike:    p.Strike,
				Expiry:    p.Expiry,
				Right:     models.RightCall,
				Rationale: fmt.Sprintf("%s vix=%.2f above exit %.2f", TagVIXHedge, vix, *hc.CloseHedgesWhenVIXExceeds),
			})
		}
		return actions, nil
	}

	vixmo, err := in.MarketPrice(VIXMOSymbol)
	if err != nil {
		return nil, []models.EvalError{{Symbol: VIXMOSymbol, Rule: "vix_hedge", Err: err.Error()}}
	}
	weight := allocationWeight(hc, vixmo)
	if weight <= 0 {
		return nil, nil
	}

	// Without a live option quote the index level prices the contract for
	// sizing; the sequencer prices the actual order.
	price, err := in.MarketPrice(VIXSymbol)
	if err != nil {
		return nil, []models.EvalError{{Symbol: VIXSymbol, Rule: "vix_hedge", Err: err.Error()}}
	}
	contracts := math.Floor(weight * BuyingPower(in, cfg) / (price * models.SharesPerContract))
	if contracts < 1 {
		return nil, nil
	}
	return []models.ProposedAction{{
		Type:      models.ActionBuyHedge,
		Symbol:    VIXSymbol,
		Quantity:  contracts,
		Strike:    nextStrikeAbove(price),
		Expiry:    expiryFor(in, hc.TargetDTE),
		Right:     models.RightCall,
		Rationale: fmt.Sprintf("%s vixmo=%.2f weight=%.4f delta=%.2f", TagVIXHedge, vixmo, weight, hc.Delta),
	}}, nil
}

// hedgeCalls returns the long VIX calls that count as active hedges; legs
// inside the ignore window are treated as already expired.
func hedgeCalls(in *Inputs, hc *config.VIXCallHedgeConfig) []models.Position {
	var out []models.Position
	for _, p := range in.Positions[VIXSymbol] {
		if !p.IsOption() || p.Right != models.RightCall || p.Quantity <= 0 {
			continue
		}
		if p.DTE(in.Now) < hc.IgnoreDTE {
			continue
		}
		out = append(out, p)
	}
	return out
}

// allocationWeight picks the tier whose [lower, upper) bounds contain the
// VIXMO level. Nil bounds are open.
func allocationWeight(hc *config.VIXCallHedgeConfig, vixmo float64) float64 {
	for _, tier := range hc.Allocation {
		if tier.LowerBound != nil && vixmo < *tier.LowerBound {
			continue
		}
		if tier.UpperBound != nil && vixmo >= *tier.UpperBound {
			continue
		}
		return tier.Weight
	}
	return 0
}
