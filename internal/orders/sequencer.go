// Package orders turns the evaluators' proposals into a deterministic,
// capped sequence of broker order instructions.
package orders

import (
	"fmt"
	"math"
	"sort"

	"github.com/pdswan/wheelhouse/internal/config"
	"github.com/pdswan/wheelhouse/internal/models"
	"github.com/pdswan/wheelhouse/internal/util"
)

const priceTick = 0.01

// Sequencer merges, orders, caps, and prices proposed actions.
type Sequencer struct {
	cfg *config.Config
}

// NewSequencer returns a sequencer bound to the run's configuration.
func NewSequencer(cfg *config.Config) *Sequencer {
	return &Sequencer{cfg: cfg}
}

// Sequence produces the submission-ready instructions. Dropped actions are
// returned alongside, never silently discarded. The output is a pure
// function of its inputs: identical proposals always sequence identically.
func (s *Sequencer) Sequence(actions []models.ProposedAction, quotes map[string]*models.Quote) ([]models.OrderInstruction, []models.DroppedAction) {
	var dropped []models.DroppedAction

	merged := s.mergeWrites(actions)
	kept := merged[:0:0]
	for _, a := range merged {
		if reason, ok := s.qualify(&a); !ok {
			dropped = append(dropped, models.DroppedAction{Action: a, Reason: reason})
			continue
		}
		kept = append(kept, a)
	}

	s.sortActions(kept)
	kept, capDropped := s.applyContractCap(kept)
	dropped = append(dropped, capDropped...)

	instructions := make([]models.OrderInstruction, 0, len(kept))
	for _, a := range kept {
		inst, err := s.build(&a, quotes)
		if err != nil {
			dropped = append(dropped, models.DroppedAction{Action: a, Reason: err.Error()})
			continue
		}
		instructions = append(instructions, inst)
	}
	return instructions, dropped
}

// mergeWrites combines same-symbol same-right write proposals into one
// larger order when net-contract accounting is on. Merging happens before
// the caps so a merged write competes for cap budget as a single action.
func (s *Sequencer) mergeWrites(actions []models.ProposedAction) []models.ProposedAction {
	if !s.cfg.WriteWhen.CalculateNetContracts {
		return actions
	}
	type key struct {
		t      models.ActionType
		symbol string
		right  models.Right
	}
	index := map[key]int{}
	var out []models.ProposedAction
	for _, a := range actions {
		if a.Type != models.ActionWritePut && a.Type != models.ActionWriteCall {
			out = append(out, a)
			continue
		}
		k := key{t: a.Type, symbol: a.Symbol, right: a.Right}
		if i, ok := index[k]; ok {
			out[i].Quantity += a.Quantity
			continue
		}
		index[k] = len(out)
		out = append(out, a)
	}
	return out
}

// qualify rejects proposals that cannot form a valid contract.
func (s *Sequencer) qualify(a *models.ProposedAction) (string, bool) {
	if !a.Type.Valid() {
		return fmt.Sprintf("unknown action type %q", a.Type), false
	}
	if a.Quantity <= 0 {
		return "non-positive quantity", false
	}
	switch a.Type {
	case models.ActionWritePut, models.ActionWriteCall, models.ActionClose,
		models.ActionBuyHedge, models.ActionSellHedge:
		if a.Strike <= 0 || a.Expiry.IsZero() || !a.Right.Valid() {
			return "incomplete option contract", false
		}
	case models.ActionRoll:
		if a.Strike <= 0 || a.OldStrike <= 0 || a.Expiry.IsZero() || a.OldExpiry.IsZero() {
			return "incomplete roll legs", false
		}
	case models.ActionCashSweep:
		if !a.Side.Valid() {
			return "cash sweep without a side", false
		}
	}
	return "", true
}

// sortActions orders by priority class, then the configured symbol order,
// then action type for a stable total order.
func (s *Sequencer) sortActions(actions []models.ProposedAction) {
	rank := make(map[string]int, len(s.cfg.Symbols.Order))
	for i, sym := range s.cfg.Symbols.Order {
		rank[sym] = i
	}
	symbolRank := func(sym string) int {
		if r, ok := rank[sym]; ok {
			return r
		}
		return len(s.cfg.Symbols.Order)
	}
	sort.SliceStable(actions, func(i, j int) bool {
		a, b := &actions[i], &actions[j]
		if pa, pb := a.Priority(), b.Priority(); pa != pb {
			return pa < pb
		}
		if ra, rb := symbolRank(a.Symbol), symbolRank(b.Symbol); ra != rb {
			return ra < rb
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Type < b.Type
	})
}

// applyContractCap enforces the absolute new-contract budget across the
// whole run. Only contract-opening actions consume budget; excess comes
// off the lowest-priority actions first, partially when possible.
func (s *Sequencer) applyContractCap(actions []models.ProposedAction) ([]models.ProposedAction, []models.DroppedAction) {
	if s.cfg.Target.MaximumNewContracts == nil {
		return actions, nil
	}
	budget := float64(*s.cfg.Target.MaximumNewContracts)

	var dropped []models.DroppedAction
	kept := actions[:0:0]
	for _, a := range actions {
		if !a.OpensContracts() {
			kept = append(kept, a)
			continue
		}
		switch {
		case a.Quantity <= budget:
			budget -= a.Quantity
			kept = append(kept, a)
		case budget >= 1:
			truncated := a
			truncated.Quantity = math.Floor(budget)
			budget -= truncated.Quantity
			kept = append(kept, truncated)
			remainder := a
			remainder.Quantity = a.Quantity - truncated.Quantity
			dropped = append(dropped, models.DroppedAction{Action: remainder, Reason: "maximum_new_contracts reached"})
		default:
			dropped = append(dropped, models.DroppedAction{Action: a, Reason: "maximum_new_contracts reached"})
		}
	}
	return kept, dropped
}

// build prices one action and assembles its order instruction.
func (s *Sequencer) build(a *models.ProposedAction, quotes map[string]*models.Quote) (models.OrderInstruction, error) {
	inst := models.OrderInstruction{
		Symbol:   a.Symbol,
		Quantity: a.Quantity,
		Algo:     models.Algo(s.cfg.Orders.Algo.Strategy),
		TIF:      s.cfg.Orders.TIF,
		OrderRef: a.Rationale,
	}

	switch a.Type {
	case models.ActionWritePut, models.ActionWriteCall:
		inst.SecType = models.SecTypeOption
		inst.Side = models.SideSell
		inst.Strike = a.Strike
		inst.Expiry = a.Expiry.Format("20060102")
		inst.Right = a.Right
	case models.ActionRoll:
		inst.SecType = models.SecTypeCombo
		inst.Side = models.SideSell
		inst.Legs = []models.OrderLeg{
			{Side: models.SideBuy, Right: a.Right, Strike: a.OldStrike, Expiry: a.OldExpiry.Format("20060102"), Ratio: 1},
			{Side: models.SideSell, Right: a.Right, Strike: a.Strike, Expiry: a.Expiry.Format("20060102"), Ratio: 1},
		}
	case models.ActionClose:
		inst.SecType = models.SecTypeOption
		inst.Side = models.SideBuy
		inst.Strike = a.Strike
		inst.Expiry = a.Expiry.Format("20060102")
		inst.Right = a.Right
	case models.ActionBuyHedge:
		inst.SecType = models.SecTypeOption
		inst.Side = models.SideBuy
		inst.Strike = a.Strike
		inst.Expiry = a.Expiry.Format("20060102")
		inst.Right = a.Right
	case models.ActionSellHedge:
		inst.SecType = models.SecTypeOption
		inst.Side = models.SideSell
		inst.Strike = a.Strike
		inst.Expiry = a.Expiry.Format("20060102")
		inst.Right = a.Right
	case models.ActionBuyShares:
		inst.SecType = models.SecTypeStock
		inst.Side = models.SideBuy
	case models.ActionSellShares:
		inst.SecType = models.SecTypeStock
		inst.Side = models.SideSell
	case models.ActionCashSweep:
		inst.SecType = models.SecTypeStock
		inst.Side = a.Side
	}

	price, err := s.price(a, quotes, inst.Side)
	if err != nil {
		return models.OrderInstruction{}, err
	}
	inst.LimitPrice = price
	return inst, nil
}

// price selects the limit price: the action's own hint when present,
// otherwise the symbol quote, leaning toward the favorable side of the
// spread. Credits take the higher of midpoint and market, debits the lower.
func (s *Sequencer) price(a *models.ProposedAction, quotes map[string]*models.Quote, side models.Side) (float64, error) {
	if a.PriceHint != 0 {
		return util.RoundToTick(a.PriceHint, priceTick), nil
	}
	if a.Type == models.ActionRoll {
		// A roll combo without a hint goes in at the minimum acceptable
		// credit; the underlying quote cannot price the spread.
		return util.RoundToTick(-s.cfg.Orders.MinimumCredit, priceTick), nil
	}
	q, ok := quotes[a.Symbol]
	if !ok {
		return 0, fmt.Errorf("no quote to price %s %s", a.Type, a.Symbol)
	}
	price, err := q.MarketPrice()
	if err != nil {
		return 0, err
	}
	if q.Last > 0 && !math.IsNaN(q.Last) {
		price = q.Last
	}
	if mid, err := q.Midpoint(); err == nil {
		if side == models.SideSell {
			price = math.Max(mid, price)
		} else {
			price = math.Min(mid, price)
		}
	}
	return util.RoundToTick(price, priceTick), nil
}
