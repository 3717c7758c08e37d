package models

import "time"

// ActionType enumerates every kind of action an evaluator may propose. The
// set is closed: the sequencer rejects anything else.
type ActionType string

const (
	// ActionWritePut opens new short puts.
	ActionWritePut ActionType = "write_put"
	// ActionWriteCall opens new covered calls.
	ActionWriteCall ActionType = "write_call"
	// ActionRoll closes a short option and reopens it at a later expiry.
	ActionRoll ActionType = "roll"
	// ActionClose buys back a short option.
	ActionClose ActionType = "close"
	// ActionBuyShares buys stock toward a rebalance target.
	ActionBuyShares ActionType = "buy_shares"
	// ActionSellShares sells stock toward a rebalance target.
	ActionSellShares ActionType = "sell_shares"
	// ActionBuyHedge opens long VIX calls.
	ActionBuyHedge ActionType = "buy_hedge"
	// ActionSellHedge closes long VIX calls.
	ActionSellHedge ActionType = "sell_hedge"
	// ActionCashSweep moves excess cash into or out of the cash fund;
	// Side carries the direction.
	ActionCashSweep ActionType = "cash_sweep"
)

// Valid returns true if the ActionType is one of the defined constants.
func (t ActionType) Valid() bool {
	switch t {
	case ActionWritePut, ActionWriteCall, ActionRoll, ActionClose,
		ActionBuyShares, ActionSellShares, ActionBuyHedge, ActionSellHedge,
		ActionCashSweep:
		return true
	default:
		return false
	}
}

// ProposedAction is one evaluator output. It is terminal: once sequenced
// into an order or dropped with a reason it is never revisited.
type ProposedAction struct {
	Type      ActionType `json:"type"`
	Symbol    string     `json:"symbol"`
	Quantity  float64    `json:"quantity"`
	Rationale string     `json:"rationale"`
	// Side is only meaningful for cash sweeps.
	Side Side `json:"side,omitempty"`
	// Contract hints for option actions.
	Strike    float64   `json:"strike,omitempty"`
	Expiry    time.Time `json:"expiry,omitempty"`
	Right     Right     `json:"right,omitempty"`
	PriceHint float64   `json:"price_hint,omitempty"`
	// Roll-only: the leg being closed.
	OldStrike float64   `json:"old_strike,omitempty"`
	OldExpiry time.Time `json:"old_expiry,omitempty"`
}

// OpensContracts reports whether the action opens new option contracts and
// is therefore bound by the global new-contract caps.
func (a *ProposedAction) OpensContracts() bool {
	switch a.Type {
	case ActionWritePut, ActionWriteCall, ActionBuyHedge:
		return true
	default:
		return false
	}
}

// Priority returns the sequencing class of the action; lower runs first.
// Risk-reducing actions (closes, rolls) always precede risk-adding ones so
// a truncated run never leaves the book more exposed than it found it.
func (a *ProposedAction) Priority() int {
	switch a.Type {
	case ActionClose:
		return 0
	case ActionRoll:
		return 1
	case ActionSellHedge:
		return 2
	case ActionCashSweep:
		if a.Side == SideSell {
			return 3
		}
		return 6
	case ActionBuyShares, ActionSellShares:
		return 4
	case ActionWritePut, ActionWriteCall, ActionBuyHedge:
		return 5
	default:
		return 7
	}
}

// DroppedAction records an action the sequencer removed, and why.
type DroppedAction struct {
	Action ProposedAction `json:"action"`
	Reason string         `json:"reason"`
}
