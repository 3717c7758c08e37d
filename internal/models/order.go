package models

// Side is the direction of an order or fill.
type Side string

const (
	// SideBuy buys.
	SideBuy Side = "buy"
	// SideSell sells.
	SideSell Side = "sell"
)

// Valid returns true if the Side is one of the defined constants.
func (s Side) Valid() bool {
	switch s {
	case SideBuy, SideSell:
		return true
	default:
		return false
	}
}

// SecType is the security type of an order.
type SecType string

const (
	// SecTypeStock is a plain stock order.
	SecTypeStock SecType = "stock"
	// SecTypeOption is a single-leg option order.
	SecTypeOption SecType = "option"
	// SecTypeCombo is a multi-leg option order (rolls).
	SecTypeCombo SecType = "combo"
)

// Algo is the execution algorithm for an order.
type Algo string

const (
	// AlgoLimit is a plain limit order.
	AlgoLimit Algo = "limit"
	// AlgoAdaptive is the broker's adaptive limit algo.
	AlgoAdaptive Algo = "adaptive"
	// AlgoVWAP is a volume-weighted execution algo.
	AlgoVWAP Algo = "vwap"
)

// Valid returns true if the Algo is one of the defined constants.
func (a Algo) Valid() bool {
	switch a {
	case AlgoLimit, AlgoAdaptive, AlgoVWAP:
		return true
	default:
		return false
	}
}

// OrderLeg is one leg of a combo order. Ratio is positive; Side carries the
// direction of the leg.
type OrderLeg struct {
	Side   Side    `json:"side"`
	Right  Right   `json:"right"`
	Strike float64 `json:"strike"`
	Expiry string  `json:"expiry"`
	Ratio  int     `json:"ratio"`
}

// OrderInstruction is a fully specified order ready for submission.
// Quantity is always positive; Side carries the direction.
type OrderInstruction struct {
	Symbol     string     `json:"symbol"`
	SecType    SecType    `json:"sec_type"`
	Side       Side       `json:"side"`
	Quantity   float64    `json:"quantity"`
	LimitPrice float64    `json:"limit_price"`
	Algo       Algo       `json:"algo"`
	TIF        string     `json:"tif"`
	OrderRef   string     `json:"order_ref"`
	Legs       []OrderLeg `json:"legs,omitempty"`
	// Contract fields for single-leg option orders.
	Strike float64 `json:"strike,omitempty"`
	Expiry string  `json:"expiry,omitempty"`
	Right  Right   `json:"right,omitempty"`
}

// OrderStatus is the terminal status of a submitted order for this run.
type OrderStatus string

const (
	// OrderSubmitted was accepted by the broker.
	OrderSubmitted OrderStatus = "submitted"
	// OrderRejected was refused by the broker.
	OrderRejected OrderStatus = "rejected"
	// OrderTimedOut never received a broker acknowledgement.
	OrderTimedOut OrderStatus = "timed_out"
	// OrderSkipped was not sent (dry run).
	OrderSkipped OrderStatus = "skipped"
)

// OrderResult is the submission outcome for one instruction.
type OrderResult struct {
	Instruction OrderInstruction `json:"instruction"`
	BrokerID    string           `json:"broker_id,omitempty"`
	Status      OrderStatus      `json:"status"`
	Error       string           `json:"error,omitempty"`
}
