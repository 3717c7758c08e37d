package broker

import "fmt"

// MarketDataError marks a quote or bar fetch failure for one symbol. The
// symbol is skipped for the run; other symbols proceed.
type MarketDataError struct {
	Symbol string
	Err    error
}

func (e *MarketDataError) Error() string {
	return fmt.Sprintf("market data for %s: %v", e.Symbol, e.Err)
}

func (e *MarketDataError) Unwrap() error {
	return e.Err
}

// ContractQualificationError marks a proposed contract the broker could not
// resolve. The action is dropped before sequencing and recorded.
type ContractQualificationError struct {
	Symbol string
	Reason string
}

func (e *ContractQualificationError) Error() string {
	return fmt.Sprintf("qualifying contract for %s: %s", e.Symbol, e.Reason)
}

// OrderSubmissionError marks a rejected or timed-out submission. Orders are
// never retried within a run.
type OrderSubmissionError struct {
	Symbol   string
	OrderRef string
	Timeout  bool
	Err      error
}

func (e *OrderSubmissionError) Error() string {
	kind := "rejected"
	if e.Timeout {
		kind = "timed out"
	}
	return fmt.Sprintf("order %s for %s %s: %v", e.OrderRef, e.Symbol, kind, e.Err)
}

func (e *OrderSubmissionError) Unwrap() error {
	return e.Err
}
