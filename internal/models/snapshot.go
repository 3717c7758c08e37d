package models

import (
	"fmt"
	"math"
	"time"
)

// AccountSnapshot is the account summary captured once at the start of a run.
// All downstream decisions read from this snapshot; nothing refreshes it
// mid-run.
type AccountSnapshot struct {
	NetLiquidation  float64   `json:"net_liquidation"`
	ExcessLiquidity float64   `json:"excess_liquidity"`
	BuyingPower     float64   `json:"buying_power"`
	TotalCash       float64   `json:"total_cash"`
	Cushion         float64   `json:"cushion"`
	InitMargin      float64   `json:"init_margin"`
	MaintMargin     float64   `json:"maint_margin"`
	Timestamp       time.Time `json:"timestamp"`
}

// Quote is a point-in-time market quote for a symbol. Fields the feed did
// not supply are NaN, never zero.
type Quote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
	Close  float64 `json:"close"`
}

// Midpoint returns the bid/ask midpoint, or an error when either side is
// missing or crossed through zero.
func (q *Quote) Midpoint() (float64, error) {
	if !isUsable(q.Bid) || !isUsable(q.Ask) {
		return 0, fmt.Errorf("quote for %s has no usable bid/ask", q.Symbol)
	}
	return (q.Bid + q.Ask) / 2, nil
}

// MarketPrice returns the best available price: midpoint, then last, then
// previous close. An error means the quote is unusable and the symbol must
// be skipped, not defaulted.
func (q *Quote) MarketPrice() (float64, error) {
	if mid, err := q.Midpoint(); err == nil {
		return mid, nil
	}
	if isUsable(q.Last) {
		return q.Last, nil
	}
	if isUsable(q.Close) {
		return q.Close, nil
	}
	return 0, fmt.Errorf("quote for %s has no usable price", q.Symbol)
}

func isUsable(x float64) bool {
	return !math.IsNaN(x) && x > 0
}

// Bar is one historical OHLCV bar.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Execution is a recorded fill, tagged with the order ref that produced it.
type Execution struct {
	OrderRef string    `json:"order_ref"`
	Symbol   string    `json:"symbol"`
	Side     Side      `json:"side"`
	Shares   float64   `json:"shares"`
	Price    float64   `json:"price"`
	Time     time.Time `json:"time"`
}
