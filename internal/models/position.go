// Package models defines the domain types shared across the runner: account
// snapshots, positions, quotes, proposed actions, order instructions, and the
// run report.
package models

import (
	"math"
	"time"
)

// SharesPerContract is the standard option multiplier.
const SharesPerContract = 100.0

// PositionKind distinguishes equity holdings from option contracts.
type PositionKind string

const (
	// KindEquity is a plain stock position.
	KindEquity PositionKind = "equity"
	// KindOption is an option contract position.
	KindOption PositionKind = "option"
)

// Valid returns true if the PositionKind is one of the defined constants.
func (k PositionKind) Valid() bool {
	switch k {
	case KindEquity, KindOption:
		return true
	default:
		return false
	}
}

// Right is an option right.
type Right string

const (
	// RightPut is a put option.
	RightPut Right = "put"
	// RightCall is a call option.
	RightCall Right = "call"
)

// Valid returns true if the Right is one of the defined constants.
func (r Right) Valid() bool {
	switch r {
	case RightPut, RightCall:
		return true
	default:
		return false
	}
}

// Position is one broker-reported holding. Quantity is signed: short
// positions carry a negative quantity. For options Quantity counts
// contracts; for equity it counts shares.
type Position struct {
	Symbol        string       `json:"symbol"`
	Kind          PositionKind `json:"kind"`
	Quantity      float64      `json:"quantity"`
	AvgCost       float64      `json:"avg_cost"`
	MarketPrice   float64      `json:"market_price"`
	MarketValue   float64      `json:"market_value"`
	UnrealizedPnL float64      `json:"unrealized_pnl"`
	Multiplier    float64      `json:"multiplier,omitempty"`
	// Option-only fields.
	Strike float64   `json:"strike,omitempty"`
	Expiry time.Time `json:"expiry,omitempty"`
	Right  Right     `json:"right,omitempty"`
	Delta  float64   `json:"delta,omitempty"`
}

// IsOption reports whether the position is an option contract.
func (p *Position) IsOption() bool {
	return p.Kind == KindOption
}

// IsShort reports whether the position is short.
func (p *Position) IsShort() bool {
	return p.Quantity < 0
}

// DTE returns whole days until expiry, floored at zero. Equity positions
// report zero.
func (p *Position) DTE(now time.Time) int {
	if !p.IsOption() || p.Expiry.IsZero() {
		return 0
	}
	exp := p.Expiry.UTC().Truncate(24 * time.Hour)
	cur := now.UTC().Truncate(24 * time.Hour)
	days := int(exp.Sub(cur).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PnLFraction returns unrealized P/L as a fraction of the position's cost
// basis. A short put sold for $2.00 now marked at $1.00 reports 0.5. Zero
// cost basis reports zero.
func (p *Position) PnLFraction() float64 {
	denom := math.Abs(p.AvgCost * p.Quantity)
	if denom == 0 {
		return 0
	}
	return p.UnrealizedPnL / denom
}

// EffectiveMultiplier returns the contract multiplier, defaulting to the
// standard 100 for options and 1 for equity when the broker omits it.
func (p *Position) EffectiveMultiplier() float64 {
	if p.Multiplier > 0 {
		return p.Multiplier
	}
	if p.IsOption() {
		return SharesPerContract
	}
	return 1
}

// ITM reports whether an option position is in the money against the given
// underlying price. Equity positions are never ITM.
func (p *Position) ITM(underlying float64) bool {
	if !p.IsOption() || underlying <= 0 {
		return false
	}
	switch p.Right {
	case RightPut:
		return underlying < p.Strike
	case RightCall:
		return underlying > p.Strike
	default:
		return false
	}
}
