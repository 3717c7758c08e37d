// Package util provides common utility functions for price and threshold math.
package util

import "math"

// RoundToTick rounds x to the nearest tick increment.
// For example, with tick=0.01, 1.2345 becomes 1.23 or 1.24 depending on rounding.
func RoundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}

// FloorToTick rounds x down to the nearest tick increment.
func FloorToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Floor(x/tick) * tick
}

// CeilToTick rounds x up to the nearest tick increment.
func CeilToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Ceil(x/tick) * tick
}

// RoundStrike rounds a computed strike to a standard listed increment.
// Strikes under $25 list in $0.50 steps, under $200 in $1 steps, and $5
// steps above that.
func RoundStrike(strike float64) float64 {
	switch {
	case strike <= 0 || math.IsNaN(strike):
		return 0
	case strike < 25:
		return RoundToTick(strike, 0.5)
	case strike < 200:
		return RoundToTick(strike, 1.0)
	default:
		return RoundToTick(strike, 5.0)
	}
}
