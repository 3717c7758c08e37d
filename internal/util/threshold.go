package util

import "math"

// LogReturnStdDev returns the sample standard deviation of daily log
// returns for a series of closing prices. Returns 0 when fewer than three
// closes are available (one return is not a sample).
func LogReturnStdDev(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance)
}

// SigmaWriteThreshold converts a sigma multiple into an absolute daily-move
// threshold: close * (e^stddev - 1) * sigma.
func SigmaWriteThreshold(close, stddev, sigma float64) float64 {
	if close <= 0 || stddev <= 0 || sigma <= 0 {
		return 0
	}
	return close * (math.Exp(stddev) - 1) * sigma
}

// PercentWriteThreshold converts a fractional threshold into an absolute
// daily-move threshold relative to the previous close.
func PercentWriteThreshold(close, threshold float64) float64 {
	if close <= 0 || threshold <= 0 {
		return 0
	}
	return close * threshold
}

// StrikeForDelta approximates the strike whose option delta is closest to
// the target, using a lognormal quantile around the current price:
//
//	strike = price * exp(z(delta) * stddev * sqrt(dte))
//
// for puts, and the mirror image for calls. stddev is the daily log-return
// standard deviation. The result is rounded to a listed strike increment.
// Degenerate inputs yield 0, which callers must treat as "no strike".
func StrikeForDelta(price, stddev float64, dte int, delta float64, put bool) float64 {
	if price <= 0 || stddev <= 0 || dte <= 0 || delta <= 0 || delta >= 1 {
		return 0
	}
	// P(expire ITM) ~ delta under a lognormal walk, so the strike sits
	// z(delta) daily sigmas away from the current price.
	move := normQuantile(delta) * stddev * math.Sqrt(float64(dte))
	var strike float64
	if put {
		strike = price * math.Exp(move)
	} else {
		strike = price * math.Exp(-move)
	}
	return RoundStrike(strike)
}

// normQuantile is the standard normal inverse CDF for p in (0,1).
// Negative for p < 0.5.
func normQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// RelativeDrift returns |current/target - 1|, the drift of an allocation
// from its target expressed relative to the target. A non-positive target
// reports zero drift.
func RelativeDrift(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Abs(current/target - 1)
}
