package util

import (
	"fmt"
	"math"
	"sort"
)

// Choppiness measures how much a price window oscillates relative to its net
// drift: sqrt of the sum of squared log returns over the absolute net log
// return. High values mean the window churned without going anywhere.
// Windows shorter than two points return 0.
func Choppiness(window []float64, eps float64) float64 {
	if len(window) < 2 {
		return 0
	}
	if eps <= 0 {
		eps = 1e-9
	}
	var sumSq, sum float64
	for i := 1; i < len(window); i++ {
		prev := math.Max(window[i-1], eps)
		curr := math.Max(window[i], eps)
		r := math.Log(curr / prev)
		sumSq += r * r
		sum += r
	}
	return math.Sqrt(sumSq) / math.Max(math.Abs(sum), eps)
}

// EfficiencyRatio is Kaufman's efficiency ratio: net move over the sum of
// absolute daily moves. 1.0 is a straight line, values near 0 are chop.
// Windows shorter than two points return 0.
func EfficiencyRatio(window []float64, eps float64) float64 {
	if len(window) < 2 {
		return 0
	}
	if eps <= 0 {
		eps = 1e-9
	}
	var pathLen float64
	for i := 1; i < len(window); i++ {
		pathLen += math.Abs(window[i] - window[i-1])
	}
	return math.Abs(window[len(window)-1]-window[0]) / math.Max(pathLen, eps)
}

// ProxySeries builds a normalized basket index from per-symbol close series.
// The index starts at 1.0 and each day compounds the weighted average of the
// symbols' close relatives. All series must be date-aligned and equal length.
func ProxySeries(closes map[string][]float64, weights map[string]float64) ([]float64, error) {
	symbols := make([]string, 0, len(weights))
	var totalWeight float64
	for symbol, w := range weights {
		if w <= 0 {
			continue
		}
		if _, ok := closes[symbol]; !ok {
			return nil, fmt.Errorf("proxy series missing closes for %s", symbol)
		}
		symbols = append(symbols, symbol)
		totalWeight += w
	}
	if totalWeight <= 0 {
		return nil, fmt.Errorf("proxy series weights must sum to a positive value")
	}
	sort.Strings(symbols)

	n := -1
	for _, symbol := range symbols {
		if n == -1 {
			n = len(closes[symbol])
		} else if len(closes[symbol]) != n {
			return nil, fmt.Errorf("proxy series closes are not aligned for %s", symbol)
		}
	}
	if n < 1 {
		return nil, fmt.Errorf("proxy series requires at least one close per symbol")
	}

	series := make([]float64, 0, n)
	series = append(series, 1.0)
	for i := 1; i < n; i++ {
		var factor float64
		for _, symbol := range symbols {
			prev := closes[symbol][i-1]
			curr := closes[symbol][i]
			if prev <= 0 {
				return nil, fmt.Errorf("proxy series has nonpositive close for %s", symbol)
			}
			factor += (weights[symbol] / totalWeight) * (curr / prev)
		}
		series = append(series, series[len(series)-1]*factor)
	}
	return series, nil
}
