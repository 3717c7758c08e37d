package util

import (
	"math"
	"testing"
)

func TestLogReturnStdDev(t *testing.T) {
	t.Run("constant growth has zero dispersion", func(t *testing.T) {
		closes := []float64{100, 110, 121, 133.1}
		if result := LogReturnStdDev(closes); math.Abs(result) > 1e-10 {
			t.Errorf("LogReturnStdDev(%v) = %v, expected 0", closes, result)
		}
	})

	t.Run("symmetric round trip", func(t *testing.T) {
		// Returns are +ln(1.1) and -ln(1.1); mean 0, sample stddev ln(1.1)*sqrt(2).
		closes := []float64{100, 110, 100}
		expected := math.Log(1.1) * math.Sqrt2
		if result := LogReturnStdDev(closes); math.Abs(result-expected) > 1e-10 {
			t.Errorf("LogReturnStdDev(%v) = %v, expected %v", closes, result, expected)
		}
	})

	t.Run("too few closes", func(t *testing.T) {
		if result := LogReturnStdDev([]float64{100, 110}); result != 0 {
			t.Errorf("LogReturnStdDev with 2 closes = %v, expected 0", result)
		}
		if result := LogReturnStdDev(nil); result != 0 {
			t.Errorf("LogReturnStdDev(nil) = %v, expected 0", result)
		}
	})

	t.Run("nonpositive close", func(t *testing.T) {
		if result := LogReturnStdDev([]float64{100, 0, 110}); result != 0 {
			t.Errorf("LogReturnStdDev with zero close = %v, expected 0", result)
		}
	})
}

func TestSigmaWriteThreshold(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		expected := 100 * (math.Exp(0.02) - 1) * 1.5
		result := SigmaWriteThreshold(100, 0.02, 1.5)
		if math.Abs(result-expected) > 1e-10 {
			t.Errorf("SigmaWriteThreshold(100, 0.02, 1.5) = %v, expected %v", result, expected)
		}
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		if result := SigmaWriteThreshold(0, 0.02, 1.5); result != 0 {
			t.Errorf("zero close = %v, expected 0", result)
		}
		if result := SigmaWriteThreshold(100, 0, 1.5); result != 0 {
			t.Errorf("zero stddev = %v, expected 0", result)
		}
		if result := SigmaWriteThreshold(100, 0.02, 0); result != 0 {
			t.Errorf("zero sigma = %v, expected 0", result)
		}
	})
}

func TestPercentWriteThreshold(t *testing.T) {
	if result := PercentWriteThreshold(100, 0.005); math.Abs(result-0.5) > 1e-10 {
		t.Errorf("PercentWriteThreshold(100, 0.005) = %v, expected 0.5", result)
	}
	if result := PercentWriteThreshold(100, 0); result != 0 {
		t.Errorf("zero threshold = %v, expected 0", result)
	}
	if result := PercentWriteThreshold(0, 0.005); result != 0 {
		t.Errorf("zero close = %v, expected 0", result)
	}
}

func TestStrikeForDelta(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		stddev   float64
		dte      int
		delta    float64
		put      bool
		expected float64
	}{
		{
			name:     "put strike sits below price",
			price:    100,
			stddev:   0.02,
			dte:      45,
			delta:    0.30,
			put:      true,
			expected: 93,
		},
		{
			name:     "call strike mirrors above price",
			price:    100,
			stddev:   0.02,
			dte:      45,
			delta:    0.30,
			put:      false,
			expected: 107,
		},
		{
			name:     "at-the-money delta pins the current price",
			price:    100,
			stddev:   0.02,
			dte:      45,
			delta:    0.50,
			put:      true,
			expected: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StrikeForDelta(tt.price, tt.stddev, tt.dte, tt.delta, tt.put)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("StrikeForDelta(%v, %v, %v, %v, %v) = %v, expected %v",
					tt.price, tt.stddev, tt.dte, tt.delta, tt.put, result, tt.expected)
			}
		})
	}

	t.Run("degenerate inputs yield no strike", func(t *testing.T) {
		if result := StrikeForDelta(0, 0.02, 45, 0.3, true); result != 0 {
			t.Errorf("zero price = %v, expected 0", result)
		}
		if result := StrikeForDelta(100, 0, 45, 0.3, true); result != 0 {
			t.Errorf("zero stddev = %v, expected 0", result)
		}
		if result := StrikeForDelta(100, 0.02, 0, 0.3, true); result != 0 {
			t.Errorf("zero dte = %v, expected 0", result)
		}
		if result := StrikeForDelta(100, 0.02, 45, 1.0, true); result != 0 {
			t.Errorf("delta of 1 = %v, expected 0", result)
		}
	})

	t.Run("deeper delta means closer to the money", func(t *testing.T) {
		far := StrikeForDelta(150, 0.015, 30, 0.15, true)
		near := StrikeForDelta(150, 0.015, 30, 0.40, true)
		if !(far < near && near < 150) {
			t.Errorf("expected far %v < near %v < 150", far, near)
		}
	})
}

func TestRelativeDrift(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		target   float64
		expected float64
	}{
		{name: "overweight", current: 0.25, target: 0.20, expected: 0.25},
		{name: "underweight", current: 0.15, target: 0.20, expected: 0.25},
		{name: "on target", current: 0.20, target: 0.20, expected: 0},
		{name: "zero target", current: 0.20, target: 0, expected: 0},
		{name: "zero current", current: 0, target: 0.20, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RelativeDrift(tt.current, tt.target)
			if math.Abs(result-tt.expected) > 1e-10 {
				t.Errorf("RelativeDrift(%v, %v) = %v, expected %v", tt.current, tt.target, result, tt.expected)
			}
		})
	}
}
