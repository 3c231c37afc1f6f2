package features

import (
	"math"

	"AgentTrader/internal/domain/models"
)

// Closes extracts close prices, oldest first.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PopulationVariance divides by n, not n-1.
func PopulationVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	v := sum / float64(len(xs))
	if v < 0 {
		return 0
	}
	return v
}

// PopulationStdDev is sqrt of PopulationVariance.
func PopulationStdDev(xs []float64) float64 {
	return math.Sqrt(PopulationVariance(xs))
}

// Clamp bounds x to [lo, hi]. NaN maps to 0 when 0 lies in range.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		if lo <= 0 && hi >= 0 {
			return 0
		}
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Finite returns x, or 0 for NaN and ±Inf.
func Finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// Sign returns -1, 0 or 1.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Tail returns the last n elements of xs (all of xs when shorter).
func Tail(xs []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
