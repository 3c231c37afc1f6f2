package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/services/features"
)

var (
	// ErrUpstream marks failures of the external market data fetch.
	ErrUpstream = errors.New("upstream fetch failed")
	// ErrInsufficientHistory is an upstream failure: a price history had fewer than 2 samples.
	ErrInsufficientHistory = fmt.Errorf("%w: insufficient price history", ErrUpstream)
)

const (
	// DenominatorFloor keeps Pearson defined for zero-variance inputs.
	DenominatorFloor = 1e-9

	hoursPerDay  = 24
	daysPerYear  = 365
	MomentumBars = 24
	MomentumGain = 10
)

// SimpleReturns computes r_i = (p_i - p_{i-1}) / p_{i-1}.
// A non-positive previous price yields 0 for that step.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, features.Finite((prices[i]-prev)/prev))
	}
	return out
}

// Pearson correlates the overlapping trailing window of a and b using
// population moments. The denominator is floored at DenominatorFloor.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	xs := a[len(a)-n:]
	ys := b[len(b)-n:]

	mx, my := features.Mean(xs), features.Mean(ys)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	fn := float64(n)
	cov, vx, vy = cov/fn, vx/fn, vy/fn

	denom := math.Sqrt(vx * vy)
	if !(denom >= DenominatorFloor) {
		denom = DenominatorFloor
	}
	return features.Clamp(cov/denom, -1, 1)
}

// AnnualizedVolatility scales the population stddev of hourly returns to an
// annual percentage: sigma * sqrt(24) * sqrt(365) * 100.
func AnnualizedVolatility(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sigma := features.PopulationStdDev(returns)
	return features.Finite(math.Sqrt(sigma*sigma*hoursPerDay) * math.Sqrt(daysPerYear) * 100)
}

// Momentum is the drift from lookback samples ago to the latest price, times
// scale, clamped to [-1, 1]. Short series use the earliest sample as the base.
func Momentum(prices []float64, lookback int, scale float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	last := prices[len(prices)-1]
	baseIdx := len(prices) - 1 - lookback
	if baseIdx < 0 {
		baseIdx = 0
	}
	base := prices[baseIdx]
	if base == 0 {
		return 0
	}
	return features.Clamp(features.Finite((last-base)/base*scale), -1, 1)
}

// ComputeSnapshot builds a macro snapshot from raw upstream readings.
// Correlation is between primary and reference returns; volatility and
// momentum describe the primary asset.
func ComputeSnapshot(in models.MacroInputs, now time.Time) (models.MacroSnapshot, error) {
	if len(in.PrimaryPrices) < 2 || len(in.ReferencePrices) < 2 {
		return models.MacroSnapshot{}, fmt.Errorf("%w: primary=%d reference=%d",
			ErrInsufficientHistory, len(in.PrimaryPrices), len(in.ReferencePrices))
	}
	if math.IsNaN(in.Dominance) || in.Dominance < 0 || in.Dominance > 100 {
		return models.MacroSnapshot{}, fmt.Errorf("%w: dominance %v out of range", ErrUpstream, in.Dominance)
	}

	primary := SimpleReturns(in.PrimaryPrices)
	reference := SimpleReturns(in.ReferencePrices)

	return models.MacroSnapshot{
		Correlation: Pearson(primary, reference),
		Dominance:   in.Dominance,
		Volatility:  AnnualizedVolatility(primary),
		Momentum:    Momentum(in.PrimaryPrices, MomentumBars, MomentumGain),
		Timestamp:   now.Unix(),
	}, nil
}
