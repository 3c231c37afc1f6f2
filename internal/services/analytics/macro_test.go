package analytics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
)

func wave(n int, base, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + amp*math.Sin(float64(i)/3) + float64(i)*0.5
	}
	return out
}

func TestSimpleReturns(t *testing.T) {
	got := SimpleReturns([]float64{100, 110, 99, 0, 5})
	require.Len(t, got, 4)
	assert.InDelta(t, 0.1, got[0], 1e-12)
	assert.InDelta(t, -0.1, got[1], 1e-12)
	assert.InDelta(t, -1.0, got[2], 1e-12)
	assert.Equal(t, 0.0, got[3], "non-positive previous price yields 0")
	assert.Nil(t, SimpleReturns([]float64{1}))
}

func TestPearsonIdentities(t *testing.T) {
	r := SimpleReturns(wave(40, 100, 3))
	inv := make([]float64, len(r))
	for i, v := range r {
		inv[i] = -v
	}

	assert.InDelta(t, 1.0, Pearson(r, r), 1e-9)
	assert.InDelta(t, -1.0, Pearson(r, inv), 1e-9)
	assert.Equal(t, 0.0, Pearson(nil, r))
}

func TestPearsonAlignsTrailingWindow(t *testing.T) {
	a := []float64{9, 9, 9, 1, 2, 3}
	b := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, Pearson(a, b), 1e-9)
}

func TestPearsonBounded(t *testing.T) {
	cases := [][2][]float64{
		{{1e300, -1e300, 1e300}, {1, 2, 3}},
		{{1, 1, 1}, {1, 2, 3}},
		{{0.1, 0.2}, {0.3, -0.3}},
	}
	for _, c := range cases {
		v := Pearson(c[0], c[1])
		assert.False(t, math.IsNaN(v))
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestAnnualizedVolatilityLinearInStdDev(t *testing.T) {
	r := SimpleReturns(wave(50, 100, 4))
	double := make([]float64, len(r))
	for i, v := range r {
		double[i] = 2 * v
	}
	v1 := AnnualizedVolatility(r)
	assert.Greater(t, v1, 0.0)
	assert.InDelta(t, 2*v1, AnnualizedVolatility(double), 1e-9)
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))
}

func TestMomentumBounded(t *testing.T) {
	up := make([]float64, 30)
	for i := range up {
		up[i] = 100 * math.Pow(2, float64(i))
	}
	assert.Equal(t, 1.0, Momentum(up, MomentumBars, MomentumGain))

	down := []float64{1000, 1}
	assert.Equal(t, -1.0, Momentum(down, MomentumBars, MomentumGain))

	small := make([]float64, 25)
	for i := range small {
		small[i] = 100
	}
	small[24] = 101
	assert.InDelta(t, 0.1, Momentum(small, MomentumBars, MomentumGain), 1e-12)

	assert.Equal(t, 0.0, Momentum([]float64{0, 5}, MomentumBars, MomentumGain))
}

// Two identical 31-sample series.
func TestScenarioIdenticalSeries(t *testing.T) {
	prices := wave(31, 2000, 15)
	snap, err := ComputeSnapshot(models.MacroInputs{
		Dominance:       52.5,
		PrimaryPrices:   prices,
		ReferencePrices: prices,
	}, time.Unix(1700000000, 0))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, snap.Correlation, 1e-9)
	assert.Equal(t, 52.5, snap.Dominance)
	assert.Equal(t, int64(1700000000), snap.Timestamp)

	// hand-computed reference
	r := make([]float64, 0, 30)
	for i := 1; i < len(prices); i++ {
		r = append(r, (prices[i]-prices[i-1])/prices[i-1])
	}
	mean := 0.0
	for _, v := range r {
		mean += v
	}
	mean /= float64(len(r))
	variance := 0.0
	for _, v := range r {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(r))
	want := math.Sqrt(variance*24) * math.Sqrt(365) * 100
	assert.InDelta(t, want, snap.Volatility, 1e-9)
}

// A perfectly flat series.
func TestScenarioFlatSeries(t *testing.T) {
	flat := make([]float64, 31)
	for i := range flat {
		flat[i] = 1800
	}
	snap, err := ComputeSnapshot(models.MacroInputs{
		Dominance:       50,
		PrimaryPrices:   flat,
		ReferencePrices: wave(31, 30000, 100),
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0.0, snap.Volatility)
	assert.Equal(t, 0.0, snap.Momentum)
	assert.False(t, math.IsNaN(snap.Correlation))
	assert.Equal(t, 0.0, snap.Correlation)
}

func TestComputeSnapshotRejectsShortHistory(t *testing.T) {
	_, err := ComputeSnapshot(models.MacroInputs{
		Dominance:       50,
		PrimaryPrices:   []float64{1},
		ReferencePrices: []float64{1, 2},
	}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestComputeSnapshotRejectsBadDominance(t *testing.T) {
	_, err := ComputeSnapshot(models.MacroInputs{
		Dominance:       140,
		PrimaryPrices:   []float64{1, 2},
		ReferencePrices: []float64{1, 2},
	}, time.Now())
	assert.ErrorIs(t, err, ErrUpstream)
}
