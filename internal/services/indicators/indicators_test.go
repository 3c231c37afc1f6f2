package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
)

func series(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Time: int64(60 * (i + 1)), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return out
}

func TestRSIMonotonicSeries(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	pts := RSI(series(up...), 14, SmoothingEMA)
	require.Len(t, pts, 6)
	assert.Equal(t, int64(60*15), pts[0].Time)
	for _, p := range pts {
		assert.Equal(t, 100.0, p.Value)
	}

	down := make([]float64, 20)
	for i := range down {
		down[i] = 200 - float64(i)
	}
	for _, p := range RSI(series(down...), 14, SmoothingSMA) {
		assert.Equal(t, 0.0, p.Value)
	}
}

func TestRSIFlatIsNeutral(t *testing.T) {
	flat := make([]float64, 16)
	for i := range flat {
		flat[i] = 10
	}
	pts := RSI(series(flat...), 14, SmoothingEMA)
	require.Len(t, pts, 2)
	assert.Equal(t, 50.0, pts[1].Value)
}

func TestRSIBoundedAndShortInput(t *testing.T) {
	assert.Nil(t, RSI(series(1, 2, 3), 14, SmoothingEMA))
	pts := RSI(series(10, 12, 11, 15, 9, 14, 13, 8, 16, 12), 3, SmoothingSMA)
	for _, p := range pts {
		assert.GreaterOrEqual(t, p.Value, 0.0)
		assert.LessOrEqual(t, p.Value, 100.0)
	}
}

func TestZonesClusterRepeatedPivots(t *testing.T) {
	// two lows near 100 and two highs near 110
	closes := []float64{105, 103, 100, 103, 106, 110, 106, 103, 100.1, 103, 106, 110.2, 106, 104}
	zones := Zones(series(closes...), 2, 0.005, 5)
	require.NotEmpty(t, zones)
	for _, z := range zones {
		assert.LessOrEqual(t, z.Low, z.High)
	}
	assert.Equal(t, 2, zones[0].Touches)
}

func TestProviderImplementsPort(t *testing.T) {
	p := NewProvider(DefaultConfig())
	set := p.Compute(models.TF5m, series(1, 2, 3))
	assert.Equal(t, models.TF5m, set.Timeframe)
	assert.Empty(t, set.Oscillator)
}
