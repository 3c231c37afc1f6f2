package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
)

func input(rsi float64, price float64) Input {
	return Input{
		Timeframe:  models.TF5m,
		Candle:     models.Candle{Time: 1700000100, Open: price, High: price, Low: price, Close: price},
		Oscillator: &models.OscillatorPoint{Time: 1700000100, Value: rsi},
		Weights:    models.DefaultWeights(),
	}
}

func TestSynthesizeOversoldBuy(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	sig, ok := s.Synthesize(input(15, 1800))
	require.True(t, ok)
	assert.Equal(t, models.SignalBuy, sig.Type)
	assert.InDelta(t, 0.5, sig.Confidence, 1e-12)
	assert.Equal(t, []string{"RSI oversold (15.0)"}, sig.Reasons)
	assert.Equal(t, "5m:1700000100", sig.ID())
	assert.InDelta(t, 0.5, sig.Contributions[models.FeatureRSI], 1e-12)
}

func TestSynthesizeOverboughtSell(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	sig, ok := s.Synthesize(input(85, 1800))
	require.True(t, ok)
	assert.Equal(t, models.SignalSell, sig.Type)
	assert.InDelta(t, 0.5, sig.Confidence, 1e-12)
	assert.InDelta(t, -0.5, sig.Composite, 1e-12)
}

func TestSynthesizeSuppressesWeakComposite(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	sig, ok := s.Synthesize(input(29, 1800))
	assert.False(t, ok)
	assert.Nil(t, sig)

	_, ok = s.Synthesize(input(50, 1800))
	assert.False(t, ok)
}

func TestSynthesizeZeroWeightsNeverEmit(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	zero := models.WeightVector{}
	for f := range models.DefaultWeights() {
		zero[f] = 0
	}
	macro := &models.MacroSnapshot{Correlation: 0.9, Dominance: 10, Volatility: 300, Momentum: -1}
	zones := []models.Zone{{Low: 1790, High: 1799}, {Low: 1801, High: 1810}}

	for _, rsi := range []float64{0, 5, 29, 50, 71, 99, 100} {
		in := input(rsi, 1800)
		in.Weights = zero
		in.Macro = macro
		in.Zones = zones
		sig, ok := s.Synthesize(in)
		assert.False(t, ok, "rsi=%v", rsi)
		assert.Nil(t, sig)
	}
}

func TestSynthesizeIsIdempotent(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	in := input(20, 1836.5)
	in.Zones = []models.Zone{{Low: 1800, High: 1820}}
	in.Macro = &models.MacroSnapshot{Correlation: 0.8, Dominance: 45, Volatility: 60, Momentum: 0.4}
	before := in.Weights.Clone()

	a, okA := s.Synthesize(in)
	b, okB := s.Synthesize(in)
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, a, b)
	assert.Equal(t, before, in.Weights)
}

func TestZoneFeatureNearSupport(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	in := input(50, 1836.5)
	in.Zones = []models.Zone{{Low: 1800, High: 1820}}

	sig, ok := s.Synthesize(in)
	require.True(t, ok)
	d := (1836.5 - 1820) / 1836.5
	assert.InDelta(t, 0.6*(1-d/0.02), sig.Composite, 1e-12)
	assert.Equal(t, models.SignalBuy, sig.Type)
	assert.Equal(t, []string{"Near support 1820.00"}, sig.Reasons)
}

func TestZoneFeatureNearResistanceAndFar(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())

	v, _ := s.zoneFeature(1000, []models.Zone{{Low: 1005, High: 1010}})
	assert.InDelta(t, -(1 - 0.005/0.02), v, 1e-12)

	v, _ = s.zoneFeature(1000, []models.Zone{{Low: 1100, High: 1110}})
	assert.Equal(t, 0.0, v)

	v, _ = s.zoneFeature(1001, []models.Zone{{Low: 1000, High: 1010}})
	assert.Equal(t, 1.0, v)
	v, _ = s.zoneFeature(1009, []models.Zone{{Low: 1000, High: 1010}})
	assert.Equal(t, -1.0, v)
}

func TestHighVolatilityDampensConfidence(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	in := input(15, 1800)
	in.Macro = &models.MacroSnapshot{Dominance: 50, Volatility: 150}

	sig, ok := s.Synthesize(in)
	require.True(t, ok)
	assert.InDelta(t, 0.25, sig.Confidence, 1e-12)
	assert.Contains(t, sig.Reasons, "High volatility dampened")
}

func TestConfidenceSaturates(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	in := input(0, 1800)
	in.Weights = models.WeightVector{models.FeatureRSI: 10}
	sig, ok := s.Synthesize(in)
	require.True(t, ok)
	assert.Equal(t, 1.0, sig.Confidence)
}

func TestNonFiniteWeightsIgnored(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	in := input(0, 1800)
	in.Weights = models.WeightVector{models.FeatureRSI: math.NaN()}
	_, ok := s.Synthesize(in)
	assert.False(t, ok)
}

func TestReasonsCappedAndOrdered(t *testing.T) {
	s := NewSynthesizer(DefaultConfig())
	in := input(10, 1836.5)
	in.Zones = []models.Zone{{Low: 1800, High: 1820}}
	in.Macro = &models.MacroSnapshot{Correlation: 0.5, Dominance: 30, Volatility: 50, Momentum: 0.9}

	sig, ok := s.Synthesize(in)
	require.True(t, ok)
	require.Len(t, sig.Reasons, 3)
	assert.Equal(t, "RSI oversold (10.0)", sig.Reasons[0])
}
