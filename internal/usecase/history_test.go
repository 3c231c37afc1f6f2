package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
)

func sig(tf models.Timeframe, t int64, conf float64) models.Signal {
	return models.Signal{Time: t, Timeframe: tf, Type: models.SignalBuy, Confidence: conf, Composite: conf, Reasons: []string{"RSI oversold (20.0)"}}
}

func TestHistoryOverwritesSameBar(t *testing.T) {
	h := NewSignalHistory(10)

	require.True(t, h.Record(sig(models.TF5m, 300, 0.4)))
	assert.False(t, h.Record(sig(models.TF5m, 300, 0.4)), "identical re-evaluation is a no-op")
	assert.Equal(t, uint64(1), h.Version())

	require.True(t, h.Record(sig(models.TF5m, 300, 0.7)))
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0.7, h.Recent(1)[0].Confidence)
	assert.Equal(t, uint64(2), h.Version())
}

func TestHistoryRejectsOlderBars(t *testing.T) {
	h := NewSignalHistory(10)
	require.True(t, h.Record(sig(models.TF5m, 600, 0.4)))
	assert.False(t, h.Record(sig(models.TF5m, 300, 0.4)))
	assert.True(t, h.Record(sig(models.TF1h, 300, 0.4)), "ordering is per timeframe")
	assert.Equal(t, 2, h.Len())
}

func TestHistoryCapAndOrdering(t *testing.T) {
	h := NewSignalHistory(3)
	for i := int64(1); i <= 5; i++ {
		h.Record(sig(models.TF1m, i*60, 0.5))
	}
	recent := h.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, int64(180), recent[0].Time)
	assert.Equal(t, int64(300), recent[2].Time)

	q := h.Query(models.TF1m, 2)
	require.Len(t, q, 2)
	assert.Equal(t, int64(300), q[0].Time, "query is newest first")
	assert.Empty(t, h.Query(models.TF1d, 5))
}

func TestHistoryRetract(t *testing.T) {
	h := NewSignalHistory(10)
	h.Record(sig(models.TF5m, 300, 0.4))
	h.Record(sig(models.TF5m, 600, 0.4))

	assert.False(t, h.Retract(models.TF5m, 300), "only the newest bar can be retracted")
	assert.True(t, h.Retract(models.TF5m, 600))
	assert.False(t, h.Retract(models.TF5m, 600))
	assert.Equal(t, 1, h.Len())

	assert.True(t, h.Record(sig(models.TF5m, 600, 0.5)), "retracted bar may signal again")
}
