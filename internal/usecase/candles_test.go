package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
)

func TestCandleBookReplaceSortsAndDedups(t *testing.T) {
	b := NewCandleBook(3)
	err := b.Replace(models.TF1m, []models.Candle{bar(300, 3), bar(60, 1), bar(120, 2), bar(120, 22), bar(180, 4), {Time: 240}})
	require.NoError(t, err)

	got := b.Series(models.TF1m)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{120, 180, 300}, []int64{got[0].Time, got[1].Time, got[2].Time})
	assert.Equal(t, 22.0, got[0].Close)
	assert.Equal(t, uint64(1), b.Version())
}

func TestCandleBookUpsert(t *testing.T) {
	b := NewCandleBook(2)

	changed, err := b.Upsert(models.TF5m, bar(300, 10))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = b.Upsert(models.TF5m, bar(300, 10))
	require.NoError(t, err)
	assert.False(t, changed, "identical bar is not a change")

	changed, err = b.Upsert(models.TF5m, bar(300, 11))
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, b.Series(models.TF5m), 1)
	assert.Equal(t, 11.0, b.Series(models.TF5m)[0].Close)

	_, _ = b.Upsert(models.TF5m, bar(600, 12))
	_, _ = b.Upsert(models.TF5m, bar(900, 13))
	s := b.Series(models.TF5m)
	require.Len(t, s, 2)
	assert.Equal(t, int64(600), s[0].Time)

	changed, err = b.Upsert(models.TF5m, bar(100, 1))
	require.NoError(t, err)
	assert.False(t, changed, "bars older than the window are ignored")

	assert.Equal(t, uint64(4), b.TimeframeVersion(models.TF5m))
	assert.Equal(t, uint64(0), b.TimeframeVersion(models.TF1h))
}

func TestCandleBookRejectsInvalid(t *testing.T) {
	b := NewCandleBook(0)
	_, err := b.Upsert("2m", bar(60, 1))
	assert.Error(t, err)
	_, err = b.Upsert(models.TF1m, models.Candle{Time: 60, Open: 1, High: 0.5, Low: 1, Close: 1})
	assert.Error(t, err)
	assert.Equal(t, uint64(0), b.Version())
}

func TestCandlesUseCaseTail(t *testing.T) {
	b := NewCandleBook(10)
	for i := int64(1); i <= 5; i++ {
		_, _ = b.Upsert(models.TF1h, bar(i*3600, float64(i)))
	}
	uc := NewCandlesUseCase(b)

	res, err := uc.GetCandles(models.TF1h, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 5.0, res.Candles[1].Close)

	res, err = uc.GetCandles(models.TF1d, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.NotNil(t, res.Candles)

	_, err = uc.GetCandles("3m", 2)
	assert.Error(t, err)
}
