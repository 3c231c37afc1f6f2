package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"AgentTrader/internal/domain/models"
)

func update(tf models.Timeframe, t int64, closed bool) models.CandleUpdate {
	return models.CandleUpdate{
		Timeframe: tf,
		Candle:    models.Candle{Time: t, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1},
		Closed:    closed,
	}
}

func TestPipelineThrottlesInProgressBars(t *testing.T) {
	now := time.Unix(1000, 0)
	var got []models.CandleUpdate
	p := NewRealtimePipeline(func(_ context.Context, u models.CandleUpdate) {
		got = append(got, u)
	}, nil, WithMaxRPS(2), withClock(func() time.Time { return now }))
	ctx := context.Background()

	assert.NoError(t, p.Process(ctx, update(models.TF1m, 60, false)))
	assert.NoError(t, p.Process(ctx, update(models.TF1m, 60, false)))
	assert.Len(t, got, 1, "second update inside the gap is dropped")

	assert.NoError(t, p.Process(ctx, update(models.TF5m, 300, false)))
	assert.Len(t, got, 2, "throttle is per timeframe")

	assert.NoError(t, p.Process(ctx, update(models.TF1m, 60, true)))
	assert.Len(t, got, 3, "closed bars always pass")

	now = now.Add(600 * time.Millisecond)
	assert.NoError(t, p.Process(ctx, update(models.TF1m, 120, false)))
	assert.Len(t, got, 4)
}

func TestPipelineRejectsInvalid(t *testing.T) {
	called := false
	p := NewRealtimePipeline(func(context.Context, models.CandleUpdate) { called = true }, nil, WithMaxRPS(0))

	assert.Error(t, p.Process(context.Background(), update("7m", 60, true)))
	bad := update(models.TF1m, 60, true)
	bad.Candle.Close = -1
	assert.Error(t, p.Process(context.Background(), bad))
	assert.False(t, called)
}

func TestPipelineTransform(t *testing.T) {
	var got models.CandleUpdate
	p := NewRealtimePipeline(func(_ context.Context, u models.CandleUpdate) { got = u }, nil,
		WithTransform(func(u models.CandleUpdate) models.CandleUpdate {
			u.Candle.Time /= 1000
			return u
		}))
	assert.NoError(t, p.Process(context.Background(), update(models.TF1m, 60_000, true)))
	assert.Equal(t, int64(60), got.Candle.Time)
}

type sliceSource struct {
	updates []models.CandleUpdate
}

func (s sliceSource) Backfill(context.Context, models.Timeframe, int) ([]models.Candle, error) {
	return []models.Candle{{Time: 60, Open: 1, High: 1, Low: 1, Close: 1}}, nil
}

func (s sliceSource) Stream(_ context.Context, _ []models.Timeframe, fn func(models.CandleUpdate)) error {
	for _, u := range s.updates {
		fn(u)
	}
	return nil
}

func TestPipelineSourceFiltersStream(t *testing.T) {
	now := time.Unix(1000, 0)
	p := NewRealtimePipeline(nil, nil, WithMaxRPS(1), withClock(func() time.Time { return now }))
	src := p.Source(sliceSource{updates: []models.CandleUpdate{
		update(models.TF1m, 60, false),
		update(models.TF1m, 60, false),
		update("bogus", 60, true),
		update(models.TF1m, 60, true),
	}})

	backfill, err := src.Backfill(context.Background(), models.TF1m, 10)
	assert.NoError(t, err)
	assert.Len(t, backfill, 1)

	var got []models.CandleUpdate
	assert.NoError(t, src.Stream(context.Background(), nil, func(u models.CandleUpdate) { got = append(got, u) }))
	assert.Len(t, got, 2)
	assert.True(t, got[1].Closed)
}

func TestPipelineLimiterFollowsInjectedClock(t *testing.T) {
	now := time.Unix(5000, 0)
	n := 0
	p := NewRealtimePipeline(func(context.Context, models.CandleUpdate) { n++ }, nil,
		WithMaxRPS(1), withClock(func() time.Time { return now }))
	ctx := context.Background()

	assert.NoError(t, p.Process(ctx, update(models.TF1h, 3600, false)))
	now = now.Add(500 * time.Millisecond)
	assert.NoError(t, p.Process(ctx, update(models.TF1h, 3600, false)))
	assert.Equal(t, 1, n)

	// closed bars bypass the limiter and do not spend its token
	assert.NoError(t, p.Process(ctx, update(models.TF1h, 3600, true)))
	assert.Equal(t, 2, n)

	now = now.Add(500 * time.Millisecond)
	assert.NoError(t, p.Process(ctx, update(models.TF1h, 7200, false)))
	assert.Equal(t, 3, n)
}

func TestPipelineZeroRPSDisablesThrottle(t *testing.T) {
	n := 0
	p := NewRealtimePipeline(func(context.Context, models.CandleUpdate) { n++ }, nil, WithMaxRPS(0))
	for i := 0; i < 5; i++ {
		assert.NoError(t, p.Process(context.Background(), update(models.TF1m, 60, false)))
	}
	assert.Equal(t, 5, n)
}
