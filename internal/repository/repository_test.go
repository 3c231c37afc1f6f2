package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"
	"AgentTrader/pkg/cache"
)

func TestWeightStoreRoundTripAndDefaults(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCacheWeightStore(mc, "ETHUSDT")
	ctx := context.Background()

	w, err := s.Load(ctx)
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	assert.True(t, w.Equal(models.DefaultWeights()))

	// an older vector without the macro features is back-filled
	require.NoError(t, s.Save(ctx, models.WeightVector{models.FeatureRSI: 1.4}))
	w, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.4, w[models.FeatureRSI])
	assert.Equal(t, models.DefaultWeights()[models.FeatureZone], w[models.FeatureZone])
}

func TestWeightStoreCorruptValue(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCacheWeightStore(mc, "ETHUSDT")
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "weights:ETHUSDT", "{not json", 0))
	w, err := s.Load(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domrepo.ErrNotFound))
	assert.True(t, w.Equal(models.DefaultWeights()))
}

func TestCacheLedgerClaimsOnce(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	l := NewCacheLedger(mc, "ETHUSDT")
	ctx := context.Background()

	got, err := l.Claim(ctx, []string{"5m:300", "5m:600"})
	require.NoError(t, err)
	assert.Equal(t, []string{"5m:300", "5m:600"}, got)

	got, err = l.Claim(ctx, []string{"5m:300", "5m:900"})
	require.NoError(t, err)
	assert.Equal(t, []string{"5m:900"}, got)

	got, err = l.Claim(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTwoLedgersOnOneCache(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	a, b := NewCacheLedger(mc, "ETHUSDT"), NewCacheLedger(mc, "ETHUSDT")
	ctx := context.Background()

	tokenA, ok, err := a.Lock(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, _ = b.Lock(ctx, time.Minute)
	assert.False(t, ok, "second holder is refused")
	require.NoError(t, a.Unlock(ctx, tokenA))

	// a holder that outlived its ttl must not release the next holder's lock
	tokenA, ok, _ = a.Lock(ctx, time.Millisecond)
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	tokenB, ok, _ := b.Lock(ctx, time.Minute)
	require.True(t, ok)
	assert.ErrorIs(t, a.Unlock(ctx, tokenA), cache.ErrLockNotHeld)
	_, ok, _ = a.Lock(ctx, time.Minute)
	assert.False(t, ok, "b still holds the lock")
	require.NoError(t, b.Unlock(ctx, tokenB))

	// claims from both sides never hand out the same id twice
	fromA, err := a.Claim(ctx, []string{"1m:60", "1m:120"})
	require.NoError(t, err)
	fromB, err := b.Claim(ctx, []string{"1m:120", "1m:180"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1m:60", "1m:120"}, fromA)
	assert.Equal(t, []string{"1m:180"}, fromB)
}

func TestSignalRowShape(t *testing.T) {
	at := time.Unix(1_700_000_500, 0)
	s := models.Signal{Time: 1_700_000_100, Timeframe: models.TF5m, Type: models.SignalSell, Confidence: 0.4, Composite: -0.4, Price: 2000}
	row := signalRow("ETHUSDT", s, at)

	require.Len(t, row, 11)
	assert.Equal(t, "5m:1700000100", row[0])
	assert.Equal(t, "sell", row[4])
	assert.Equal(t, []string{}, row[8], "nil reasons become an empty array")
	assert.Equal(t, map[string]float64{}, row[9])

	o := models.Outcome{Signal: s, RealizedReturn: 0.01, EntryPrice: 2000, ExitPrice: 1980, ExitTime: 1_700_001_600}
	orow := outcomeRow("ETHUSDT", o, at)
	require.Len(t, orow, 11)
	assert.Equal(t, 0.01, orow[6])
	assert.Equal(t, time.Unix(1_700_001_600, 0).UTC(), orow[9])
}
