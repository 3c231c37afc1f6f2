package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/services/analytics"
	"AgentTrader/pkg/logger"
)

type funcMacroSource func(ctx context.Context) (models.MacroInputs, error)

func (f funcMacroSource) FetchInputs(ctx context.Context) (models.MacroInputs, error) {
	return f(ctx)
}

func inputs(dominance float64) models.MacroInputs {
	return models.MacroInputs{
		Dominance:       dominance,
		PrimaryPrices:   []float64{100, 101, 103, 102},
		ReferencePrices: []float64{50, 51, 52, 51},
	}
}

func TestMacroRefreshCommits(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	svc := NewMacroService(funcMacroSource(func(context.Context) (models.MacroInputs, error) {
		return inputs(52), nil
	}), nil, nil, logger.Nop(), WithMacroClock(func() time.Time { return now }))

	assert.Nil(t, svc.Snapshot())
	require.NoError(t, svc.Refresh(context.Background()))

	snap := svc.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 52.0, snap.Dominance)
	assert.Equal(t, now.Unix(), snap.Timestamp)
	assert.Equal(t, uint64(1), svc.Version())
}

func TestMacroRefreshFailureKeepsPrevious(t *testing.T) {
	fail := false
	svc := NewMacroService(funcMacroSource(func(context.Context) (models.MacroInputs, error) {
		if fail {
			return models.MacroInputs{}, errors.New("timeout")
		}
		return inputs(40), nil
	}), nil, nil, logger.Nop())

	require.NoError(t, svc.Refresh(context.Background()))
	fail = true
	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrUpstream)
	require.NotNil(t, svc.Snapshot())
	assert.Equal(t, 40.0, svc.Snapshot().Dominance)
	assert.Equal(t, uint64(1), svc.Version())
}

func TestMacroRefreshInsufficientHistory(t *testing.T) {
	svc := NewMacroService(funcMacroSource(func(context.Context) (models.MacroInputs, error) {
		return models.MacroInputs{Dominance: 50, PrimaryPrices: []float64{1}, ReferencePrices: []float64{1, 2}}, nil
	}), nil, nil, logger.Nop())

	err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, analytics.ErrInsufficientHistory)
	assert.ErrorIs(t, err, analytics.ErrUpstream)
	assert.Nil(t, svc.Snapshot())
}

func TestMacroRefreshDiscardsStaleFetch(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0

	svc := NewMacroService(funcMacroSource(func(context.Context) (models.MacroInputs, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(entered)
			<-release
			return inputs(10), nil
		}
		return inputs(20), nil
	}), nil, nil, logger.Nop())

	done := make(chan error)
	go func() { done <- svc.Refresh(context.Background()) }()
	<-entered

	require.NoError(t, svc.Refresh(context.Background()))
	close(release)
	require.NoError(t, <-done)

	require.NotNil(t, svc.Snapshot())
	assert.Equal(t, 20.0, svc.Snapshot().Dominance, "older fetch must not overwrite a newer commit")
	assert.Equal(t, uint64(1), svc.Version())
}

func TestMacroStopPreventsCommit(t *testing.T) {
	svc := NewMacroService(funcMacroSource(func(context.Context) (models.MacroInputs, error) {
		return inputs(30), nil
	}), nil, nil, logger.Nop())
	svc.Stop()

	require.NoError(t, svc.Refresh(context.Background()))
	assert.Nil(t, svc.Snapshot())
}

func TestMacroComputeDoesNotCommit(t *testing.T) {
	svc := NewMacroService(funcMacroSource(func(context.Context) (models.MacroInputs, error) {
		return inputs(30), nil
	}), nil, nil, logger.Nop())

	snap, err := svc.Compute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30.0, snap.Dominance)
	assert.Nil(t, svc.Snapshot())
}

func TestMacroLoadPairsSnapshotWithVersion(t *testing.T) {
	dom := 40.0
	svc := NewMacroService(funcMacroSource(func(context.Context) (models.MacroInputs, error) {
		return inputs(dom), nil
	}), nil, nil, logger.Nop())

	snap, v := svc.Load()
	assert.Nil(t, snap)
	assert.Zero(t, v)

	require.NoError(t, svc.Refresh(context.Background()))
	dom = 45
	require.NoError(t, svc.Refresh(context.Background()))

	snap, v = svc.Load()
	require.NotNil(t, snap)
	assert.Equal(t, uint64(2), v)
	assert.Equal(t, 45.0, snap.Dominance)

	snap.Dominance = 0
	again, _ := svc.Load()
	assert.Equal(t, 45.0, again.Dominance, "callers get a copy")
}
