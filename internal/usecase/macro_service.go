package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/domain/repository"
	"AgentTrader/internal/services/analytics"
	"AgentTrader/pkg/logger"
)

// MacroService keeps the latest committed macro snapshot.
// Fetches may overlap; only the newest one to start is allowed to commit.
type MacroService struct {
	source   repository.MacroSource
	recorder repository.SignalRecorder
	metrics  repository.Metrics
	log      *logger.Logger
	now      func() time.Time
	timeout  time.Duration

	seq       atomic.Uint64
	mu        sync.Mutex
	committed uint64
	current   atomic.Pointer[macroState]
	running   atomic.Bool
}

// macroState pairs a snapshot with the version it was committed as, so
// readers see both from one load.
type macroState struct {
	snap    models.MacroSnapshot
	version uint64
}

type MacroOption func(*MacroService)

// WithMacroTimeout bounds one upstream fetch.
func WithMacroTimeout(d time.Duration) MacroOption {
	return func(s *MacroService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMacroClock replaces the snapshot timestamp source.
func WithMacroClock(now func() time.Time) MacroOption {
	return func(s *MacroService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMacroService(source repository.MacroSource, recorder repository.SignalRecorder, metrics repository.Metrics, log *logger.Logger, opts ...MacroOption) *MacroService {
	s := &MacroService{
		source:   source,
		recorder: recorder,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
		timeout:  20 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.running.Store(true)
	return s
}

// Compute always fetches and computes a fresh snapshot without committing it.
func (s *MacroService) Compute(ctx context.Context) (models.MacroSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	in, err := s.source.FetchInputs(ctx)
	if err != nil {
		return models.MacroSnapshot{}, fmt.Errorf("%w: %v", analytics.ErrUpstream, err)
	}
	snap, err := analytics.ComputeSnapshot(in, s.now())
	if err != nil {
		return models.MacroSnapshot{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordLatency("macro_fetch", time.Since(start).Seconds())
	}
	return snap, nil
}

// Refresh computes a snapshot and commits it unless the service stopped,
// ctx was cancelled, or a fetch that started later already committed.
// On failure the previous snapshot stays in place.
func (s *MacroService) Refresh(ctx context.Context) error {
	seq := s.seq.Add(1)
	snap, err := s.Compute(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("macro_fetch")
		}
		s.log.Warn("macro refresh failed, keeping previous snapshot", logger.Error(err))
		return err
	}
	if !s.running.Load() || ctx.Err() != nil {
		return nil
	}

	s.mu.Lock()
	if seq <= s.committed {
		s.mu.Unlock()
		s.log.Debug("stale macro fetch discarded", logger.Uint64("seq", seq))
		return nil
	}
	s.committed = seq
	var version uint64 = 1
	if prev := s.current.Load(); prev != nil {
		version = prev.version + 1
	}
	s.current.Store(&macroState{snap: snap, version: version})
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordMacro(snap)
	}
	if s.recorder != nil {
		if err := s.recorder.RecordSnapshot(ctx, snap); err != nil {
			s.log.Warn("macro snapshot audit failed", logger.Error(err))
		}
	}
	s.log.Info("macro snapshot committed",
		logger.Float64("correlation", snap.Correlation),
		logger.Float64("dominance", snap.Dominance),
		logger.Float64("volatility", snap.Volatility),
		logger.Float64("momentum", snap.Momentum))
	return nil
}

// Load returns the committed snapshot together with its version. The
// snapshot is nil and the version 0 before the first success.
func (s *MacroService) Load() (*models.MacroSnapshot, uint64) {
	st := s.current.Load()
	if st == nil {
		return nil, 0
	}
	c := st.snap
	return &c, st.version
}

// Snapshot returns the committed snapshot, or nil before the first success.
func (s *MacroService) Snapshot() *models.MacroSnapshot {
	snap, _ := s.Load()
	return snap
}

// Version changes on every commit.
func (s *MacroService) Version() uint64 {
	_, v := s.Load()
	return v
}

// Stop prevents in-flight fetches from committing.
func (s *MacroService) Stop() {
	s.running.Store(false)
}
