package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/domain/repository"
	"AgentTrader/pkg/logger"
)

// ErrLearnerBusy is returned when another process holds the learning lock.
var ErrLearnerBusy = errors.New("learning cycle held elsewhere")

// SignalHistory exposes the most recent signals, oldest first.
type SignalHistory interface {
	Recent(n int) []models.Signal
	Version() uint64
}

// CandleSeries exposes the current candle series of a timeframe.
type CandleSeries interface {
	Series(tf models.Timeframe) []models.Candle
	Version() uint64
}

type LearnerConfig struct {
	Window  int // most recent signals considered per tick
	Horizon int
	LockTTL time.Duration
}

func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{Window: 20, Horizon: DefaultHorizon, LockTTL: 30 * time.Second}
}

// TickResult summarizes one learning cycle.
type TickResult struct {
	Graded   int
	Fresh    int
	Skipped  bool
	Version  uint64
	Weights  models.WeightVector
	Outcomes []models.Outcome
}

// Learner grades recent signals and applies each outcome to the weights exactly once.
type Learner struct {
	cfg      LearnerConfig
	history  SignalHistory
	candles  CandleSeries
	ledger   repository.OutcomeLedger
	store    repository.WeightStore
	state    *WeightState
	adapter  *Adapter
	enabled  *Toggle
	recorder repository.SignalRecorder
	metrics  repository.Metrics
	log      *logger.Logger

	lastHistory uint64
	lastCandles uint64
}

func NewLearner(
	cfg LearnerConfig,
	history SignalHistory,
	candles CandleSeries,
	ledger repository.OutcomeLedger,
	store repository.WeightStore,
	state *WeightState,
	adapter *Adapter,
	enabled *Toggle,
	recorder repository.SignalRecorder,
	metrics repository.Metrics,
	log *logger.Logger,
) *Learner {
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Learner{
		cfg:      cfg,
		history:  history,
		candles:  candles,
		ledger:   ledger,
		store:    store,
		state:    state,
		adapter:  adapter,
		enabled:  enabled,
		recorder: recorder,
		metrics:  metrics,
		log:      log,
	}
}

// Dirty reports whether history or candles moved since the last completed tick.
// Candles matter too: a pending signal becomes gradable when its forward bar arrives.
func (l *Learner) Dirty() bool {
	return l.history.Version() != l.lastHistory || l.candles.Version() != l.lastCandles
}

// Outcomes grades the current window without touching weights.
func (l *Learner) Outcomes() []models.Outcome {
	recent := l.history.Recent(l.cfg.Window)
	return EvaluateOutcomes(recent, l.collect(recent), l.cfg.Horizon)
}

// Tick runs one learning cycle. It is not safe for concurrent use; the
// scheduler serializes calls.
func (l *Learner) Tick(ctx context.Context) (TickResult, error) {
	if l.enabled != nil && !l.enabled.Enabled() {
		w, v := l.state.Load()
		return TickResult{Skipped: true, Version: v, Weights: w}, nil
	}

	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.RecordLatency("learning_tick", time.Since(start).Seconds())
		}
	}()

	historyVersion, candlesVersion := l.history.Version(), l.candles.Version()
	recent := l.history.Recent(l.cfg.Window)
	outcomes := EvaluateOutcomes(recent, l.collect(recent), l.cfg.Horizon)
	if l.metrics != nil {
		l.metrics.RecordOutcomes(len(outcomes), len(recent)-len(outcomes))
	}
	if len(outcomes) == 0 {
		l.lastHistory, l.lastCandles = historyVersion, candlesVersion
		w, v := l.state.Load()
		return TickResult{Version: v, Weights: w}, nil
	}

	token, locked, err := l.ledger.Lock(ctx, l.cfg.LockTTL)
	if err != nil {
		return TickResult{}, fmt.Errorf("ledger lock: %w", err)
	}
	if !locked {
		return TickResult{}, ErrLearnerBusy
	}
	defer func() {
		// release with a fresh context so cancellation does not strand the lock
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.ledger.Unlock(uctx, token); err != nil {
			l.log.Warn("ledger unlock failed", logger.Error(err))
		}
	}()

	current, version := l.state.Load()
	res := TickResult{Graded: len(outcomes), Version: version, Weights: current}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("learning tick abandoned: %w", err)
	}

	ids := make([]string, len(outcomes))
	for i, o := range outcomes {
		ids[i] = o.Signal.ID()
	}
	// Claim before commit: a crash in between loses one nudge instead of applying it twice.
	claimed, err := l.ledger.Claim(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("ledger claim: %w", err)
	}
	own := make(map[string]bool, len(claimed))
	for _, id := range claimed {
		own[id] = true
	}
	fresh := make([]models.Outcome, 0, len(claimed))
	for _, o := range outcomes {
		if own[o.Signal.ID()] {
			fresh = append(fresh, o)
		}
	}
	res.Fresh, res.Outcomes = len(fresh), fresh
	if len(fresh) == 0 {
		l.lastHistory, l.lastCandles = historyVersion, candlesVersion
		return res, nil
	}

	next := l.adapter.Adapt(current, fresh)
	res.Version = l.state.Commit(next)
	res.Weights = next.Clone()
	l.lastHistory, l.lastCandles = historyVersion, candlesVersion

	if err := l.store.Save(ctx, next); err != nil {
		l.log.Warn("weight save failed, will retry on shutdown", logger.Error(err))
		if l.metrics != nil {
			l.metrics.RecordError("weight_save")
		}
	}
	if l.recorder != nil {
		if err := l.recorder.RecordOutcomes(ctx, fresh); err != nil {
			l.log.Warn("outcome audit failed", logger.Error(err))
		}
	}
	if l.metrics != nil {
		l.metrics.RecordAdaptation(len(fresh))
		l.metrics.RecordWeights(next)
	}

	l.log.Info("weights adapted",
		logger.Int("outcomes", len(fresh)),
		logger.Int64("version", int64(res.Version)),
		logger.Any("weights", next))
	return res, nil
}

func (l *Learner) collect(recent []models.Signal) map[models.Timeframe][]models.Candle {
	out := make(map[models.Timeframe][]models.Candle)
	for _, s := range recent {
		if _, ok := out[s.Timeframe]; ok {
			continue
		}
		out[s.Timeframe] = l.candles.Series(s.Timeframe)
	}
	return out
}
