package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/domain/repository"
	domsvc "AgentTrader/internal/domain/service"
	"AgentTrader/internal/services/learning"
	"AgentTrader/internal/services/signals"
	"AgentTrader/pkg/logger"
)

// MacroState is the read side of the macro service. Load returns a snapshot
// and the version it was committed as.
type MacroState interface {
	Load() (*models.MacroSnapshot, uint64)
}

// node tracks the input versions a timeframe was last evaluated with.
type node struct {
	mu             sync.Mutex
	candlesVersion uint64
	macroVersion   uint64
	weightsVersion uint64
	evaluated      bool
	indicators     models.IndicatorSet
	indicatorsAt   uint64
}

// Engine drives candles -> indicators -> signal -> history for every timeframe.
// A timeframe is re-evaluated only when its candles, the macro snapshot or the
// committed weights changed since the previous evaluation.
type Engine struct {
	timeframes []models.Timeframe
	book       *CandleBook
	indicators domsvc.IndicatorProvider
	synth      *signals.Synthesizer
	macro      MacroState
	weights    *learning.WeightState
	history    *SignalHistory
	alerter    *Alerter
	publisher  repository.SignalPublisher
	recorder   repository.SignalRecorder
	metrics    repository.Metrics
	log        *logger.Logger

	nodes map[models.Timeframe]*node
}

type EngineDeps struct {
	Timeframes []models.Timeframe
	Book       *CandleBook
	Indicators domsvc.IndicatorProvider
	Synth      *signals.Synthesizer
	Macro      MacroState
	Weights    *learning.WeightState
	History    *SignalHistory
	Alerter    *Alerter
	Publisher  repository.SignalPublisher
	Recorder   repository.SignalRecorder
	Metrics    repository.Metrics
	Log        *logger.Logger
}

func NewEngine(d EngineDeps) *Engine {
	tfs := d.Timeframes
	if len(tfs) == 0 {
		tfs = models.AllTimeframes
	}
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		timeframes: append([]models.Timeframe(nil), tfs...),
		book:       d.Book,
		indicators: d.Indicators,
		synth:      d.Synth,
		macro:      d.Macro,
		weights:    d.Weights,
		history:    d.History,
		alerter:    d.Alerter,
		publisher:  d.Publisher,
		recorder:   d.Recorder,
		metrics:    d.Metrics,
		log:        log,
		nodes:      make(map[models.Timeframe]*node, len(tfs)),
	}
	for _, tf := range e.timeframes {
		e.nodes[tf] = &node{}
	}
	return e
}

func (e *Engine) Timeframes() []models.Timeframe {
	return append([]models.Timeframe(nil), e.timeframes...)
}

// Backfill loads historical candles for every timeframe in parallel.
// Timeframes that fail stay empty and fill from the live stream.
func (e *Engine) Backfill(ctx context.Context, src repository.CandleSource, limit int) error {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	for _, tf := range e.timeframes {
		wg.Add(1)
		go func(tf models.Timeframe) {
			defer wg.Done()
			cs, err := src.Backfill(ctx, tf, limit)
			if err == nil {
				err = e.book.Replace(tf, cs)
			}
			if err != nil {
				e.log.Warn("backfill failed", logger.String("tf", tf.String()), logger.Error(err))
				if e.metrics != nil {
					e.metrics.RecordError("backfill")
				}
				mu.Lock()
				if first == nil {
					first = fmt.Errorf("backfill %s: %w", tf, err)
				}
				mu.Unlock()
				return
			}
			e.log.Info("backfill loaded", logger.String("tf", tf.String()), logger.Int("candles", len(cs)))
		}(tf)
	}
	wg.Wait()
	return first
}

// OnCandle applies a live update and re-evaluates its timeframe.
func (e *Engine) OnCandle(ctx context.Context, u models.CandleUpdate) {
	if _, ok := e.nodes[u.Timeframe]; !ok {
		return
	}
	changed, err := e.book.Upsert(u.Timeframe, u.Candle)
	if err != nil {
		e.log.Debug("candle rejected", logger.String("tf", u.Timeframe.String()), logger.Error(err))
		if e.metrics != nil {
			e.metrics.RecordError("candle_invalid")
		}
		return
	}
	if e.metrics != nil {
		e.metrics.RecordCandle(u.Timeframe.String(), u.Closed)
	}
	if !changed {
		return
	}
	e.Evaluate(ctx, u.Timeframe)
}

// EvaluateAll re-evaluates every timeframe in parallel.
func (e *Engine) EvaluateAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, tf := range e.timeframes {
		wg.Add(1)
		go func(tf models.Timeframe) {
			defer wg.Done()
			e.Evaluate(ctx, tf)
		}(tf)
	}
	wg.Wait()
}

// Evaluate runs one timeframe through the graph. It returns the signal
// recorded for the latest bar, if any.
func (e *Engine) Evaluate(ctx context.Context, tf models.Timeframe) *models.Signal {
	n, ok := e.nodes[tf]
	if !ok {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	candles, cv := e.book.Snapshot(tf)
	var mv uint64
	var snap *models.MacroSnapshot
	if e.macro != nil {
		snap, mv = e.macro.Load()
	}
	weights, wv := e.weights.Load()

	if n.evaluated && n.candlesVersion == cv && n.macroVersion == mv && n.weightsVersion == wv {
		return nil
	}
	n.candlesVersion, n.macroVersion, n.weightsVersion, n.evaluated = cv, mv, wv, true
	if len(candles) == 0 {
		return nil
	}

	start := time.Now()
	if n.indicatorsAt != cv || n.indicators.Timeframe == "" {
		n.indicators = e.indicators.Compute(tf, candles)
		n.indicatorsAt = cv
	}

	last := candles[len(candles)-1]
	in := signals.Input{
		Timeframe: tf,
		Candle:    last,
		Zones:     n.indicators.Zones,
		Macro:     snap,
		Weights:   weights,
	}
	if p, ok := n.indicators.LatestOscillator(); ok && p.Time == last.Time {
		in.Oscillator = &p
	}

	sig, ok := e.synth.Synthesize(in)
	if e.metrics != nil {
		e.metrics.RecordLatency("evaluate", time.Since(start).Seconds())
	}
	if !ok {
		if e.history.Retract(tf, last.Time) {
			e.log.Debug("signal retracted", logger.String("id", models.SignalID(tf, last.Time)))
		}
		if e.metrics != nil {
			e.metrics.RecordSuppressed(tf.String())
		}
		return nil
	}
	if !e.history.Record(*sig) {
		return nil
	}
	if e.metrics != nil {
		e.metrics.RecordSignal(tf.String(), string(sig.Type))
	}
	e.emit(ctx, *sig)
	return sig
}

func (e *Engine) emit(ctx context.Context, s models.Signal) {
	e.log.Debug("signal recorded",
		logger.String("id", s.ID()),
		logger.String("type", string(s.Type)),
		logger.Float64("confidence", s.Confidence))

	if e.publisher != nil {
		if err := e.publisher.PublishSignal(ctx, s); err != nil {
			e.log.Warn("signal publish failed", logger.String("id", s.ID()), logger.Error(err))
			if e.metrics != nil {
				e.metrics.RecordError("signal_publish")
			}
		}
	}
	if e.recorder != nil {
		if err := e.recorder.RecordSignals(ctx, []models.Signal{s}); err != nil {
			e.log.Warn("signal audit failed", logger.String("id", s.ID()), logger.Error(err))
		}
	}
	if e.alerter != nil {
		if _, err := e.alerter.Consider(ctx, s); err != nil {
			e.log.Warn("alert failed", logger.String("id", s.ID()), logger.Error(err))
		}
	}
}

// Run backfills, evaluates once and then follows the live stream until ctx ends.
func (e *Engine) Run(ctx context.Context, src repository.CandleSource, backfill int) error {
	if err := e.Backfill(ctx, src, backfill); err != nil && ctx.Err() != nil {
		return err
	}
	e.EvaluateAll(ctx)
	return src.Stream(ctx, e.timeframes, func(u models.CandleUpdate) {
		e.OnCandle(ctx, u)
	})
}
