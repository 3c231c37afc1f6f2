package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"

	"golang.org/x/time/rate"
)

// Sink receives candle updates that passed the pipeline.
type Sink func(ctx context.Context, u models.CandleUpdate)

// RealtimePipeline sits between a live candle feed and the engine.
// It validates updates and throttles in-progress bars per timeframe.
// Closed bars always pass.
type RealtimePipeline struct {
	sink      Sink
	metrics   domrepo.Metrics
	limit     rate.Limit
	mu        sync.Mutex
	limiters  map[models.Timeframe]*rate.Limiter
	transform func(models.CandleUpdate) models.CandleUpdate
	now       func() time.Time
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max in-progress updates per second per timeframe.
// Zero disables throttling.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n <= 0 {
			p.limit = rate.Inf
			return
		}
		p.limit = rate.Limit(n)
	}
}

// WithTransform sets a hook applied before validation.
func WithTransform(fn func(models.CandleUpdate) models.CandleUpdate) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

func withClock(now func() time.Time) PipelineOption {
	return func(p *RealtimePipeline) { p.now = now }
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		sink:     sink,
		metrics:  metrics,
		limit:    rate.Limit(4),
		limiters: make(map[models.Timeframe]*rate.Limiter),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates, throttles and forwards u. Throttled updates are dropped
// silently; the next update carries the same bar with newer values.
func (p *RealtimePipeline) Process(ctx context.Context, u models.CandleUpdate) error {
	return p.forward(ctx, u, p.sink)
}

func (p *RealtimePipeline) forward(ctx context.Context, u models.CandleUpdate, sink Sink) error {
	start := p.now()
	if p.transform != nil {
		u = p.transform(u)
	}
	if err := validateUpdate(u); err != nil {
		p.recordError("pipeline_validate")
		return err
	}
	if !u.Closed && !p.allow(u.Timeframe, start) {
		p.recordError("pipeline_throttle")
		return nil
	}

	if sink != nil {
		sink(ctx, u)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	}
	return nil
}

// Handle adapts Process to a stream callback.
func (p *RealtimePipeline) Handle(ctx context.Context) func(models.CandleUpdate) {
	return func(u models.CandleUpdate) {
		_ = p.Process(ctx, u)
	}
}

// Source wraps src so its live updates pass the pipeline before reaching
// the stream callback. Backfill is untouched.
func (p *RealtimePipeline) Source(src domrepo.CandleSource) domrepo.CandleSource {
	return &pipedSource{src: src, p: p}
}

type pipedSource struct {
	src domrepo.CandleSource
	p   *RealtimePipeline
}

func (s *pipedSource) Backfill(ctx context.Context, tf models.Timeframe, limit int) ([]models.Candle, error) {
	return s.src.Backfill(ctx, tf, limit)
}

func (s *pipedSource) Stream(ctx context.Context, tfs []models.Timeframe, fn func(models.CandleUpdate)) error {
	return s.src.Stream(ctx, tfs, func(u models.CandleUpdate) {
		_ = s.p.forward(ctx, u, func(_ context.Context, u models.CandleUpdate) { fn(u) })
	})
}

func (p *RealtimePipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func validateUpdate(u models.CandleUpdate) error {
	if !models.IsValidTimeframe(u.Timeframe) {
		return fmt.Errorf("timeframe invalid: %q", u.Timeframe)
	}
	return u.Candle.Validate()
}

// allow reports whether an in-progress update for tf may pass at now.
// Closed bars never reach it.
func (p *RealtimePipeline) allow(tf models.Timeframe, now time.Time) bool {
	if p.limit == rate.Inf {
		return true
	}
	p.mu.Lock()
	lim, ok := p.limiters[tf]
	if !ok {
		lim = rate.NewLimiter(p.limit, 1)
		p.limiters[tf] = lim
	}
	p.mu.Unlock()
	return lim.AllowN(now, 1)
}
