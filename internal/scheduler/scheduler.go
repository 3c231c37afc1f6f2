package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AgentTrader/internal/services/learning"
	"AgentTrader/pkg/logger"

	"github.com/robfig/cron/v3"
)

type MacroRefresher interface {
	Refresh(ctx context.Context) error
	Version() uint64
}

type LearningTicker interface {
	Dirty() bool
	Tick(ctx context.Context) (learning.TickResult, error)
}

type Evaluator interface {
	EvaluateAll(ctx context.Context)
}

// Scheduler drives the timer-based triggers: macro refresh and learning ticks.
// Each job is skipped while its previous run is still going.
type Scheduler struct {
	cron    *cron.Cron
	macro   MacroRefresher
	learner LearningTicker
	engine  Evaluator
	log     *logger.Logger
	ctx     context.Context
}

func New(macro MacroRefresher, learner LearningTicker, engine Evaluator, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		macro:   macro,
		learner: learner,
		engine:  engine,
		log:     log,
		ctx:     context.Background(),
	}
}

// Register adds the macro and learning jobs. A zero interval disables a job.
func (s *Scheduler) Register(macroEvery, learnEvery time.Duration) error {
	if macroEvery > 0 && s.macro != nil {
		if _, err := s.cron.AddFunc(every(macroEvery), s.RefreshMacro); err != nil {
			return fmt.Errorf("register macro job: %w", err)
		}
	}
	if learnEvery > 0 && s.learner != nil {
		if _, err := s.cron.AddFunc(every(learnEvery), s.Learn); err != nil {
			return fmt.Errorf("register learning job: %w", err)
		}
	}
	return nil
}

// Every registers an extra maintenance job.
func (s *Scheduler) Every(d time.Duration, fn func()) error {
	if _, err := s.cron.AddFunc(every(d), fn); err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	return nil
}

func every(d time.Duration) string { return "@every " + d.String() }

// Start binds the jobs to ctx and starts the timers. It must be called once,
// before any job runs.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info("scheduler started", logger.Int("jobs", len(s.cron.Entries())))
}

// Stop halts the timers and waits for running jobs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
	s.log.Info("scheduler stopped")
}

// RefreshMacro fetches a new snapshot and re-evaluates every timeframe when it committed.
func (s *Scheduler) RefreshMacro() {
	if s.ctx.Err() != nil {
		return
	}
	before := s.macro.Version()
	if err := s.macro.Refresh(s.ctx); err != nil {
		// already logged by the service; previous snapshot stays in effect
		return
	}
	if s.macro.Version() != before && s.engine != nil {
		s.engine.EvaluateAll(s.ctx)
	}
}

// Learn runs one learning cycle when history or candles moved since the last one.
func (s *Scheduler) Learn() {
	if s.ctx.Err() != nil || !s.learner.Dirty() {
		return
	}
	res, err := s.learner.Tick(s.ctx)
	switch {
	case errors.Is(err, learning.ErrLearnerBusy):
		s.log.Debug("learning tick skipped: lock held")
		return
	case err != nil:
		s.log.Warn("learning tick failed", logger.Error(err))
		return
	}
	if res.Fresh > 0 && s.engine != nil {
		s.engine.EvaluateAll(s.ctx)
	}
}
