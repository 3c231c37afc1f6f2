package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AgentTrader/internal/domain/repository"
	"AgentTrader/internal/scheduler"
	"AgentTrader/internal/service/ratelimit"
	"AgentTrader/internal/services/learning"
	"AgentTrader/internal/usecase"
	"AgentTrader/pkg/config"
	xhttp "AgentTrader/pkg/http"
	applogger "AgentTrader/pkg/logger"
)

const limiterSweepEvery = 10 * time.Minute

// Deps are the long-lived components the App starts and stops.
type Deps struct {
	Config       *config.Config
	Log          *applogger.Logger
	Engine       *usecase.Engine
	Source       repository.CandleSource
	Macro        *usecase.MacroService
	Scheduler    *scheduler.Scheduler
	Weights      *learning.WeightState
	WeightStore  repository.WeightStore
	Limiter      *ratelimit.Limiter
	HTTP         *xhttp.Server
	LogPublisher applogger.Publisher
	Recorder     repository.SignalRecorder
}

// App encapsulates the entire application lifecycle.
type App struct {
	Deps
	engineDone chan error
}

func New(d Deps) *App {
	if d.Log == nil {
		d.Log = applogger.Nop()
	}
	return &App{Deps: d}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext runs until ctx ends or the candle feed fails, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	cfg := a.Config
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Log.Collector.Enabled && a.LogPublisher != nil {
		a.Log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Service:        "agenttrader",
			Publisher:      a.LogPublisher,
		})
	}

	if err := a.HTTP.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	learnEvery := time.Duration(0)
	if cfg.Learning.Enabled {
		learnEvery = cfg.Learning.Interval
	}
	if err := a.Scheduler.Register(cfg.Macro.RefreshInterval, learnEvery); err != nil {
		return err
	}
	if a.Limiter != nil {
		if err := a.Scheduler.Every(limiterSweepEvery, func() { a.Limiter.Sweep() }); err != nil {
			return err
		}
	}
	a.Scheduler.Start(ctx)
	go a.Scheduler.RefreshMacro()

	a.engineDone = make(chan error, 1)
	go func() {
		a.engineDone <- a.Engine.Run(ctx, a.Source, cfg.Candles.Backfill)
	}()
	a.Log.Info("agent started",
		applogger.Strings("timeframes", cfg.Asset.Timeframes),
		applogger.String("candles", cfg.Candles.Source),
		applogger.Bool("learning", cfg.Learning.Enabled),
		applogger.Bool("alerts", cfg.Alerts.Enabled))

	var runErr error
	select {
	case <-ctx.Done():
		a.Log.Info("shutdown signal received")
	case err := <-a.engineDone:
		a.engineDone = nil
		if err != nil && !errors.Is(err, context.Canceled) {
			a.Log.Error("candle feed stopped", applogger.Error(err))
			runErr = err
		}
	}
	cancel()
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops producers of new state first, then persists what is left.
func (a *App) shutdown() error {
	timeout := a.HTTP.ShutdownTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Scheduler.Stop(ctx)
	a.Macro.Stop()

	if a.engineDone != nil {
		select {
		case <-a.engineDone:
		case <-ctx.Done():
			a.Log.Warn("engine did not stop in time")
		}
	}

	if err := a.HTTP.Stop(ctx); err != nil {
		a.Log.Error("http shutdown error", applogger.Error(err))
	}

	var flushErr error
	w, v := a.Weights.Load()
	if err := a.WeightStore.Save(ctx, w); err != nil {
		a.Log.Error("weight flush failed", applogger.Error(err))
		flushErr = fmt.Errorf("flush weights: %w", err)
	} else {
		a.Log.Info("weights flushed", applogger.Uint64("version", v))
	}

	if a.Recorder != nil {
		if err := a.Recorder.Close(); err != nil {
			a.Log.Warn("recorder close error", applogger.Error(err))
		}
	}

	a.Log.Info("shutdown complete")
	a.Log.RemoveCollector()
	return flushErr
}
