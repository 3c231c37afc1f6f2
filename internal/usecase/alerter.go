package usecase

import (
	"context"
	"sync"
	"sync/atomic"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/domain/repository"
	"AgentTrader/pkg/logger"
)

// DefaultMinConfidence is the alert threshold when none is configured.
const DefaultMinConfidence = 0.6

// AlertConfig is the process-wide alert switch and threshold.
type AlertConfig struct {
	enabled       atomic.Bool
	minConfidence float64
}

func NewAlertConfig(enabled bool, minConfidence float64) *AlertConfig {
	if minConfidence <= 0 || minConfidence > 1 {
		minConfidence = DefaultMinConfidence
	}
	c := &AlertConfig{minConfidence: minConfidence}
	c.enabled.Store(enabled)
	return c
}

func (c *AlertConfig) Enabled() bool { return c.enabled.Load() }

func (c *AlertConfig) SetEnabled(on bool) { c.enabled.Store(on) }

func (c *AlertConfig) MinConfidence() float64 { return c.minConfidence }

// Alerter forwards confident signals to the alert topic, once per bar.
type Alerter struct {
	cfg     *AlertConfig
	pub     repository.SignalPublisher
	metrics repository.Metrics
	log     *logger.Logger

	mu   sync.Mutex
	sent map[models.Timeframe]int64
}

func NewAlerter(cfg *AlertConfig, pub repository.SignalPublisher, metrics repository.Metrics, log *logger.Logger) *Alerter {
	return &Alerter{cfg: cfg, pub: pub, metrics: metrics, log: log, sent: make(map[models.Timeframe]int64)}
}

// Consider publishes an alert for s when alerts are enabled and s clears the
// confidence threshold. It reports whether an alert went out.
func (a *Alerter) Consider(ctx context.Context, s models.Signal) (bool, error) {
	if a.cfg == nil || !a.cfg.Enabled() || s.Confidence < a.cfg.MinConfidence() {
		return false, nil
	}

	a.mu.Lock()
	if last, ok := a.sent[s.Timeframe]; ok && last >= s.Time {
		a.mu.Unlock()
		return false, nil
	}
	a.sent[s.Timeframe] = s.Time
	a.mu.Unlock()

	if err := a.pub.PublishAlert(ctx, s); err != nil {
		a.mu.Lock()
		if a.sent[s.Timeframe] == s.Time {
			delete(a.sent, s.Timeframe)
		}
		a.mu.Unlock()
		if a.metrics != nil {
			a.metrics.RecordError("alert_publish")
		}
		return false, err
	}
	if a.metrics != nil {
		a.metrics.RecordSignal(s.Timeframe.String(), "alert")
	}
	a.log.Info("signal alert sent",
		logger.String("id", s.ID()),
		logger.String("type", string(s.Type)),
		logger.Float64("confidence", s.Confidence),
		logger.Strings("reasons", s.Reasons))
	return true, nil
}
