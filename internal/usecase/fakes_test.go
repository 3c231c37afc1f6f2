package usecase

import (
	"context"
	"errors"
	"sync"

	"AgentTrader/internal/domain/models"
)

type capturePublisher struct {
	mu      sync.Mutex
	signals []models.Signal
	alerts  []models.Signal
	fail    bool
}

func (p *capturePublisher) PublishSignal(_ context.Context, s models.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.signals = append(p.signals, s)
	return nil
}

func (p *capturePublisher) PublishAlert(_ context.Context, s models.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.alerts = append(p.alerts, s)
	return nil
}

func (p *capturePublisher) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.signals), len(p.alerts)
}

// fixedOscillator reports one oscillator value on the latest bar and no zones.
type fixedOscillator struct {
	mu    sync.Mutex
	value float64
}

func (f *fixedOscillator) set(v float64) {
	f.mu.Lock()
	f.value = v
	f.mu.Unlock()
}

func (f *fixedOscillator) Compute(tf models.Timeframe, candles []models.Candle) models.IndicatorSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := models.IndicatorSet{Timeframe: tf}
	if len(candles) > 0 {
		last := candles[len(candles)-1]
		set.Oscillator = []models.OscillatorPoint{{Time: last.Time, Value: f.value}}
	}
	return set
}

func bar(t int64, close float64) models.Candle {
	return models.Candle{Time: t, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 10}
}
