package indicators

import (
	"AgentTrader/internal/domain/models"
	domsvc "AgentTrader/internal/domain/service"
)

// Config tunes the default indicator provider.
type Config struct {
	RSIPeriod     int
	Smoothing     Smoothing
	PivotWindow   int
	ZoneTolerance float64 // relative width used to merge pivots
	MaxZones      int
}

// DefaultConfig mirrors the chart defaults: RSI(14) with Wilder smoothing.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:     14,
		Smoothing:     SmoothingEMA,
		PivotWindow:   3,
		ZoneTolerance: 0.003,
		MaxZones:      5,
	}
}

// Provider computes RSI and S/R zones for any timeframe.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.PivotWindow <= 0 {
		cfg.PivotWindow = 3
	}
	if cfg.MaxZones <= 0 {
		cfg.MaxZones = 5
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) Compute(tf models.Timeframe, candles []models.Candle) models.IndicatorSet {
	return models.IndicatorSet{
		Timeframe:  tf,
		Oscillator: RSI(candles, p.cfg.RSIPeriod, p.cfg.Smoothing),
		Zones:      Zones(candles, p.cfg.PivotWindow, p.cfg.ZoneTolerance, p.cfg.MaxZones),
	}
}

var _ domsvc.IndicatorProvider = (*Provider)(nil)
