package service

import "AgentTrader/internal/domain/models"

// IndicatorProvider turns a candle series into oscillator points and S/R zones.
// Implementations must be pure: same candles in, same indicators out.
type IndicatorProvider interface {
	Compute(tf models.Timeframe, candles []models.Candle) models.IndicatorSet
}
