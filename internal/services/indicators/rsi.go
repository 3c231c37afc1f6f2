package indicators

import "AgentTrader/internal/domain/models"

// Smoothing selects how average gain/loss is carried forward.
type Smoothing string

const (
	SmoothingEMA Smoothing = "ema" // Wilder smoothing
	SmoothingSMA Smoothing = "sma"
)

// RSI computes the relative strength index over close prices. The first
// point is aligned to candles[period]; shorter series yield nothing.
func RSI(candles []models.Candle, period int, smoothing Smoothing) []models.OscillatorPoint {
	if period <= 0 || len(candles) <= period {
		return nil
	}

	gains := make([]float64, len(candles))
	losses := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		d := candles[i].Close - candles[i-1].Close
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	out := make([]models.OscillatorPoint, 0, len(candles)-period)
	out = append(out, models.OscillatorPoint{Time: candles[period].Time, Value: rsiValue(avgGain, avgLoss)})

	for i := period + 1; i < len(candles); i++ {
		switch smoothing {
		case SmoothingSMA:
			avgGain += (gains[i] - gains[i-period]) / p
			avgLoss += (losses[i] - losses[i-period]) / p
			if avgGain < 0 {
				avgGain = 0
			}
			if avgLoss < 0 {
				avgLoss = 0
			}
		default:
			avgGain = (avgGain*(p-1) + gains[i]) / p
			avgLoss = (avgLoss*(p-1) + losses[i]) / p
		}
		out = append(out, models.OscillatorPoint{Time: candles[i].Time, Value: rsiValue(avgGain, avgLoss)})
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
