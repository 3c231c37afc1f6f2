package learning

import (
	"sort"

	"AgentTrader/internal/domain/models"
)

// DefaultHorizon is the number of bars after the signal bar used for grading.
const DefaultHorizon = 5

// EvaluateOutcomes grades each signal whose forward-horizon bar exists.
// Signals without their bar or without the forward bar are pending and left
// out. A sell's return is negated so a positive outcome always means the call
// was right. Output follows history order.
func EvaluateOutcomes(history []models.Signal, candles map[models.Timeframe][]models.Candle, horizon int) []models.Outcome {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	out := make([]models.Outcome, 0, len(history))
	for _, sig := range history {
		series := candles[sig.Timeframe]
		i := sort.Search(len(series), func(k int) bool { return series[k].Time >= sig.Time })
		if i >= len(series) || series[i].Time != sig.Time {
			continue
		}
		j := i + horizon
		if j >= len(series) {
			continue
		}
		entry, exit := series[i].Close, series[j].Close
		if entry <= 0 {
			continue
		}
		ret := (exit - entry) / entry * sig.Type.Direction()
		out = append(out, models.Outcome{
			Signal:         sig,
			RealizedReturn: ret,
			EntryPrice:     entry,
			ExitPrice:      exit,
			ExitTime:       series[j].Time,
		})
	}
	return out
}
