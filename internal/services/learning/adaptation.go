package learning

import (
	"math"
	"sort"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/services/features"
)

// AdapterConfig tunes online weight updates.
type AdapterConfig struct {
	LearningRate     float64
	ScaleByOutcome   bool
	OutcomeScale     float64 // |outcome| * scale, capped at 1, multiplies the step
	MaxWeight        float64 // weights are clamped to [-MaxWeight, MaxWeight]
	DominantFeatures int     // features nudged per outcome
}

func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		LearningRate:     0.05,
		ScaleByOutcome:   true,
		OutcomeScale:     50,
		MaxWeight:        3,
		DominantFeatures: 2,
	}
}

// Adapter is a pure function of (weights, outcomes).
type Adapter struct {
	cfg AdapterConfig
}

func NewAdapter(cfg AdapterConfig) *Adapter {
	return &Adapter{cfg: cfg}
}

// DominantFeatures returns the k features with the largest |contribution|.
// Ties break by feature name so the choice is deterministic.
func DominantFeatures(contributions map[string]float64, k int) []string {
	names := make([]string, 0, len(contributions))
	for f, c := range contributions {
		if c != 0 && !math.IsNaN(c) {
			names = append(names, f)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := math.Abs(contributions[names[i]]), math.Abs(contributions[names[j]])
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	if k >= 0 && len(names) > k {
		names = names[:k]
	}
	return names
}

// Adapt nudges each outcome's dominant features in the direction of
// sign(outcome). A feature that pushed the same way as the call (contribution
// sign equals the signal direction) grows after a correct call and shrinks
// after a wrong one; a feature that pushed against the call moves the other
// way. Deltas are averaged over the batch. The input vector is not modified.
func (a *Adapter) Adapt(weights models.WeightVector, outcomes []models.Outcome) models.WeightVector {
	next := weights.Clone()
	if len(outcomes) == 0 {
		return next
	}

	deltas := make(map[string]float64)
	for _, o := range outcomes {
		dir := features.Sign(features.Finite(o.RealizedReturn))
		if dir == 0 {
			continue
		}
		step := a.cfg.LearningRate
		if a.cfg.ScaleByOutcome {
			step *= math.Min(1, math.Abs(o.RealizedReturn)*a.cfg.OutcomeScale)
		}
		side := o.Signal.Type.Direction()
		for _, f := range DominantFeatures(o.Signal.Contributions, a.cfg.DominantFeatures) {
			deltas[f] += step * dir * side * features.Sign(o.Signal.Contributions[f])
		}
	}

	n := float64(len(outcomes))
	for f, d := range deltas {
		w := next[f] + d/n
		if a.cfg.MaxWeight > 0 {
			w = features.Clamp(w, -a.cfg.MaxWeight, a.cfg.MaxWeight)
		}
		next[f] = w
	}
	return next
}
