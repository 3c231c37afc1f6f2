package signals

import (
	"fmt"
	"math"
	"sort"

	"AgentTrader/internal/domain/models"
	"AgentTrader/internal/services/features"
)

// Config holds synthesis thresholds.
type Config struct {
	Overbought        float64
	Oversold          float64
	MinComposite      float64 // |composite| below this emits nothing
	ZoneProximity     float64 // relative distance at which the zone feature fades to 0
	VolatilityCeiling float64 // annualized %, above it confidence is dampened
	VolatilityDampen  float64
	MaxReasons        int
}

func DefaultConfig() Config {
	return Config{
		Overbought:        70,
		Oversold:          30,
		MinComposite:      0.15,
		ZoneProximity:     0.02,
		VolatilityCeiling: 120,
		VolatilityDampen:  0.5,
		MaxReasons:        3,
	}
}

// Input is everything the synthesizer looks at for one timeframe's latest bar.
type Input struct {
	Timeframe  models.Timeframe
	Candle     models.Candle
	Oscillator *models.OscillatorPoint
	Zones      []models.Zone
	Macro      *models.MacroSnapshot
	Weights    models.WeightVector
}

// Synthesizer turns indicator and macro state into at most one signal per bar.
type Synthesizer struct {
	cfg Config
}

func NewSynthesizer(cfg Config) *Synthesizer {
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Config() Config { return s.cfg }

type term struct {
	feature string
	value   float64
	reason  string
}

// Synthesize returns (nil, false) when the weighted evidence is too weak.
// It never mutates its input.
func (s *Synthesizer) Synthesize(in Input) (*models.Signal, bool) {
	terms := s.features(in)

	composite := 0.0
	contributions := make(map[string]float64, len(terms))
	for _, t := range terms {
		w := features.Finite(in.Weights[t.feature])
		c := w * t.value
		if c == 0 {
			continue
		}
		contributions[t.feature] = c
		composite += c
	}
	composite = features.Finite(composite)

	if math.Abs(composite) < s.cfg.MinComposite || composite == 0 {
		return nil, false
	}

	kind := models.SignalBuy
	if composite < 0 {
		kind = models.SignalSell
	}

	confidence := math.Min(1, math.Abs(composite))
	dampened := in.Macro != nil && in.Macro.Volatility > s.cfg.VolatilityCeiling
	if dampened {
		confidence *= s.cfg.VolatilityDampen
	}

	return &models.Signal{
		Time:          in.Candle.Time,
		Timeframe:     in.Timeframe,
		Type:          kind,
		Confidence:    features.Clamp(confidence, 0, 1),
		Reasons:       s.reasons(terms, contributions, dampened),
		Composite:     composite,
		Price:         in.Candle.Close,
		Contributions: contributions,
	}, true
}

func (s *Synthesizer) features(in Input) []term {
	var out []term

	if in.Oscillator != nil {
		if v, reason := s.rsiFeature(in.Oscillator.Value); v != 0 {
			out = append(out, term{models.FeatureRSI, v, reason})
		}
	}

	if v, reason := s.zoneFeature(in.Candle.Close, in.Zones); v != 0 {
		out = append(out, term{models.FeatureZone, v, reason})
	}

	if m := in.Macro; m != nil {
		out = append(out,
			term{models.FeatureMacroCorr, features.Clamp(m.Correlation, -1, 1), fmt.Sprintf("BTC corr %.2f", m.Correlation)},
			term{models.FeatureMacroMomentum, features.Clamp(m.Momentum, -1, 1), fmt.Sprintf("Momentum %+.2f", m.Momentum)},
			term{models.FeatureMacroDominance, features.Clamp((50-m.Dominance)/50, -1, 1), fmt.Sprintf("BTC dominance %.1f%%", m.Dominance)},
		)
	}
	return out
}

func (s *Synthesizer) rsiFeature(v float64) (float64, string) {
	v = features.Finite(v)
	switch {
	case v < s.cfg.Oversold && s.cfg.Oversold > 0:
		return features.Clamp((s.cfg.Oversold-v)/s.cfg.Oversold, 0, 1), fmt.Sprintf("RSI oversold (%.1f)", v)
	case v > s.cfg.Overbought && s.cfg.Overbought < 100:
		return -features.Clamp((v-s.cfg.Overbought)/(100-s.cfg.Overbought), 0, 1), fmt.Sprintf("RSI overbought (%.1f)", v)
	default:
		return 0, ""
	}
}

// zoneFeature scores the nearest zone boundary: +1 touching support, -1
// touching resistance, fading linearly to 0 at ZoneProximity.
func (s *Synthesizer) zoneFeature(price float64, zones []models.Zone) (float64, string) {
	if price <= 0 || s.cfg.ZoneProximity <= 0 {
		return 0, ""
	}

	best := math.Inf(1)
	value, reason := 0.0, ""
	for _, z := range zones {
		if z.Low > z.High {
			continue
		}
		var d, sign float64
		var r string
		switch {
		case z.Contains(price):
			d = 0
			if price <= z.Mid() {
				sign, r = 1, fmt.Sprintf("Inside support %.2f-%.2f", z.Low, z.High)
			} else {
				sign, r = -1, fmt.Sprintf("Inside resistance %.2f-%.2f", z.Low, z.High)
			}
		case z.High < price:
			d = (price - z.High) / price
			sign, r = 1, fmt.Sprintf("Near support %.2f", z.High)
		default:
			d = (z.Low - price) / price
			sign, r = -1, fmt.Sprintf("Near resistance %.2f", z.Low)
		}
		if d < best {
			best = d
			if d < s.cfg.ZoneProximity {
				value, reason = sign*(1-d/s.cfg.ZoneProximity), r
			} else {
				value, reason = 0, ""
			}
		}
	}
	return value, reason
}

func (s *Synthesizer) reasons(terms []term, contributions map[string]float64, dampened bool) []string {
	ranked := make([]term, 0, len(terms))
	for _, t := range terms {
		if _, ok := contributions[t.feature]; ok {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := math.Abs(contributions[ranked[i].feature]), math.Abs(contributions[ranked[j].feature])
		if ci != cj {
			return ci > cj
		}
		return ranked[i].feature < ranked[j].feature
	})
	if s.cfg.MaxReasons > 0 && len(ranked) > s.cfg.MaxReasons {
		ranked = ranked[:s.cfg.MaxReasons]
	}

	out := make([]string, 0, len(ranked)+1)
	for _, t := range ranked {
		out = append(out, t.reason)
	}
	if dampened {
		out = append(out, "High volatility dampened")
	}
	return out
}
