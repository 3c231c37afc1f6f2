package models

// OscillatorPoint is one oscillator reading aligned to a candle.
type OscillatorPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"` // 0..100
}

// Zone is a horizontal support/resistance band.
type Zone struct {
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Touches  int     `json:"touches"`
	Strength float64 `json:"strength"`
}

// Contains reports whether price lies inside the band.
func (z Zone) Contains(price float64) bool { return price >= z.Low && price <= z.High }

// Mid returns the middle of the band.
func (z Zone) Mid() float64 { return (z.Low + z.High) / 2 }

// IndicatorSet is the indicator state of one timeframe.
type IndicatorSet struct {
	Timeframe  Timeframe         `json:"tf"`
	Oscillator []OscillatorPoint `json:"oscillator"`
	Zones      []Zone            `json:"zones"` // most significant first
}

// LatestOscillator returns the newest oscillator point, if any.
func (s IndicatorSet) LatestOscillator() (OscillatorPoint, bool) {
	if len(s.Oscillator) == 0 {
		return OscillatorPoint{}, false
	}
	return s.Oscillator[len(s.Oscillator)-1], true
}
