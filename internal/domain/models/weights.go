package models

import "sort"

// Feature names understood by the synthesizer.
const (
	FeatureRSI            = "rsi"
	FeatureZone           = "zone"
	FeatureMacroCorr      = "macro_corr"
	FeatureMacroMomentum  = "macro_momentum"
	FeatureMacroDominance = "macro_dominance"
)

// WeightVector maps feature name to weight. It is not normalized.
type WeightVector map[string]float64

// DefaultWeights is the documented starting vector. Every feature has an entry
// so vectors persisted before a feature existed can be back-filled.
func DefaultWeights() WeightVector {
	return WeightVector{
		FeatureRSI:            1.0,
		FeatureZone:           0.6,
		FeatureMacroCorr:      0.1,
		FeatureMacroMomentum:  0.3,
		FeatureMacroDominance: 0.1,
	}
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// WithDefaults fills features missing from w with their default weight.
func (w WeightVector) WithDefaults() WeightVector {
	out := w.Clone()
	for k, v := range DefaultWeights() {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// Features returns the feature names in stable order.
func (w WeightVector) Features() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal compares two vectors exactly.
func (w WeightVector) Equal(o WeightVector) bool {
	if len(w) != len(o) {
		return false
	}
	for k, v := range w {
		ov, ok := o[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
