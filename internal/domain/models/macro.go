package models

// MacroSnapshot is the periodic cross-asset statistical context.
// A snapshot is never mutated after capture; the next fetch replaces it.
type MacroSnapshot struct {
	Correlation float64 `json:"correlation"` // -1..1, primary vs reference hourly returns
	Dominance   float64 `json:"dominance"`   // 0..100, reference asset market cap share
	Volatility  float64 `json:"volatility"`  // annualized %, primary asset
	Momentum    float64 `json:"momentum"`    // -1..1, scaled 24h drift
	Timestamp   int64   `json:"timestamp"`   // unix seconds
}

// MacroInputs are the raw upstream readings a snapshot is computed from.
type MacroInputs struct {
	Dominance       float64
	PrimaryPrices   []float64 // hourly, oldest first
	ReferencePrices []float64 // hourly, oldest first
}
