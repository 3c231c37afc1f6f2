package models

import "fmt"

// Candle is one OHLCV bar. Time is the bar-open unix timestamp in seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Validate rejects bars that cannot come from a sane feed.
func (c Candle) Validate() error {
	if c.Time <= 0 {
		return fmt.Errorf("candle time invalid: %d", c.Time)
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("candle %d: non-positive price", c.Time)
	}
	if c.High < c.Low {
		return fmt.Errorf("candle %d: high %.8f below low %.8f", c.Time, c.High, c.Low)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %d: negative volume", c.Time)
	}
	return nil
}

// CandleUpdate is a live bar delivered by a stream provider.
type CandleUpdate struct {
	Timeframe Timeframe `json:"tf"`
	Candle    Candle    `json:"candle"`
	Closed    bool      `json:"closed"`
}
