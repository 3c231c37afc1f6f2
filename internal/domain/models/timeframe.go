package models

import (
	"fmt"
	"time"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// AllTimeframes lists supported timeframes from finest to coarsest.
var AllTimeframes = []Timeframe{TF1m, TF5m, TF15m, TF1h, TF4h, TF1d}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF5m, TF15m, TF1h, TF4h, TF1d:
		return true
	default:
		return false
	}
}

// ParseTimeframes validates a list of raw timeframe names, keeping the canonical order.
func ParseTimeframes(raw []string) ([]Timeframe, error) {
	seen := make(map[Timeframe]bool, len(raw))
	for _, s := range raw {
		tf := Timeframe(s)
		if !IsValidTimeframe(tf) {
			return nil, fmt.Errorf("unsupported timeframe: %q", s)
		}
		seen[tf] = true
	}
	out := make([]Timeframe, 0, len(seen))
	for _, tf := range AllTimeframes {
		if seen[tf] {
			out = append(out, tf)
		}
	}
	return out, nil
}

// Duration returns the bucket length of tf.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF5m:
		return 5 * time.Minute
	case TF15m:
		return 15 * time.Minute
	case TF1h:
		return time.Hour
	case TF4h:
		return 4 * time.Hour
	case TF1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (tf Timeframe) String() string { return string(tf) }
