package models

import (
	"fmt"
	"strconv"
	"strings"
)

// SignalType is the direction of a signal.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// Direction returns +1 for buy and -1 for sell.
func (t SignalType) Direction() float64 {
	if t == SignalSell {
		return -1
	}
	return 1
}

// Signal is an immutable trade call for one bar of one timeframe.
type Signal struct {
	Time          int64              `json:"time"`
	Timeframe     Timeframe          `json:"timeframe"`
	Type          SignalType         `json:"type"`
	Confidence    float64            `json:"confidence"`
	Reasons       []string           `json:"reasons"`
	Composite     float64            `json:"composite"`
	Price         float64            `json:"price"`
	Contributions map[string]float64 `json:"contributions,omitempty"` // weight * feature
}

// ID identifies a signal by (timeframe, bar time).
func (s Signal) ID() string { return SignalID(s.Timeframe, s.Time) }

// SignalID builds the identity key for a (timeframe, bar time) pair.
func SignalID(tf Timeframe, t int64) string {
	return string(tf) + ":" + strconv.FormatInt(t, 10)
}

// ParseSignalID splits an identity key back into its parts.
func ParseSignalID(id string) (Timeframe, int64, error) {
	tf, ts, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed signal id %q", id)
	}
	t, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed signal id %q: %w", id, err)
	}
	return Timeframe(tf), t, nil
}

// Outcome grades a signal against the realized forward return.
// Positive means the call was right.
type Outcome struct {
	Signal         Signal  `json:"signal"`
	RealizedReturn float64 `json:"realized_return"`
	EntryPrice     float64 `json:"entry_price"`
	ExitPrice      float64 `json:"exit_price"`
	ExitTime       int64   `json:"exit_time"`
}
