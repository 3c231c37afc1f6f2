package usecase

import (
	"sync"

	"AgentTrader/internal/domain/models"
)

// DefaultHistoryCap bounds the number of retained signals.
const DefaultHistoryCap = 200

// SignalHistory is the bounded, ordered record of emitted signals.
// A signal for an already-recorded (timeframe, time) replaces the old entry.
type SignalHistory struct {
	mu      sync.RWMutex
	cap     int
	items   []models.Signal // oldest first
	newest  map[models.Timeframe]int64
	version uint64
}

func NewSignalHistory(capacity int) *SignalHistory {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &SignalHistory{cap: capacity, newest: make(map[models.Timeframe]int64)}
}

// Record stores s. It returns false when s is older than the newest bar
// already recorded for its timeframe, or identical to the stored entry.
func (h *SignalHistory) Record(s models.Signal) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if last, ok := h.newest[s.Timeframe]; ok && s.Time < last {
		return false
	}
	id := s.ID()
	for i := len(h.items) - 1; i >= 0; i-- {
		if h.items[i].ID() != id {
			continue
		}
		if sameSignal(h.items[i], s) {
			return false
		}
		h.items[i] = s
		h.version++
		return true
	}

	h.items = append(h.items, s)
	if len(h.items) > h.cap {
		h.items = append(h.items[:0:0], h.items[len(h.items)-h.cap:]...)
	}
	h.newest[s.Timeframe] = s.Time
	h.version++
	return true
}

// Retract drops the entry for (tf, t) when a re-evaluated bar no longer
// produces a signal. Only the newest bar of a timeframe can be retracted.
func (h *SignalHistory) Retract(tf models.Timeframe, t int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if last, ok := h.newest[tf]; !ok || last != t {
		return false
	}
	id := models.SignalID(tf, t)
	for i := len(h.items) - 1; i >= 0; i-- {
		if h.items[i].ID() == id {
			h.items = append(h.items[:i], h.items[i+1:]...)
			h.version++
			return true
		}
	}
	return false
}

// Recent returns up to n of the latest signals, oldest first.
func (h *SignalHistory) Recent(n int) []models.Signal {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.items) {
		n = len(h.items)
	}
	return append([]models.Signal(nil), h.items[len(h.items)-n:]...)
}

// Query returns up to limit signals, newest first, optionally for one timeframe.
func (h *SignalHistory) Query(tf models.Timeframe, limit int) []models.Signal {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Signal, 0)
	for i := len(h.items) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if tf != "" && h.items[i].Timeframe != tf {
			continue
		}
		out = append(out, h.items[i])
	}
	return out
}

func (h *SignalHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

// Version changes on every accepted mutation.
func (h *SignalHistory) Version() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.version
}

func sameSignal(a, b models.Signal) bool {
	if a.Type != b.Type || a.Confidence != b.Confidence || a.Composite != b.Composite || a.Price != b.Price {
		return false
	}
	if len(a.Reasons) != len(b.Reasons) {
		return false
	}
	for i := range a.Reasons {
		if a.Reasons[i] != b.Reasons[i] {
			return false
		}
	}
	return true
}
