package learning

import (
	"sync/atomic"

	"AgentTrader/internal/domain/models"
)

type versioned struct {
	weights models.WeightVector
	version uint64
}

// WeightState holds the committed weight vector. Readers always see a whole
// vector; the learner is the only writer.
type WeightState struct {
	cur atomic.Pointer[versioned]
}

func NewWeightState(initial models.WeightVector) *WeightState {
	s := &WeightState{}
	s.cur.Store(&versioned{weights: initial.Clone()})
	return s
}

// Load returns a private copy of the committed vector and its version.
func (s *WeightState) Load() (models.WeightVector, uint64) {
	v := s.cur.Load()
	return v.weights.Clone(), v.version
}

// Version changes on every commit.
func (s *WeightState) Version() uint64 {
	return s.cur.Load().version
}

// Commit replaces the vector and returns the new version.
func (s *WeightState) Commit(w models.WeightVector) uint64 {
	for {
		old := s.cur.Load()
		next := &versioned{weights: w.Clone(), version: old.version + 1}
		if s.cur.CompareAndSwap(old, next) {
			return next.version
		}
	}
}

// Toggle is a process-wide on/off switch.
type Toggle struct {
	on atomic.Bool
}

func NewToggle(on bool) *Toggle {
	t := &Toggle{}
	t.on.Store(on)
	return t
}

func (t *Toggle) Enabled() bool { return t.on.Load() }

func (t *Toggle) Set(on bool) { t.on.Store(on) }
