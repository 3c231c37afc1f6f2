package repository

import (
	"context"
	"errors"
	"time"

	"AgentTrader/internal/domain/models"
)

// ErrNotFound is returned by stores when nothing has been persisted yet.
var ErrNotFound = errors.New("not found")

// CandleSource provides historical and live candles for one asset.
type CandleSource interface {
	// Backfill returns up to limit most recent candles, oldest first.
	Backfill(ctx context.Context, tf models.Timeframe, limit int) ([]models.Candle, error)
	// Stream delivers live updates to fn until ctx is cancelled.
	Stream(ctx context.Context, tfs []models.Timeframe, fn func(models.CandleUpdate)) error
}

// MacroSource fetches the raw cross-asset readings a macro snapshot is built from.
type MacroSource interface {
	FetchInputs(ctx context.Context) (models.MacroInputs, error)
}

// WeightStore persists the learned weight vector.
type WeightStore interface {
	Load(ctx context.Context) (models.WeightVector, error)
	Save(ctx context.Context, w models.WeightVector) error
}

// OutcomeLedger remembers which signal outcomes have already been learned from.
// Claim is the exactly-once step: it marks ids consumed and returns only the
// ones no earlier caller, in this or another process, has claimed. Lock keeps
// concurrent learning cycles from racing on the weight vector.
type OutcomeLedger interface {
	Claim(ctx context.Context, ids []string) ([]string, error)
	Lock(ctx context.Context, ttl time.Duration) (token string, ok bool, err error)
	Unlock(ctx context.Context, token string) error
}

// SignalPublisher pushes signals to downstream consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, s models.Signal) error
	PublishAlert(ctx context.Context, s models.Signal) error
}

// SignalRecorder keeps an audit trail of signals, outcomes and macro snapshots.
type SignalRecorder interface {
	RecordSignals(ctx context.Context, signals []models.Signal) error
	RecordOutcomes(ctx context.Context, outcomes []models.Outcome) error
	RecordSnapshot(ctx context.Context, snap models.MacroSnapshot) error
	Close() error
}

// Metrics collects service telemetry.
type Metrics interface {
	RecordCandle(tf string, closed bool)
	RecordSignal(tf, kind string)
	RecordSuppressed(tf string)
	RecordOutcomes(graded, pending int)
	RecordAdaptation(consumed int)
	RecordWeights(w models.WeightVector)
	RecordMacro(snap models.MacroSnapshot)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
