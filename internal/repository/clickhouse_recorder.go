package repository

import (
	"context"
	"fmt"
	"time"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"
	pkgch "AgentTrader/pkg/clickhouse"
	applogger "AgentTrader/pkg/logger"
)

// Schema creates the audit tables. ReplacingMergeTree keyed by signal id
// collapses re-evaluations of one bar into its latest version.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		id            String,
		symbol        LowCardinality(String),
		tf            LowCardinality(String),
		bar_time      DateTime,
		type          LowCardinality(String),
		confidence    Float64,
		composite     Float64,
		price         Float64,
		reasons       Array(String),
		contributions Map(String, Float64),
		recorded_at   DateTime64(3)
	) ENGINE = ReplacingMergeTree(recorded_at)
	ORDER BY (symbol, tf, bar_time)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		id              String,
		symbol          LowCardinality(String),
		tf              LowCardinality(String),
		bar_time        DateTime,
		type            LowCardinality(String),
		confidence      Float64,
		realized_return Float64,
		entry_price     Float64,
		exit_price      Float64,
		exit_time       DateTime,
		recorded_at     DateTime64(3)
	) ENGINE = ReplacingMergeTree(recorded_at)
	ORDER BY (symbol, tf, bar_time)`,
	`CREATE TABLE IF NOT EXISTS macro_snapshots (
		symbol      LowCardinality(String),
		ts          DateTime,
		correlation Float64,
		dominance   Float64,
		volatility  Float64,
		momentum    Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, ts)`,
}

const (
	insertSignals  = "INSERT INTO signals (id, symbol, tf, bar_time, type, confidence, composite, price, reasons, contributions, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	insertOutcomes = "INSERT INTO outcomes (id, symbol, tf, bar_time, type, confidence, realized_return, entry_price, exit_price, exit_time, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	insertMacro    = "INSERT INTO macro_snapshots (symbol, ts, correlation, dominance, volatility, momentum) VALUES (?, ?, ?, ?, ?, ?)"
)

// CHSignalRecorder implements SignalRecorder backed by ClickHouse.
type CHSignalRecorder struct {
	ch     *pkgch.Client
	symbol string
	now    func() time.Time
	l      *applogger.Logger
}

func NewCHSignalRecorder(ch *pkgch.Client, symbol string) *CHSignalRecorder {
	return &CHSignalRecorder{ch: ch, symbol: symbol, now: time.Now}
}

// SetLogger injects a structured logger.
func (r *CHSignalRecorder) SetLogger(l *applogger.Logger) { r.l = l }

// Init creates the audit tables if missing.
func (r *CHSignalRecorder) Init(ctx context.Context) error {
	return r.ch.InitSchema(ctx, Schema)
}

func (r *CHSignalRecorder) RecordSignals(ctx context.Context, signals []models.Signal) error {
	rows := make([][]any, 0, len(signals))
	now := r.now()
	for _, s := range signals {
		rows = append(rows, signalRow(r.symbol, s, now))
	}
	return r.insert(ctx, "signals", insertSignals, rows)
}

func (r *CHSignalRecorder) RecordOutcomes(ctx context.Context, outcomes []models.Outcome) error {
	rows := make([][]any, 0, len(outcomes))
	now := r.now()
	for _, o := range outcomes {
		rows = append(rows, outcomeRow(r.symbol, o, now))
	}
	return r.insert(ctx, "outcomes", insertOutcomes, rows)
}

func (r *CHSignalRecorder) RecordSnapshot(ctx context.Context, snap models.MacroSnapshot) error {
	row := []any{r.symbol, time.Unix(snap.Timestamp, 0).UTC(), snap.Correlation, snap.Dominance, snap.Volatility, snap.Momentum}
	return r.insert(ctx, "macro_snapshots", insertMacro, [][]any{row})
}

func (r *CHSignalRecorder) insert(ctx context.Context, table, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.ch.InsertBatch(ctx, query, rows); err != nil {
		if r.l != nil {
			r.l.Error("clickhouse insert error",
				applogger.String("table", table),
				applogger.Int("rows", len(rows)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("record %s: %w", table, err)
	}
	return nil
}

func (r *CHSignalRecorder) Close() error {
	return nil // client is closed by the app
}

func signalRow(symbol string, s models.Signal, at time.Time) []any {
	reasons := s.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	contrib := s.Contributions
	if contrib == nil {
		contrib = map[string]float64{}
	}
	return []any{
		s.ID(), symbol, s.Timeframe.String(), time.Unix(s.Time, 0).UTC(), string(s.Type),
		s.Confidence, s.Composite, s.Price, reasons, contrib, at.UTC(),
	}
}

func outcomeRow(symbol string, o models.Outcome, at time.Time) []any {
	s := o.Signal
	return []any{
		s.ID(), symbol, s.Timeframe.String(), time.Unix(s.Time, 0).UTC(), string(s.Type),
		s.Confidence, o.RealizedReturn, o.EntryPrice, o.ExitPrice, time.Unix(o.ExitTime, 0).UTC(), at.UTC(),
	}
}

// NopRecorder discards audit records; used when ClickHouse is disabled.
type NopRecorder struct{}

func (NopRecorder) RecordSignals(context.Context, []models.Signal) error { return nil }

func (NopRecorder) RecordOutcomes(context.Context, []models.Outcome) error { return nil }

func (NopRecorder) RecordSnapshot(context.Context, models.MacroSnapshot) error { return nil }

func (NopRecorder) Close() error { return nil }

var (
	_ domrepo.SignalRecorder = (*CHSignalRecorder)(nil)
	_ domrepo.SignalRecorder = NopRecorder{}
)
