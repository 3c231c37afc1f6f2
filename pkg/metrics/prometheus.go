package metrics

import (
	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	candles     *prometheus.CounterVec
	signals     *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	adaptations prometheus.Counter
	weights     *prometheus.GaugeVec
	macro       *prometheus.GaugeVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the collectors with reg, or the default registry when nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		candles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_candles_total",
				Help: "Candle updates applied, by timeframe and whether the bar was closed",
			},
			[]string{"tf", "closed"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_signals_total",
				Help: "Signals recorded, by timeframe and kind",
			},
			[]string{"tf", "kind"},
		),
		suppressed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_signals_suppressed_total",
				Help: "Evaluations whose composite stayed below the threshold",
			},
			[]string{"tf"},
		),
		outcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_outcomes_total",
				Help: "Signals graded or left pending per learning tick",
			},
			[]string{"state"},
		),
		adaptations: f.NewCounter(
			prometheus.CounterOpts{
				Name: "agenttrader_outcomes_consumed_total",
				Help: "Outcomes applied to the weight vector",
			},
		),
		weights: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agenttrader_weight",
				Help: "Committed weight per feature",
			},
			[]string{"feature"},
		),
		macro: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agenttrader_macro",
				Help: "Latest committed macro snapshot fields",
			},
			[]string{"field"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agenttrader_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCandle(tf string, closed bool) {
	c := "false"
	if closed {
		c = "true"
	}
	r.candles.WithLabelValues(tf, c).Inc()
}

func (r *Recorder) RecordSignal(tf, kind string) {
	r.signals.WithLabelValues(tf, kind).Inc()
}

func (r *Recorder) RecordSuppressed(tf string) {
	r.suppressed.WithLabelValues(tf).Inc()
}

func (r *Recorder) RecordOutcomes(graded, pending int) {
	r.outcomes.WithLabelValues("graded").Add(float64(graded))
	r.outcomes.WithLabelValues("pending").Add(float64(pending))
}

func (r *Recorder) RecordAdaptation(consumed int) {
	r.adaptations.Add(float64(consumed))
}

// RecordWeights mirrors the committed vector into per-feature gauges.
func (r *Recorder) RecordWeights(w models.WeightVector) {
	for k, v := range w {
		r.weights.WithLabelValues(k).Set(v)
	}
}

func (r *Recorder) RecordMacro(snap models.MacroSnapshot) {
	r.macro.WithLabelValues("correlation").Set(snap.Correlation)
	r.macro.WithLabelValues("dominance").Set(snap.Dominance)
	r.macro.WithLabelValues("volatility").Set(snap.Volatility)
	r.macro.WithLabelValues("momentum").Set(snap.Momentum)
	r.macro.WithLabelValues("timestamp").Set(float64(snap.Timestamp))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

var _ domrepo.Metrics = (*Recorder)(nil)
