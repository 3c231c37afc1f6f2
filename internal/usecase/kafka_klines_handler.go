package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"
	pkgkafka "AgentTrader/pkg/kafka"
	"AgentTrader/pkg/util"
)

// klineMessage is the wire form on the kline topic. Time may be in seconds
// or milliseconds.
type klineMessage struct {
	Symbol string  `json:"symbol"`
	TF     string  `json:"tf"`
	T      int64   `json:"t"`
	O      float64 `json:"o"`
	H      float64 `json:"h"`
	L      float64 `json:"l"`
	C      float64 `json:"c"`
	V      float64 `json:"v"`
	Closed bool    `json:"x"`
}

// KafkaKlinesHandler decodes kline messages for one symbol and hands them on.
type KafkaKlinesHandler struct {
	topic   string
	symbol  string
	fn      func(models.CandleUpdate)
	metrics domrepo.Metrics
}

func NewKafkaKlinesHandler(topic, symbol string, fn func(models.CandleUpdate), metrics domrepo.Metrics) *KafkaKlinesHandler {
	return &KafkaKlinesHandler{topic: topic, symbol: symbol, fn: fn, metrics: metrics}
}

func (h *KafkaKlinesHandler) Topic() string { return h.topic }

// Handle decodes one message. Messages for other symbols are skipped.
func (h *KafkaKlinesHandler) Handle(ctx context.Context, b []byte) error {
	var m klineMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode kline: %w", err)
	}
	if h.symbol != "" && m.Symbol != "" && m.Symbol != h.symbol {
		return nil
	}
	if m.T > 1e11 {
		m.T = m.T / 1000
	}
	tf := models.Timeframe(m.TF)
	if !models.IsValidTimeframe(tf) {
		h.recordError("consumer_timeframe")
		return fmt.Errorf("kline timeframe %q unsupported", m.TF)
	}
	u := models.CandleUpdate{
		Timeframe: tf,
		Candle:    models.Candle{Time: util.BucketStart(m.T, tf.Duration()), Open: m.O, High: m.H, Low: m.L, Close: m.C, Volume: m.V},
		Closed:    m.Closed,
	}
	if h.metrics != nil {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.T, 0)).Seconds())
	}
	h.fn(u)
	return nil
}

func (h *KafkaKlinesHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaKlinesHandler)(nil)

// KafkaCandleSource streams klines from Kafka and backfills from another source.
type KafkaCandleSource struct {
	backfill domrepo.CandleSource
	consumer *pkgkafka.Consumer
	topic    string
	symbol   string
	metrics  domrepo.Metrics
}

func NewKafkaCandleSource(backfill domrepo.CandleSource, consumer *pkgkafka.Consumer, topic, symbol string, metrics domrepo.Metrics) *KafkaCandleSource {
	return &KafkaCandleSource{backfill: backfill, consumer: consumer, topic: topic, symbol: symbol, metrics: metrics}
}

func (s *KafkaCandleSource) Backfill(ctx context.Context, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if s.backfill == nil {
		return nil, nil
	}
	return s.backfill.Backfill(ctx, tf, limit)
}

// Stream consumes the kline topic until ctx ends. Updates for timeframes
// outside tfs are dropped.
func (s *KafkaCandleSource) Stream(ctx context.Context, tfs []models.Timeframe, fn func(models.CandleUpdate)) error {
	want := make(map[models.Timeframe]bool, len(tfs))
	for _, tf := range tfs {
		want[tf] = true
	}
	s.consumer.RegisterHandler(NewKafkaKlinesHandler(s.topic, s.symbol, func(u models.CandleUpdate) {
		if want[u.Timeframe] {
			fn(u)
		}
	}, s.metrics))
	if err := s.consumer.Start(); err != nil {
		return fmt.Errorf("start kline consumer: %w", err)
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.consumer.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop kline consumer: %w", err)
	}
	return ctx.Err()
}

var _ domrepo.CandleSource = (*KafkaCandleSource)(nil)
