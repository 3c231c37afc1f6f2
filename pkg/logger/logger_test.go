package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestLoggerWritesTypedFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug")

	l.Info("signal emitted",
		String("tf", "5m"),
		Float64("confidence", 0.42),
		Int64("time", 1700000000),
		Bool("alert", false),
		Error(errors.New("boom")))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "signal emitted", line["message"])
	assert.Equal(t, "5m", line["tf"])
	assert.InDelta(t, 0.42, line["confidence"], 1e-9)
	assert.Equal(t, "boom", line["error"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestCollectorAggregatesDuplicateErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := NewWriter(&bytes.Buffer{}, "info")
	l.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "logs.errors",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		l.Error("macro fetch failed", String("source", "coingecko"))
	}
	l.Error("ledger unavailable")
	assert.Equal(t, 2, l.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs.errors", pub.topic)
	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, 3, counts["macro fetch failed"])
	assert.Equal(t, 1, counts["ledger unavailable"])
}
