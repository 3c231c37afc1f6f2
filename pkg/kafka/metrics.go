package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	producerMsgsTotal     *prometheus.CounterVec
	producerBytesTotal    *prometheus.CounterVec
	producerLatencyHist   *prometheus.HistogramVec
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerResultTotal   *prometheus.CounterVec
	metricsOnce           sync.Once
)

func initMetricsOnce() {
	metricsOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_kafka_producer_messages_total",
				Help: "Total messages published to Kafka",
			},
			[]string{"topic", "result"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_kafka_producer_bytes_total",
				Help: "Total payload bytes published",
			},
			[]string{"topic"},
		)
		producerLatencyHist = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agenttrader_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agenttrader_kafka_consumer_queue_depth",
				Help: "Messages waiting in the consumer queue",
			},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agenttrader_kafka_consumer_handle_seconds",
				Help:    "Handling time per message",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
		consumerResultTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenttrader_kafka_consumer_messages_total",
				Help: "Consumed messages by result",
			},
			[]string{"topic", "result"},
		)
	})
}

func observePublish(topic string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMsgsTotal.WithLabelValues(topic, result).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic).Add(float64(bytes))
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeHandle(topic string, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	consumerResultTotal.WithLabelValues(topic, result).Inc()
	consumerHandleLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
