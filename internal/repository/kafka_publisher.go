package repository

import (
	"context"

	"AgentTrader/internal/domain/models"
	domrepo "AgentTrader/internal/domain/repository"
	pkgkafka "AgentTrader/pkg/kafka"
)

// signalMessage is the wire form on the signal and alert topics.
type signalMessage struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Kind   string `json:"kind"`
	models.Signal
}

// KafkaSignalPublisher implements SignalPublisher for Kafka. Messages are
// keyed by signal ID so rewrites of one bar land on one partition.
type KafkaSignalPublisher struct {
	producer    *pkgkafka.Producer
	symbol      string
	signalTopic string
	alertTopic  string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, symbol, signalTopic, alertTopic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, symbol: symbol, signalTopic: signalTopic, alertTopic: alertTopic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, s models.Signal) error {
	if p.signalTopic == "" {
		return nil
	}
	return p.producer.Publish(ctx, p.signalTopic, []byte(s.ID()), p.message("signal", s))
}

func (p *KafkaSignalPublisher) PublishAlert(ctx context.Context, s models.Signal) error {
	if p.alertTopic == "" {
		return nil
	}
	return p.producer.Publish(ctx, p.alertTopic, []byte(s.ID()), p.message("alert", s))
}

func (p *KafkaSignalPublisher) message(kind string, s models.Signal) signalMessage {
	return signalMessage{ID: s.ID(), Symbol: p.symbol, Kind: kind, Signal: s}
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopSignalPublisher drops everything; used when Kafka is disabled.
type NopSignalPublisher struct{}

func (NopSignalPublisher) PublishSignal(context.Context, models.Signal) error { return nil }

func (NopSignalPublisher) PublishAlert(context.Context, models.Signal) error { return nil }

var (
	_ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
	_ domrepo.SignalPublisher = NopSignalPublisher{}
)
