// Package publisher ships audit events to a Kafka topic.
//
// Emission is fire-and-forget: the scan path must never block or fail because
// the audit pipeline is slow or down. Events that cannot be buffered are
// dropped and counted, never waited on.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "taptrail/pkg/platform/audit"
)

// Emitter is what domain services depend on. The zero-value Noop satisfies it
// for deployments without a broker.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Emit(context.Context, audit.Event) {}

// Kafka publishes audit events to a single topic, keyed by subject so one
// subject's trail stays ordered within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Config for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string
}

// NewKafka connects to the brokers and ensures the topic exists. Topic
// creation is idempotent; an "already exists" response is not an error.
func NewKafka(ctx context.Context, cfg Config, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 3, 1, nil, cfg.Topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		logger.Warn("audit topic creation returned error, continuing",
			"topic", cfg.Topic, "error", resp.Err)
	}

	return &Kafka{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Emit serializes and produces the event asynchronously. Failures are logged
// and dropped; the ingestion path never waits on the audit pipeline.
func (k *Kafka) Emit(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		k.logger.Error("marshal audit event", "action", event.Action, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.SubjectID.String()),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Warn("audit event dropped", "action", event.Action, "error", err)
		}
	})
}

// Close flushes buffered records with a short deadline and releases the client.
func (k *Kafka) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = k.client.Flush(ctx)
	k.client.Close()
}
