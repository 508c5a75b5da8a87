// Package kafka publishes audit events to a Kafka topic. Kafka is the
// durable fan-out point for downstream compliance and ops consumers; the
// service itself never reads events back through this store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "verigrant/pkg/platform/audit"
)

// DefaultTopic is the topic audit events are produced to unless overridden.
const DefaultTopic = "verigrant.treasury.audit"

// Store implements audit.Store by producing one record per event.
type Store struct {
	client *kgo.Client
	topic  string
}

type Option func(*Store)

// WithTopic overrides the destination topic.
func WithTopic(topic string) Option {
	return func(s *Store) {
		s.topic = topic
	}
}

// New creates a Kafka-backed audit store over an existing franz-go client.
// The caller owns the client lifecycle.
func New(client *kgo.Client, opts ...Option) *Store {
	s := &Store{client: client, topic: DefaultTopic}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial creates a franz-go client for the given brokers. Kept here so main
// has a single place to wire Kafka from config.
func Dial(brokers []string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchMaxBytes(1<<20),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// payload is the JSON structure produced to Kafka. Field names are part of
// the consumer contract; change them only with a topic version bump.
type payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor,omitempty"`
	Grantee   string `json:"grantee,omitempty"`
	Action    string `json:"action"`
	Amount    int64  `json:"amount,omitempty"`
	Pool      string `json:"pool,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Append produces the event synchronously. Audit durability is part of the
// compliance story, so a produce failure is surfaced to the caller instead
// of being swallowed.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	p := payload{
		ID:        uuid.NewString(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Amount:    event.Amount,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	if !event.Actor.IsNil() {
		p.Actor = event.Actor.String()
	}
	if !event.Grantee.IsNil() {
		p.Grantee = event.Grantee.String()
	}
	if !event.Pool.IsNil() {
		p.Pool = event.Pool.String()
	}

	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(keyFor(event)),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// keyFor partitions by actor so a single account's trail stays ordered.
func keyFor(event audit.Event) string {
	if !event.Actor.IsNil() {
		return event.Actor.String()
	}
	return event.Action
}

var _ audit.Store = (*Store)(nil)
