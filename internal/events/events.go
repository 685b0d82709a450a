// Package events publishes analysis lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Kind string

const (
	KindUploaded Kind = "evidence.uploaded"
	KindAnalyzed Kind = "analysis.completed"
	KindExported Kind = "report.exported"
	KindDisposed Kind = "evidence.disposed"
)

type Event struct {
	Kind                Kind      `json:"kind"`
	SessionID           string    `json:"session_id"`
	ResultID            string    `json:"result_id,omitempty"`
	SHA256              string    `json:"sha256"`
	AnalysisType        string    `json:"analysis_type,omitempty"`
	Risk                string    `json:"risk,omitempty"`
	DeepfakeProbability *float64  `json:"deepfake_probability,omitempty"`
	Degraded            bool      `json:"degraded,omitempty"`
	Format              string    `json:"format,omitempty"`
	OccurredAt          time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one JSON message per event, keyed by the evidence
// digest so all events for one file land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Kind, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.SHA256),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Kind, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
