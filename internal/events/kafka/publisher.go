package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/token-ledger/internal/interfaces"
)

// Publisher sends token events to Kafka.
type Publisher struct {
	writer      *kafka.Writer // shared writer; the topic is set per message
	topicPrefix string        // prepended to every event topic
}

// NewPublisher writes events to brokers. Each event topic is prefixed with
// topicPrefix, e.g. "tam." + "token.transfer".
func NewPublisher(brokers []string, topicPrefix string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...), // bootstrap brokers
			Balancer:               &kafka.LeastBytes{},   // pick the partition with the least pending bytes
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           10 * time.Second,
			// Publishes are synchronous and one operation at a time.
			BatchTimeout: 10 * time.Millisecond,
		},
		topicPrefix: topicPrefix,
	}
}

// Publish JSON-encodes event and writes it to the prefixed topic.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event) // events are plain structs with json tags
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: p.topicPrefix + topic,
			Value: data,
			Time:  time.Now().UTC(), // broker timestamp, the event carries its own OccurredAt
		},
	)
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Compile-time check: ensure Publisher implements EventPublisher
var _ interfaces.EventPublisher = (*Publisher)(nil)
