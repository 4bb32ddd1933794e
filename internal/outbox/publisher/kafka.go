package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

// writeBatchTimeout bounds the wait for a batch to fill. Messages are written one at a time.
const writeBatchTimeout = 5 * time.Millisecond

// MessageWriter is the part of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes envelopes to Kafka. The message key is the aggregate id so events of
// one aggregate land on the same partition in ledger order.
type KafkaPublisher struct {
	writer       MessageWriter
	topicPrefix  string
	topicByEvent map[string]string
}

// NewKafkaPublisher creates a KafkaPublisher writing to brokers. The topic of an envelope is
// topicPrefix followed by its event type, unless topicByEvent maps the event type explicitly.
func NewKafkaPublisher(brokers []string, topicPrefix string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           writeBatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(writer, topicPrefix, topicByEvent), nil
}

// NewKafkaPublisherWithWriter creates a KafkaPublisher over an existing writer. The writer must not
// have a fixed Topic.
func NewKafkaPublisherWithWriter(writer MessageWriter, topicPrefix string, topicByEvent map[string]string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topicPrefix: topicPrefix, topicByEvent: topicByEvent}
}

// Publish writes the envelope and waits for every in-sync replica to acknowledge it.
func (p *KafkaPublisher) Publish(ctx context.Context, envelope eventDomain.Envelope) error {
	value, err := encodeEnvelope(envelope)
	if err != nil {
		return err
	}

	metadata := metadataOf(envelope)
	headers := make([]kafka.Header, 0, len(metadata))
	for key, v := range metadata {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   p.topicFor(envelope.EventType),
		Key:     []byte(envelope.AggregateID),
		Value:   value,
		Headers: headers,
		Time:    envelope.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) topicFor(eventType string) string {
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		return mapped
	}
	return p.topicPrefix + eventType
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
