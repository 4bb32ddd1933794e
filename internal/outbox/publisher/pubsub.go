package publisher

import (
	"context"
	"fmt"

	"gocloud.dev/pubsub"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"

	// Register pub/sub drivers
	_ "gocloud.dev/pubsub/mempubsub"
)

// PubSubPublisher sends envelopes to a Go CDK topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// OpenPubSubPublisher opens the topic at topicURL (for example mem://events).
func OpenPubSubPublisher(ctx context.Context, topicURL string) (*PubSubPublisher, error) {
	topic, err := pubsub.OpenTopic(ctx, topicURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open pubsub topic: %w", err)
	}
	return NewPubSubPublisher(topic), nil
}

// NewPubSubPublisher creates a PubSubPublisher over an open topic.
func NewPubSubPublisher(topic *pubsub.Topic) *PubSubPublisher {
	return &PubSubPublisher{topic: topic}
}

// Publish sends the envelope and waits for the driver to accept it.
func (p *PubSubPublisher) Publish(ctx context.Context, envelope eventDomain.Envelope) error {
	body, err := encodeEnvelope(envelope)
	if err != nil {
		return err
	}

	if err := p.topic.Send(ctx, &pubsub.Message{Body: body, Metadata: metadataOf(envelope)}); err != nil {
		return fmt.Errorf("failed to send pubsub message: %w", err)
	}
	return nil
}

// Close flushes pending sends and releases the topic.
func (p *PubSubPublisher) Close() error {
	return p.topic.Shutdown(context.Background())
}
