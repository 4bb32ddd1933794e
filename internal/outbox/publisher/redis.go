package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

// RedisStreamPublisher appends envelopes to a Redis stream with XADD.
type RedisStreamPublisher struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// RedisConfig configures the Redis stream publisher.
type RedisConfig struct {
	// Addr is host:port or a redis:// URL.
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen trims the stream approximately to this length. Zero disables trimming.
	MaxLen int64
}

// ConnectRedis creates a Redis client from a URL or host:port input.
func ConnectRedis(cfg RedisConfig) (*redis.Client, error) {
	if strings.HasPrefix(cfg.Addr, "redis://") || strings.HasPrefix(cfg.Addr, "rediss://") {
		opt, err := redis.ParseURL(cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), nil
}

// NewRedisStreamPublisher creates a RedisStreamPublisher over client.
func NewRedisStreamPublisher(client redis.UniversalClient, stream string, maxLen int64) (*RedisStreamPublisher, error) {
	if stream == "" {
		return nil, fmt.Errorf("redis stream publisher requires a stream name")
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}, nil
}

// Publish adds one stream entry holding the envelope metadata and its JSON encoding.
func (p *RedisStreamPublisher) Publish(ctx context.Context, envelope eventDomain.Envelope) error {
	body, err := encodeEnvelope(envelope)
	if err != nil {
		return err
	}

	values := make(map[string]any)
	for key, v := range metadataOf(envelope) {
		values[key] = v
	}
	values["envelope"] = string(body)

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to add redis stream entry: %w", err)
	}
	return nil
}

// Close closes the client.
func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}
