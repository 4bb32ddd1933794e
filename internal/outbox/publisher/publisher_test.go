package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/mempubsub"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	"github.com/allisson/eventledger/internal/outbox/usecase/mocks"
)

func newEnvelope(t *testing.T, eventType string) eventDomain.Envelope {
	t.Helper()
	envelope, err := eventDomain.NewEnvelope(
		eventType,
		"user",
		uuid.NewString(),
		map[string]string{"name": "ada"},
		eventDomain.WithCorrelationID("req-1"),
	)
	require.NoError(t, err)
	return envelope
}

func decodeEnvelope(t *testing.T, body []byte) eventDomain.Envelope {
	t.Helper()
	var envelope eventDomain.Envelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func TestLogPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_LogsEnvelope", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))
		envelope := newEnvelope(t, "user.registered")

		require.NoError(t, p.Publish(ctx, envelope))
		assert.Contains(t, buf.String(), `"event_type":"user.registered"`)
		assert.Contains(t, buf.String(), envelope.ID.String())
		assert.NoError(t, p.Close())
	})

	t.Run("Success_NilLogger", func(t *testing.T) {
		p := NewLogPublisher(nil)
		assert.NoError(t, p.Publish(ctx, newEnvelope(t, "user.registered")))
	})

	t.Run("Error_InvalidPayload", func(t *testing.T) {
		p := NewLogPublisher(nil)
		envelope := newEnvelope(t, "user.registered")
		envelope.Payload = json.RawMessage(`{broken`)

		assert.Error(t, p.Publish(ctx, envelope))
	})
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_NoBrokers", func(t *testing.T) {
		p, err := NewKafkaPublisher(nil, "events.", nil)
		assert.Error(t, err)
		assert.Nil(t, p)
	})

	t.Run("Success_WritesKeyedMessage", func(t *testing.T) {
		writer := &fakeWriter{}
		p := NewKafkaPublisherWithWriter(writer, "events.", map[string]string{"user.deleted": "user-tombstones"})
		registered := newEnvelope(t, "user.registered")
		deleted := newEnvelope(t, "user.deleted")

		require.NoError(t, p.Publish(ctx, registered))
		require.NoError(t, p.Publish(ctx, deleted))
		require.Len(t, writer.messages, 2)

		msg := writer.messages[0]
		assert.Equal(t, "events.user.registered", msg.Topic)
		assert.Equal(t, registered.AggregateID, string(msg.Key))
		assert.True(t, registered.Equal(decodeEnvelope(t, msg.Value)))
		assert.Equal(t, registered.ID.String(), headerValue(msg.Headers, MetadataEventID))
		assert.Equal(t, "req-1", headerValue(msg.Headers, MetadataCorrelationID))
		assert.Empty(t, headerValue(msg.Headers, MetadataCausationID))

		assert.Equal(t, "user-tombstones", writer.messages[1].Topic)

		require.NoError(t, p.Close())
		assert.True(t, writer.closed)
	})

	t.Run("Success_WriterFlushesPromptly", func(t *testing.T) {
		p, err := NewKafkaPublisher([]string{"localhost:9092"}, "events.", nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })

		writer, ok := p.writer.(*kafka.Writer)
		require.True(t, ok)
		assert.Equal(t, writeBatchTimeout, writer.BatchTimeout)
		assert.Less(t, writer.BatchTimeout, 100*time.Millisecond)
		assert.Equal(t, kafka.RequireAll, writer.RequiredAcks)
	})

	t.Run("Error_WriteFails", func(t *testing.T) {
		writer := &fakeWriter{err: errors.New("leader not available")}
		p := NewKafkaPublisherWithWriter(writer, "", nil)

		err := p.Publish(ctx, newEnvelope(t, "user.registered"))
		assert.ErrorContains(t, err, "leader not available")
	})
}

func TestRedisStreamPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Error_MissingStream", func(t *testing.T) {
		p, err := NewRedisStreamPublisher(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", 0)
		assert.Error(t, err)
		assert.Nil(t, p)
	})

	t.Run("Success_AppendsEntries", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := ConnectRedis(RedisConfig{Addr: mr.Addr()})
		require.NoError(t, err)

		p, err := NewRedisStreamPublisher(client, "outbox", 1000)
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })

		first := newEnvelope(t, "user.registered")
		second := newEnvelope(t, "user.renamed")
		require.NoError(t, p.Publish(ctx, first))
		require.NoError(t, p.Publish(ctx, second))

		entries, err := client.XRange(ctx, "outbox", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, first.ID.String(), entries[0].Values[MetadataEventID])
		assert.Equal(t, "user.registered", entries[0].Values[MetadataEventType])
		assert.Equal(t, "req-1", entries[0].Values[MetadataCorrelationID])
		assert.True(t, first.Equal(decodeEnvelope(t, []byte(entries[0].Values["envelope"].(string)))))
		assert.Equal(t, second.ID.String(), entries[1].Values[MetadataEventID])
	})

	t.Run("Error_ServerDown", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := ConnectRedis(RedisConfig{Addr: "redis://" + mr.Addr() + "/0"})
		require.NoError(t, err)
		p, err := NewRedisStreamPublisher(client, "outbox", 0)
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })
		mr.Close()

		err = p.Publish(ctx, newEnvelope(t, "user.registered"))
		assert.ErrorContains(t, err, "failed to add redis stream entry")
	})

	t.Run("Error_InvalidURL", func(t *testing.T) {
		_, err := ConnectRedis(RedisConfig{Addr: "redis://:bad:port/x"})
		assert.Error(t, err)
	})
}

func TestPubSubPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoundTrip", func(t *testing.T) {
		topic := mempubsub.NewTopic()
		sub := mempubsub.NewSubscription(topic, time.Minute)
		t.Cleanup(func() { _ = sub.Shutdown(ctx) })

		p := NewPubSubPublisher(topic)
		envelope := newEnvelope(t, "user.registered")
		require.NoError(t, p.Publish(ctx, envelope))

		receiveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		msg, err := sub.Receive(receiveCtx)
		require.NoError(t, err)
		msg.Ack()

		assert.True(t, envelope.Equal(decodeEnvelope(t, msg.Body)))
		assert.Equal(t, "user.registered", msg.Metadata[MetadataEventType])
		assert.Equal(t, envelope.AggregateID, msg.Metadata[MetadataAggregateID])

		require.NoError(t, p.Close())
	})

	t.Run("Error_InvalidURL", func(t *testing.T) {
		p, err := OpenPubSubPublisher(ctx, "unknown://topic")
		assert.Error(t, err)
		assert.Nil(t, p)
	})
}

func TestRouter(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoutesByEventType", func(t *testing.T) {
		users := &mocks.MockPublisher{}
		fallback := &mocks.MockPublisher{}
		registered := newEnvelope(t, "user.registered")
		other := newEnvelope(t, "order.placed")

		users.On("Publish", ctx, registered).Return(nil).Once()
		fallback.On("Publish", ctx, other).Return(nil).Once()

		router := NewRouter(fallback).Handle("user.registered", users)
		require.NoError(t, router.Publish(ctx, registered))
		require.NoError(t, router.Publish(ctx, other))

		users.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("Error_NoRoute", func(t *testing.T) {
		router := NewRouter(nil)

		err := router.Publish(ctx, newEnvelope(t, "user.registered"))
		assert.ErrorIs(t, err, ErrNoRoute)
		assert.ErrorContains(t, err, "user.registered")
	})

	t.Run("Error_PropagatesPublisherError", func(t *testing.T) {
		users := &mocks.MockPublisher{}
		envelope := newEnvelope(t, "user.registered")
		users.On("Publish", ctx, envelope).Return(errors.New("broker down")).Once()

		router := NewRouter(nil).Handle("user.registered", users)
		assert.EqualError(t, router.Publish(ctx, envelope), "broker down")
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Log", func(t *testing.T) {
		p, err := New(ctx, Config{Driver: DriverLog}, nil)
		require.NoError(t, err)
		assert.IsType(t, &LogPublisher{}, p)
	})

	t.Run("Success_Kafka", func(t *testing.T) {
		p, err := New(ctx, Config{
			Driver:           DriverKafka,
			KafkaBrokers:     []string{"localhost:9092"},
			KafkaTopicPrefix: "events.",
			KafkaTopics:      map[string]string{"user.deleted": "user-tombstones"},
		}, nil)
		require.NoError(t, err)
		require.IsType(t, &KafkaPublisher{}, p)

		kp := p.(*KafkaPublisher)
		assert.Equal(t, "user-tombstones", kp.topicFor("user.deleted"))
		assert.Equal(t, "events.user.registered", kp.topicFor("user.registered"))
		assert.NoError(t, p.Close())
	})

	t.Run("Success_Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		p, err := New(ctx, Config{Driver: DriverRedis, Redis: RedisConfig{Addr: mr.Addr(), Stream: "outbox"}}, nil)
		require.NoError(t, err)
		assert.IsType(t, &RedisStreamPublisher{}, p)
		assert.NoError(t, p.Close())
	})

	t.Run("Error_RedisWithoutStream", func(t *testing.T) {
		_, err := New(ctx, Config{Driver: DriverRedis, Redis: RedisConfig{Addr: "localhost:6379"}}, nil)
		assert.Error(t, err)
	})

	t.Run("Success_PubSub", func(t *testing.T) {
		p, err := New(ctx, Config{Driver: DriverPubSub, PubSubTopicURL: "mem://outbox-factory"}, nil)
		require.NoError(t, err)
		assert.IsType(t, &PubSubPublisher{}, p)
		assert.NoError(t, p.Close())
	})

	t.Run("Error_UnsupportedDriver", func(t *testing.T) {
		_, err := New(ctx, Config{Driver: "carrier-pigeon"}, nil)
		assert.ErrorContains(t, err, "unsupported publisher driver")
	})

	t.Run("Success_Routes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		topicURL := "mem://outbox-routes"

		p, err := New(ctx, Config{
			Driver:         DriverPubSub,
			PubSubTopicURL: topicURL,
			Routes:         map[string]string{"user.deleted": DriverLog, "user.renamed": DriverPubSub},
		}, logger)
		require.NoError(t, err)
		require.IsType(t, &Router{}, p)
		assert.Len(t, p.(*Router).owned, 2)

		sub, err := pubsub.OpenSubscription(ctx, topicURL)
		require.NoError(t, err)
		t.Cleanup(func() { _ = sub.Shutdown(ctx) })

		deleted := newEnvelope(t, "user.deleted")
		registered := newEnvelope(t, "user.registered")
		require.NoError(t, p.Publish(ctx, deleted))
		require.NoError(t, p.Publish(ctx, registered))

		assert.Contains(t, buf.String(), deleted.ID.String())
		assert.NotContains(t, buf.String(), registered.ID.String())

		receiveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		msg, err := sub.Receive(receiveCtx)
		require.NoError(t, err)
		msg.Ack()
		assert.Equal(t, registered.ID, decodeEnvelope(t, msg.Body).ID)

		assert.NoError(t, p.Close())
	})

	t.Run("Error_UnsupportedRouteDriver", func(t *testing.T) {
		_, err := New(ctx, Config{
			Driver: DriverLog,
			Routes: map[string]string{"user.deleted": "carrier-pigeon"},
		}, nil)
		assert.ErrorContains(t, err, "route user.deleted")
		assert.ErrorContains(t, err, "unsupported publisher driver")
	})
}

type closeCounter struct {
	closed int
	err    error
}

func (c *closeCounter) Publish(context.Context, eventDomain.Envelope) error { return nil }

func (c *closeCounter) Close() error {
	c.closed++
	return c.err
}

func TestRouter_Close(t *testing.T) {
	owned := &closeCounter{err: errors.New("flush failed")}
	borrowed := &closeCounter{}

	router := NewRouter(borrowed).Handle("user.registered", owned)
	router.owned = []Publisher{owned}

	assert.EqualError(t, router.Close(), "flush failed")
	assert.Equal(t, 1, owned.closed)
	assert.Zero(t, borrowed.closed)
}
