package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

func TestNewMessage(t *testing.T) {
	env, err := eventDomain.NewEnvelope("user.registered", "user", "1", nil)
	require.NoError(t, err)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	msg, err := NewMessage(env, now)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.NotEqual(t, env.ID, msg.ID)
	assert.True(t, msg.Envelope.Equal(env))
	assert.True(t, msg.CreatedAt.Equal(now))
	assert.Equal(t, time.UTC, msg.CreatedAt.Location())
	assert.Nil(t, msg.PublishedAt)
	assert.Zero(t, msg.RetryCount)
	assert.Nil(t, msg.LastError)
	assert.False(t, msg.IsPublished())
}

func TestNewMessage_TruncatesCreatedAt(t *testing.T) {
	env, err := eventDomain.NewEnvelope("user.registered", "user", "1", nil)
	require.NoError(t, err)

	msg, err := NewMessage(env, time.Date(2026, 5, 1, 12, 0, 0, 987654321, time.UTC))

	require.NoError(t, err)
	assert.Equal(t, 987654000, msg.CreatedAt.Nanosecond())
}

func TestMessage_IsFailed(t *testing.T) {
	publishedAt := time.Now().UTC()

	tests := []struct {
		name       string
		msg        Message
		maxRetries int
		expected   bool
	}{
		{name: "below threshold", msg: Message{RetryCount: 2}, maxRetries: 3, expected: false},
		{name: "at threshold", msg: Message{RetryCount: 3}, maxRetries: 3, expected: true},
		{name: "above threshold", msg: Message{RetryCount: 9}, maxRetries: 3, expected: true},
		{
			name:       "published rows never fail",
			msg:        Message{RetryCount: 9, PublishedAt: &publishedAt},
			maxRetries: 3,
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.msg.IsFailed(tt.maxRetries))
		})
	}
}
