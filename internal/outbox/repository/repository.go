// Package repository provides the outbox ledger for PostgreSQL, MySQL and SQLite.
// Every repository joins the caller's transaction when the context carries one.
package repository

import (
	"time"

	"github.com/allisson/eventledger/internal/outbox/domain"
)

// messageColumns is the select list shared by every dialect; scanners rely on its order.
const messageColumns = `id, event_id, event_type, aggregate_type, aggregate_id, event_version, occurred_at,
	causation_id, correlation_id, payload, created_at, published_at, retry_count, last_error, last_attempt_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func validateLimit(limit int) error {
	if limit <= 0 {
		return domain.ErrInvalidLimit
	}
	return nil
}

func validateMaxRetries(maxRetries int) error {
	if maxRetries <= 0 {
		return domain.ErrInvalidMaxRetries
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func normalizeTimes(msg *domain.Message) {
	msg.CreatedAt = msg.CreatedAt.UTC()
	msg.Envelope.OccurredAt = msg.Envelope.OccurredAt.UTC()
	msg.PublishedAt = utcPtr(msg.PublishedAt)
	msg.LastAttemptAt = utcPtr(msg.LastAttemptAt)
}
