package domain

import (
	"github.com/allisson/eventledger/internal/errors"
)

// Ledger errors.
var (
	// ErrMessageNotFound indicates the ledger row does not exist.
	ErrMessageNotFound = errors.Wrap(errors.ErrNotFound, "outbox message not found")

	// ErrInvalidLimit indicates a non-positive page size.
	ErrInvalidLimit = errors.Wrap(errors.ErrInvalidInput, "limit must be greater than zero")

	// ErrInvalidMaxRetries indicates a non-positive retry threshold.
	ErrInvalidMaxRetries = errors.Wrap(errors.ErrInvalidInput, "max retries must be greater than zero")

	// ErrInvalidRetention indicates a negative retention period.
	ErrInvalidRetention = errors.Wrap(errors.ErrInvalidInput, "retention days must not be negative")
)

// ErrDuplicateEvent indicates an envelope with the same event id is already in the ledger.
var ErrDuplicateEvent = errors.Wrap(errors.ErrConflict, "event already appended to the outbox")
