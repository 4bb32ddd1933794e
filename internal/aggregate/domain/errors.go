package domain

import (
	"github.com/allisson/eventledger/internal/errors"
)

// Lifecycle errors returned by Root.
var (
	// ErrAggregateAlreadyDeleted indicates a soft delete on an aggregate that is already deleted.
	ErrAggregateAlreadyDeleted = errors.Wrap(errors.ErrInvalidOperation, "aggregate is already deleted")

	// ErrAggregateNotDeleted indicates a restore on an aggregate that is active.
	ErrAggregateNotDeleted = errors.Wrap(errors.ErrInvalidOperation, "aggregate is not deleted")
)
