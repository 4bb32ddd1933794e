package domain

import (
	"github.com/allisson/eventledger/internal/errors"
)

// ErrInvalidPayload indicates the event payload cannot be encoded or decoded as JSON.
var ErrInvalidPayload = errors.Wrap(errors.ErrInvalidInput, "invalid event payload")
