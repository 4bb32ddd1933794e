package publisher

import (
	"context"
	"errors"
	"fmt"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	"github.com/allisson/eventledger/internal/outbox/usecase"
)

// ErrNoRoute is returned for an event type with no registered publisher and no fallback.
var ErrNoRoute = errors.New("no publisher registered for event type")

// Router dispatches envelopes to publishers registered by event type.
// Register every route before the router is used. Publishers registered through Handle or
// NewRouter stay open on Close; only the publishers New built for the router are closed.
type Router struct {
	routes   map[string]usecase.Publisher
	fallback usecase.Publisher
	owned    []Publisher
}

// NewRouter creates a Router. fallback receives unrouted event types and may be nil.
func NewRouter(fallback usecase.Publisher) *Router {
	return &Router{routes: make(map[string]usecase.Publisher), fallback: fallback}
}

// Handle registers publisher for eventType, replacing any previous registration.
func (r *Router) Handle(eventType string, publisher usecase.Publisher) *Router {
	r.routes[eventType] = publisher
	return r
}

// Publish forwards the envelope to the publisher registered for its event type.
func (r *Router) Publish(ctx context.Context, envelope eventDomain.Envelope) error {
	if publisher, ok := r.routes[envelope.EventType]; ok {
		return publisher.Publish(ctx, envelope)
	}
	if r.fallback != nil {
		return r.fallback.Publish(ctx, envelope)
	}
	return fmt.Errorf("%w: %s", ErrNoRoute, envelope.EventType)
}

// Close closes the publishers New built for this router.
func (r *Router) Close() error {
	return closeEach(r.owned)
}
