// Package domain provides the embeddable aggregate root that buffers events
// and tracks version and lifecycle audit data.
package domain

import (
	"time"

	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

// Audit holds the lifecycle audit fields of an aggregate.
// DeletedAt and DeletedBy are either both nil or both set.
type Audit struct {
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
	DeletedAt *time.Time
	DeletedBy *string
}

// Root is embedded by concrete aggregates. It is not safe for concurrent use.
type Root[ID comparable] struct {
	id      ID
	version int64
	events  []eventDomain.Envelope
	audit   Audit
}

// NewRoot returns a root for a new aggregate at version 0.
func NewRoot[ID comparable](id ID) Root[ID] {
	return Root[ID]{id: id}
}

// RehydrateRoot rebuilds a root from persisted state. The event buffer starts empty.
func RehydrateRoot[ID comparable](id ID, version int64, audit Audit) Root[ID] {
	return Root[ID]{id: id, version: version, audit: copyAudit(audit)}
}

func (r *Root[ID]) ID() ID {
	return r.id
}

func (r *Root[ID]) Version() int64 {
	return r.version
}

// Audit returns a copy of the audit fields.
func (r *Root[ID]) Audit() Audit {
	return copyAudit(r.audit)
}

// Equal compares aggregates by identity only.
func (r *Root[ID]) Equal(other *Root[ID]) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.id == other.id
}

// RecordEvent appends an envelope to the pending buffer. Concrete aggregates
// call it from their own domain operations.
func (r *Root[ID]) RecordEvent(e eventDomain.Envelope) {
	r.events = append(r.events, e)
}

// PendingEvents returns a snapshot of the buffer in record order.
func (r *Root[ID]) PendingEvents() []eventDomain.Envelope {
	out := make([]eventDomain.Envelope, len(r.events))
	copy(out, r.events)
	return out
}

// ClearEvents empties the buffer.
func (r *Root[ID]) ClearEvents() {
	r.events = nil
}

func (r *Root[ID]) EventCount() int {
	return len(r.events)
}

func (r *Root[ID]) HasEvents() bool {
	return len(r.events) > 0
}

// MarkAsCreated stamps creation and update fields with the same actor and time.
// A zero at means now.
func (r *Root[ID]) MarkAsCreated(by string, at time.Time) {
	at = normalize(at)
	r.audit.CreatedAt = at
	r.audit.CreatedBy = by
	r.audit.UpdatedAt = at
	r.audit.UpdatedBy = by
}

// MarkAsUpdated stamps the update fields. A zero at means now.
func (r *Root[ID]) MarkAsUpdated(by string, at time.Time) {
	at = normalize(at)
	r.audit.UpdatedAt = at
	r.audit.UpdatedBy = by
}

// SoftDelete marks the aggregate deleted. A zero at means now.
func (r *Root[ID]) SoftDelete(by string, at time.Time) error {
	if r.IsDeleted() {
		return ErrAggregateAlreadyDeleted
	}
	at = normalize(at)
	r.audit.DeletedAt = &at
	r.audit.DeletedBy = &by
	r.audit.UpdatedAt = at
	r.audit.UpdatedBy = by
	return nil
}

// Restore reverts a soft delete. A zero at means now.
func (r *Root[ID]) Restore(by string, at time.Time) error {
	if !r.IsDeleted() {
		return ErrAggregateNotDeleted
	}
	at = normalize(at)
	r.audit.DeletedAt = nil
	r.audit.DeletedBy = nil
	r.audit.UpdatedAt = at
	r.audit.UpdatedBy = by
	return nil
}

func (r *Root[ID]) IsDeleted() bool {
	return r.audit.DeletedAt != nil
}

func (r *Root[ID]) IsActive() bool {
	return !r.IsDeleted()
}

// IncrementVersion bumps the version by one after a successful save.
func (r *Root[ID]) IncrementVersion() {
	r.version++
}

func normalize(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}

func copyAudit(a Audit) Audit {
	out := a
	if a.DeletedAt != nil {
		deletedAt := *a.DeletedAt
		out.DeletedAt = &deletedAt
	}
	if a.DeletedBy != nil {
		deletedBy := *a.DeletedBy
		out.DeletedBy = &deletedBy
	}
	return out
}
