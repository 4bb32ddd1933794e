// Package domain defines the user aggregate and the events it records.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	aggregateDomain "github.com/allisson/eventledger/internal/aggregate/domain"
	eventDomain "github.com/allisson/eventledger/internal/event/domain"
)

// AggregateType identifies users in event envelopes.
const AggregateType = "user"

// Event types recorded by the user aggregate.
const (
	EventUserRegistered = "user.registered"
	EventUserRenamed    = "user.renamed"
	EventUserDeleted    = "user.deleted"
	EventUserRestored   = "user.restored"
)

// UserRegistered is the payload of user.registered.
type UserRegistered struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
}

// UserRenamed is the payload of user.renamed.
type UserRenamed struct {
	UserID  uuid.UUID `json:"user_id"`
	OldName string    `json:"old_name"`
	NewName string    `json:"new_name"`
}

// UserDeleted is the payload of user.deleted.
type UserDeleted struct {
	UserID    uuid.UUID `json:"user_id"`
	DeletedBy string    `json:"deleted_by"`
}

// UserRestored is the payload of user.restored.
type UserRestored struct {
	UserID     uuid.UUID `json:"user_id"`
	RestoredBy string    `json:"restored_by"`
}

// User is the user aggregate. Password holds the hash, never the plain text.
type User struct {
	aggregateDomain.Root[uuid.UUID]
	Name     string
	Email    string
	Password string
}

// RegisterUser creates a new user and records user.registered.
func RegisterUser(name, email, passwordHash string, opts ...eventDomain.EnvelopeOption) (*User, error) {
	user := &User{
		Root:     aggregateDomain.NewRoot(uuid.Must(uuid.NewV7())),
		Name:     strings.TrimSpace(name),
		Email:    NormalizeEmail(email),
		Password: passwordHash,
	}

	payload := UserRegistered{UserID: user.ID(), Name: user.Name, Email: user.Email}
	if err := user.record(EventUserRegistered, payload, opts); err != nil {
		return nil, err
	}
	return user, nil
}

// RehydrateUser rebuilds a stored user without recording events.
func RehydrateUser(
	id uuid.UUID,
	name, email, passwordHash string,
	version int64,
	audit aggregateDomain.Audit,
) *User {
	return &User{
		Root:     aggregateDomain.RehydrateRoot(id, version, audit),
		Name:     name,
		Email:    email,
		Password: passwordHash,
	}
}

// Rename changes the display name and records user.renamed. Renaming to the current
// name records nothing.
func (u *User) Rename(name string, opts ...eventDomain.EnvelopeOption) error {
	if u.IsDeleted() {
		return ErrUserDeleted
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if name == u.Name {
		return nil
	}

	payload := UserRenamed{UserID: u.ID(), OldName: u.Name, NewName: name}
	if err := u.record(EventUserRenamed, payload, opts); err != nil {
		return err
	}
	u.Name = name
	return nil
}

// Delete soft deletes the user and records user.deleted.
func (u *User) Delete(by string, opts ...eventDomain.EnvelopeOption) error {
	if err := u.SoftDelete(by, time.Time{}); err != nil {
		return err
	}
	return u.record(EventUserDeleted, UserDeleted{UserID: u.ID(), DeletedBy: by}, opts)
}

// Restore reverts a soft delete and records user.restored.
func (u *User) Restore(by string, opts ...eventDomain.EnvelopeOption) error {
	if err := u.Root.Restore(by, time.Time{}); err != nil {
		return err
	}
	return u.record(EventUserRestored, UserRestored{UserID: u.ID(), RestoredBy: by}, opts)
}

func (u *User) record(eventType string, payload any, opts []eventDomain.EnvelopeOption) error {
	envelope, err := eventDomain.NewEnvelope(eventType, AggregateType, u.ID().String(), payload, opts...)
	if err != nil {
		return err
	}
	u.RecordEvent(envelope)
	return nil
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
