package domain

import (
	"github.com/allisson/eventledger/internal/errors"
)

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrUserVersionConflict indicates the stored user changed since it was loaded.
	ErrUserVersionConflict = errors.Wrap(errors.ErrConflict, "user was modified concurrently")

	// ErrUserDeleted indicates the operation is not allowed on a deleted user.
	ErrUserDeleted = errors.Wrap(errors.ErrInvalidOperation, "user is deleted")

	// ErrInvalidEmail indicates the email format is invalid.
	ErrInvalidEmail = errors.Wrap(errors.ErrInvalidInput, "invalid email format")

	// ErrNameRequired indicates the name field is required.
	ErrNameRequired = errors.Wrap(errors.ErrInvalidInput, "name is required")
)
