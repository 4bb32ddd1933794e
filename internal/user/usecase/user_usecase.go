package usecase

import (
	"context"

	"github.com/allisson/go-pwdhash"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/eventledger/internal/errors"
	eventDomain "github.com/allisson/eventledger/internal/event/domain"
	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
	"github.com/allisson/eventledger/internal/user/domain"
	appValidation "github.com/allisson/eventledger/internal/validation"
)

// DefaultActor is recorded when a change carries no actor.
const DefaultActor = "system"

// UserUseCase handles user-related business logic
type UserUseCase struct {
	unitOfWork     outboxUsecase.UnitOfWork
	userRepo       UserRepository
	passwordHasher *pwdhash.PasswordHasher
}

// NewUserUseCase creates a new UserUseCase
func NewUserUseCase(unitOfWork outboxUsecase.UnitOfWork, userRepo UserRepository) (UseCase, error) {
	// Initialize password hasher with interactive policy for user passwords
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}

	return &UserUseCase{
		unitOfWork:     unitOfWork,
		userRepo:       userRepo,
		passwordHasher: hasher,
	}, nil
}

func (uc *UserUseCase) validateRegisterUserInput(input RegisterUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:      8,
				RequireUpper:   true,
				RequireLower:   true,
				RequireNumber:  true,
				RequireSpecial: true,
			},
		),
	)
	return appValidation.WrapValidationError(err)
}

// RegisterUser registers a new user and records user.registered.
func (uc *UserUseCase) RegisterUser(
	ctx context.Context,
	input RegisterUserInput,
	meta Metadata,
) (*domain.User, error) {
	if err := uc.validateRegisterUserInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.passwordHasher.Hash([]byte(input.Password))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	user, err := domain.RegisterUser(input.Name, input.Email, hashedPassword, meta.envelopeOptions()...)
	if err != nil {
		return nil, err
	}

	if err := uc.save(ctx, user, meta); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (uc *UserUseCase) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}

// GetUserByEmail retrieves a user by email
func (uc *UserUseCase) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return uc.userRepo.GetByEmail(ctx, domain.NormalizeEmail(email))
}

// RenameUser changes the user name. When input.ExpectedVersion is set and the stored
// version differs, ErrUserVersionConflict is returned without writing.
func (uc *UserUseCase) RenameUser(
	ctx context.Context,
	id uuid.UUID,
	input RenameUserInput,
	meta Metadata,
) (*domain.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.ExpectedVersion != nil && *input.ExpectedVersion != user.Version() {
		return nil, domain.ErrUserVersionConflict
	}

	if err := user.Rename(input.Name, meta.envelopeOptions()...); err != nil {
		return nil, err
	}
	if err := uc.save(ctx, user, meta); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser soft deletes the user and records user.deleted.
func (uc *UserUseCase) DeleteUser(ctx context.Context, id uuid.UUID, meta Metadata) error {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := user.Delete(meta.actor(), meta.envelopeOptions()...); err != nil {
		return err
	}
	return uc.save(ctx, user, meta)
}

// RestoreUser reverts a soft delete and records user.restored.
func (uc *UserUseCase) RestoreUser(ctx context.Context, id uuid.UUID, meta Metadata) (*domain.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := user.Restore(meta.actor(), meta.envelopeOptions()...); err != nil {
		return nil, err
	}
	if err := uc.save(ctx, user, meta); err != nil {
		return nil, err
	}
	return user, nil
}

// save writes the user and its pending events atomically. A user without pending
// events is left untouched.
func (uc *UserUseCase) save(ctx context.Context, user *domain.User, meta Metadata) error {
	if !user.HasEvents() {
		return nil
	}

	return uc.unitOfWork.Save(ctx, user, meta.actor(), func(ctx context.Context, stamp outboxUsecase.Stamp) error {
		if stamp.Created {
			return uc.userRepo.Create(ctx, user, stamp)
		}
		return uc.userRepo.Update(ctx, user, stamp)
	})
}

func (m Metadata) actor() string {
	if m.Actor == "" {
		return DefaultActor
	}
	return m.Actor
}

func (m Metadata) envelopeOptions() []eventDomain.EnvelopeOption {
	if m.CorrelationID == "" {
		return nil
	}
	return []eventDomain.EnvelopeOption{eventDomain.WithCorrelationID(m.CorrelationID)}
}
