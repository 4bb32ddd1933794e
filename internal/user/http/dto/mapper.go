package dto

import (
	"github.com/allisson/eventledger/internal/user/domain"
	"github.com/allisson/eventledger/internal/user/usecase"
)

// ToRegisterUserInput converts a RegisterUserRequest DTO to a RegisterUserInput use case input
func ToRegisterUserInput(req RegisterUserRequest) usecase.RegisterUserInput {
	return usecase.RegisterUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
}

// ToRenameUserInput converts a RenameUserRequest DTO to a RenameUserInput use case input
func ToRenameUserInput(req RenameUserRequest) usecase.RenameUserInput {
	return usecase.RenameUserInput{
		Name:            req.Name,
		ExpectedVersion: req.ExpectedVersion,
	}
}

// MapUserToResponse converts a domain User to a UserResponse DTO.
func MapUserToResponse(user *domain.User) UserResponse {
	audit := user.Audit()
	return UserResponse{
		ID:        user.ID().String(),
		Name:      user.Name,
		Email:     user.Email,
		Version:   user.Version(),
		CreatedAt: audit.CreatedAt,
		CreatedBy: audit.CreatedBy,
		UpdatedAt: audit.UpdatedAt,
		UpdatedBy: audit.UpdatedBy,
		DeletedAt: audit.DeletedAt,
		DeletedBy: audit.DeletedBy,
	}
}
