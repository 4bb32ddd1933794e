// Package http provides HTTP handlers for user-related operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/eventledger/internal/httputil"
	"github.com/allisson/eventledger/internal/user/http/dto"
	"github.com/allisson/eventledger/internal/user/usecase"
)

// ActorHeader names the caller performing a change. Missing means the default actor.
const ActorHeader = "X-Actor"

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userUseCase usecase.UseCase
	logger      *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userUseCase usecase.UseCase, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
		logger:      logger,
	}
}

// RegisterRoutes mounts the user endpoints on group.
func (h *UserHandler) RegisterRoutes(group *gin.RouterGroup) {
	users := group.Group("/users")
	users.POST("", h.RegisterHandler)
	users.GET("/:id", h.GetHandler)
	users.PATCH("/:id", h.RenameHandler)
	users.DELETE("/:id", h.DeleteHandler)
	users.POST("/:id/restore", h.RestoreHandler)
}

// RegisterHandler registers a new user.
// POST /v1/users - Returns 201 Created with the user.
func (h *UserHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	user, err := h.userUseCase.RegisterUser(c.Request.Context(), dto.ToRegisterUserInput(req), metadataOf(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapUserToResponse(user))
}

// GetHandler retrieves a user by ID.
// GET /v1/users/:id
func (h *UserHandler) GetHandler(c *gin.Context) {
	userID, ok := h.parseID(c)
	if !ok {
		return
	}

	user, err := h.userUseCase.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserToResponse(user))
}

// RenameHandler changes a user's name.
// PATCH /v1/users/:id - Returns 409 Conflict when expected_version is stale.
func (h *UserHandler) RenameHandler(c *gin.Context) {
	userID, ok := h.parseID(c)
	if !ok {
		return
	}

	var req dto.RenameUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	user, err := h.userUseCase.RenameUser(c.Request.Context(), userID, dto.ToRenameUserInput(req), metadataOf(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserToResponse(user))
}

// DeleteHandler soft deletes a user.
// DELETE /v1/users/:id - Returns 204 No Content.
func (h *UserHandler) DeleteHandler(c *gin.Context) {
	userID, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.userUseCase.DeleteUser(c.Request.Context(), userID, metadataOf(c)); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// RestoreHandler reverts a soft delete.
// POST /v1/users/:id/restore
func (h *UserHandler) RestoreHandler(c *gin.Context) {
	userID, ok := h.parseID(c)
	if !ok {
		return
	}

	user, err := h.userUseCase.RestoreUser(c.Request.Context(), userID, metadataOf(c))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserToResponse(user))
}

func (h *UserHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid user ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return userID, true
}

// metadataOf takes the actor from ActorHeader and the correlation id from the request id.
func metadataOf(c *gin.Context) usecase.Metadata {
	return usecase.Metadata{
		Actor:         c.GetHeader(ActorHeader),
		CorrelationID: requestid.Get(c),
	}
}
