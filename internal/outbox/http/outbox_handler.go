// Package http provides the operator HTTP API over the outbox ledger.
package http

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/eventledger/internal/httputil"
	"github.com/allisson/eventledger/internal/outbox/http/dto"
	"github.com/allisson/eventledger/internal/outbox/usecase"
)

// maxRetentionDays bounds the days query parameter of the purge endpoint.
const maxRetentionDays = 36500

// OutboxHandler handles operator requests against the ledger.
type OutboxHandler struct {
	outboxUseCase usecase.OutboxUseCase
	maxRetries    int
	logger        *slog.Logger
}

// NewOutboxHandler creates a new OutboxHandler. maxRetries is the default threshold of the
// failed listing and should match the dispatcher configuration.
func NewOutboxHandler(outboxUseCase usecase.OutboxUseCase, maxRetries int, logger *slog.Logger) *OutboxHandler {
	return &OutboxHandler{
		outboxUseCase: outboxUseCase,
		maxRetries:    maxRetries,
		logger:        logger,
	}
}

// RegisterRoutes mounts the outbox endpoints on group.
func (h *OutboxHandler) RegisterRoutes(group *gin.RouterGroup) {
	outbox := group.Group("/outbox")
	outbox.GET("/messages", h.ListHandler)
	outbox.GET("/messages/failed", h.ListFailedHandler)
	outbox.DELETE("/messages/published", h.PurgeHandler)
	outbox.GET("/messages/:id", h.GetHandler)
	outbox.POST("/messages/:id/requeue", h.RequeueHandler)
	outbox.GET("/backlog", h.BacklogHandler)
}

// ListHandler lists unpublished rows, oldest first.
// GET /v1/outbox/messages?limit=50
func (h *OutboxHandler) ListHandler(c *gin.Context) {
	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	messages, err := h.outboxUseCase.ListUnpublished(c.Request.Context(), limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMessagesToListResponse(messages))
}

// ListFailedHandler lists unpublished rows that reached the retry threshold.
// GET /v1/outbox/messages/failed?max_retries=5
func (h *OutboxHandler) ListFailedHandler(c *gin.Context) {
	maxRetries, err := httputil.ParseIntQuery(c, "max_retries", h.maxRetries, 1, math.MaxInt32)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	messages, err := h.outboxUseCase.ListFailed(c.Request.Context(), maxRetries)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMessagesToListResponse(messages))
}

// GetHandler returns one ledger row.
// GET /v1/outbox/messages/:id
func (h *OutboxHandler) GetHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	msg, err := h.outboxUseCase.GetByID(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMessageToResponse(msg))
}

// RequeueHandler marks a row unpublished so it is delivered again.
// POST /v1/outbox/messages/:id/requeue - Returns 204 No Content.
func (h *OutboxHandler) RequeueHandler(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.outboxUseCase.Requeue(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("outbox message requeued", slog.String("message_id", id.String()))
	c.Status(http.StatusNoContent)
}

// PurgeHandler removes published rows older than days. The days parameter is required.
// DELETE /v1/outbox/messages/published?days=7&dry_run=true
func (h *OutboxHandler) PurgeHandler(c *gin.Context) {
	days, err := httputil.RequireIntQuery(c, "days", 0, maxRetentionDays)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	dryRun, err := httputil.ParseBoolQuery(c, "dry_run", false)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	count, err := h.outboxUseCase.PurgePublished(c.Request.Context(), days, dryRun)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.PurgeResponse{Count: count, Days: days, DryRun: dryRun})
}

// BacklogHandler reports the number of unpublished rows.
// GET /v1/outbox/backlog
func (h *OutboxHandler) BacklogHandler(c *gin.Context) {
	count, err := h.outboxUseCase.Backlog(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.BacklogResponse{Unpublished: count})
}

func (h *OutboxHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid message ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return id, true
}
