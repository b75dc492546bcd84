package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/libhub/orders-storage/internal/domain/shared"
	"github.com/libhub/orders-storage/internal/interfaces/http/dto"
)

// Pinger checks connectivity to the backing database
type Pinger interface {
	Ping() error
}

// CleanupRunner triggers one batch-tracking cleanup pass
type CleanupRunner interface {
	RunOnce(ctx context.Context) (int64, error)
}

// AdminHandler exposes the operational surface of the reconciliation engine:
// health, outbox inspection, dead letter replay and batch cleanup.
type AdminHandler struct {
	db      Pinger
	outbox  shared.OutboxRepository
	cleanup CleanupRunner
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(db Pinger, outbox shared.OutboxRepository, cleanup CleanupRunner) *AdminHandler {
	return &AdminHandler{
		db:      db,
		outbox:  outbox,
		cleanup: cleanup,
	}
}

// Health reports service and database liveness
func (h *AdminHandler) Health(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse("DATABASE_UNAVAILABLE", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}))
}

// OutboxStats returns the number of outbox rows per status
func (h *AdminHandler) OutboxStats(c *gin.Context) {
	counts, err := h.outbox.CountByStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(counts))
}

// outboxRowResponse is the admin view of one outbox row.
type outboxRowResponse struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ListDead returns dead letter outbox rows with pagination
func (h *AdminHandler) ListDead(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	rows, total, err := h.outbox.FindDead(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}

	out := make([]outboxRowResponse, len(rows))
	for i, row := range rows {
		out[i] = outboxRowResponse{
			ID:         row.ID.String(),
			TenantID:   row.TenantID,
			EntityType: string(row.EntityType),
			Action:     string(row.Action),
			EntityID:   row.EntityID.String(),
			Status:     string(row.Status),
			RetryCount: row.RetryCount,
			LastError:  row.LastError,
			CreatedAt:  row.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(out, total, page, pageSize))
}

// RetryDead resets a dead letter row for another delivery attempt
func (h *AdminHandler) RetryDead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("INVALID_ID", "id must be a uuid"))
		return
	}

	row, err := h.outbox.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "outbox row not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}

	if err := row.ResetForRetry(); err != nil {
		c.JSON(http.StatusConflict, dto.NewErrorResponse("INVALID_STATE", err.Error()))
		return
	}
	if err := h.outbox.Update(c.Request.Context(), row); err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"id": row.ID.String(), "status": string(row.Status)}))
}

// TriggerBatchCleanup runs one batch-tracking cleanup pass immediately
func (h *AdminHandler) TriggerBatchCleanup(c *gin.Context) {
	removed, err := h.cleanup.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("INTERNAL_ERROR", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"removed": removed}))
}
