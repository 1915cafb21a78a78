package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/trade-insights/internal/api/dto"
	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListRuns handles GET /api/v1/runs
// Lists runs newest first with keyset pagination
func (h *Handler) ListRuns(c *gin.Context) {
	var req dto.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}
	if req.Status != "" && !domain.IsValidRunStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	cursor, err := DecodeRunCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	runs, err := h.store.ListRuns(c.Request.Context(), storage.RunFilter{
		JobID:    req.JobID,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.respondError(c, "Failed to list runs", err)
		return
	}

	hasMore := len(runs) > req.PageSize
	if hasMore {
		runs = runs[:req.PageSize]
	}

	out := make([]dto.RunDTO, len(runs))
	for i, run := range runs {
		out[i] = toRunDTO(run)
	}

	var next string
	if hasMore {
		last := runs[len(runs)-1]
		next = EncodeRunCursor(storage.RunCursor{StartedAt: last.StartedAt, ID: last.ID})
	}

	c.JSON(http.StatusOK, dto.ListRunsResponse{Runs: out, NextCursor: next})
}
