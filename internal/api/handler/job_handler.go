package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/trade-insights/internal/api/dto"
	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/jobs"
	"github.com/cuongbtq/trade-insights/internal/model"
)

// respondError maps rejected requests to 4xx and everything else to 500
func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	var schedErr *domain.InvalidScheduleError
	switch {
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &schedErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(msg, slog.String("path", c.Request.URL.Path), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func (h *Handler) nextRun(jobID string) *string {
	if h.scheduler == nil {
		return nil
	}
	next, ok := h.scheduler.NextRunTime(jobID)
	if !ok {
		return nil
	}
	s := formatTime(next)
	return &s
}

func (h *Handler) jobDTO(def model.JobDefinition) dto.JobDTO {
	return toJobDTO(def, h.nextRun(def.JobID))
}

// ListJobs handles GET /api/v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	defs, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to list jobs", err)
		return
	}

	out := make([]dto.JobDTO, len(defs))
	for i, def := range defs {
		out[i] = h.jobDTO(def)
	}
	c.JSON(http.StatusOK, dto.ListJobsResponse{Jobs: out})
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	def, err := h.registry.Get(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, "Failed to get job", err)
		return
	}
	c.JSON(http.StatusOK, h.jobDTO(*def))
}

// UpdateJob handles PUT /api/v1/jobs/:job_id
// Validates the cron/timezone pair, persists the change and re-arms the scheduler
func (h *Handler) UpdateJob(c *gin.Context) {
	jobID := c.Param("job_id")

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("job_id", jobID), slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	def, err := h.registry.Update(c.Request.Context(), jobID, jobs.UpdateRequest{
		CronExpr:      req.CronExpr,
		Timezone:      req.Timezone,
		Enabled:       *req.Enabled,
		DefaultParams: req.DefaultParams,
	})
	if err != nil {
		h.respondError(c, "Failed to update job", err)
		return
	}
	c.JSON(http.StatusOK, h.jobDTO(*def))
}

// RunJob handles POST /api/v1/jobs/:job_id/run
// Runs the job on the request goroutine and returns the run result
func (h *Handler) RunJob(c *gin.Context) {
	jobID := c.Param("job_id")

	// an empty body runs with the stored defaults
	var req dto.RunJobRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid request body", slog.String("job_id", jobID), slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.logger.Info("Manual job run requested",
		slog.String("job_id", jobID),
		slog.String("ip", c.ClientIP()),
	)

	res, err := h.trigger.RunNow(c.Request.Context(), jobID, req.Params, domain.TriggeredByAPI)
	if err != nil {
		h.respondError(c, "Failed to run job", err)
		return
	}
	if !res.OK && res.Error == domain.ErrUnknownJob.Error() {
		c.JSON(http.StatusNotFound, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
