package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/cuongbtq/trade-insights/internal/api/dto"
)

const serviceName = "dashboard-service"

// MemoryReader reports host memory usage
type MemoryReader func(ctx context.Context) (*dto.MemoryStats, error)

// HostMemory reads virtual memory through gopsutil
func HostMemory(ctx context.Context) (*dto.MemoryStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.MemoryStats{
		TotalBytes:  vm.Total,
		UsedBytes:   vm.Used,
		UsedPercent: vm.UsedPercent,
	}, nil
}

// Health handles GET /api/v1/health
// Degraded when the database ping fails
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Database:  "up",
		Scheduler: "stopped",
		JobsOn:    h.jobsEnabled(),
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("Health check database ping failed", slog.Any("error", err))
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}
	if h.scheduler != nil && h.scheduler.Running() {
		resp.Scheduler = "running"
	}
	if h.memory != nil {
		if m, err := h.memory(ctx); err == nil {
			resp.Memory = m
		} else {
			h.logger.Debug("Host memory unavailable", slog.Any("error", err))
		}
	}

	c.JSON(status, resp)
}
