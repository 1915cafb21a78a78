package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/trade-insights/internal/api/dto"
	"github.com/cuongbtq/trade-insights/internal/domain"
	"github.com/cuongbtq/trade-insights/internal/storage"
	"github.com/cuongbtq/trade-insights/internal/widget"
)

var widgetKeys = map[string]bool{
	widget.KeyTradeCorridors:     true,
	widget.KeyTradeExim5y:        true,
	widget.KeyWealthIndicators5y: true,
	widget.KeyDisposableLatest:   true,
	widget.KeyAgeStructureLatest: true,
	widget.KeyFinanceMAIndustry:  true,
	widget.KeyFinanceMACountry:   true,
}

func (h *Handler) knownWidget(c *gin.Context) (string, bool) {
	key := c.Param("widget_key")
	if !widgetKeys[key] {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown widget key"})
		return "", false
	}
	return key, true
}

// GetSnapshots handles GET /api/v1/snapshots/:widget_key
// Returns the newest snapshot of every scope
func (h *Handler) GetSnapshots(c *gin.Context) {
	key, ok := h.knownWidget(c)
	if !ok {
		return
	}

	latest, err := h.store.LatestSnapshotsByKey(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, "Failed to get snapshots", err)
		return
	}

	scopes := make(map[string]dto.SnapshotDTO, len(latest))
	for scope, snap := range latest {
		scopes[scope] = toSnapshotDTO(snap)
	}
	c.JSON(http.StatusOK, dto.SnapshotsResponse{WidgetKey: key, Scopes: scopes})
}

// GetSnapshot handles GET /api/v1/snapshots/:widget_key/:scope
func (h *Handler) GetSnapshot(c *gin.Context) {
	key, ok := h.knownWidget(c)
	if !ok {
		return
	}
	scope := c.Param("scope")

	snap, err := h.store.LatestSnapshot(c.Request.Context(), key, scope)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.respondError(c, "Failed to get snapshot", err)
		return
	}
	c.JSON(http.StatusOK, toSnapshotDTO(*snap))
}

// ListInsights handles GET /api/v1/insights
// Returns the newest insight of every panel matching the filter
func (h *Handler) ListInsights(c *gin.Context) {
	var req dto.ListInsightsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	rows, err := h.store.ListLatestInsights(c.Request.Context(), storage.InsightFilter{
		CardKey: req.CardKey,
		TabKey:  req.TabKey,
		Scope:   req.Scope,
		Lang:    req.Lang,
	})
	if err != nil {
		h.respondError(c, "Failed to list insights", err)
		return
	}

	out := make([]dto.InsightDTO, len(rows))
	for i, row := range rows {
		out[i] = toInsightDTO(row)
	}
	c.JSON(http.StatusOK, dto.ListInsightsResponse{Insights: out})
}
