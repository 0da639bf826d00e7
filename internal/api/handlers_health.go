// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/logview/backend/internal/docstore"
)

// StatsReporter is the part of the store the health check reads.
type StatsReporter interface {
	Stats(ctx context.Context) (docstore.Stats, error)
}

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	store   StatsReporter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store StatsReporter) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		store:   store,
	}
}

// HandleHealth returns server health status. A failing store reports
// "degraded" with 503.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	if h.store == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": h.version,
		})
	}

	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "degraded",
			"version": h.version,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"store":   stats,
	})
}
