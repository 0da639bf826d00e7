// handlers_sources.go - Source configuration handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/logview/backend/internal/models"
	"github.com/logview/backend/internal/sources"
)

// SourcesHandlerImpl implements the SourcesHandler interface
type SourcesHandlerImpl struct {
	provider *sources.Provider
}

// NewSourcesHandler creates a new sources handler
func NewSourcesHandler(provider *sources.Provider) SourcesHandler {
	return &SourcesHandlerImpl{provider: provider}
}

// HandleListSources returns all configured sources
func (h *SourcesHandlerImpl) HandleListSources(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"sources": h.provider.List()})
}

// HandleGetSource returns one source configuration
func (h *SourcesHandlerImpl) HandleGetSource(c echo.Context) error {
	source, err := h.provider.GetSourceConfiguration(c.Request().Context(), c.Param("sourceId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, source)
}

// HandlePutSource creates or replaces a source configuration
func (h *SourcesHandlerImpl) HandlePutSource(c echo.Context) error {
	var source models.SourceConfiguration
	if err := c.Bind(&source); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	// The path wins over the body.
	source.ID = c.Param("sourceId")

	if err := h.provider.Put(source); err != nil {
		return NewBadRequestError("invalid source configuration", err)
	}
	return c.JSON(http.StatusOK, source)
}
