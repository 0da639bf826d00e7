// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// LogEntriesHandler serves the log entries paging and summary operations
type LogEntriesHandler interface {
	HandleEntries(c echo.Context) error
	HandleEntriesMsgpack(c echo.Context) error
	HandleEntriesAround(c echo.Context) error
	HandleEntriesAroundSplit(c echo.Context) error
	HandleEntriesBetween(c echo.Context) error
	HandleHighlights(c echo.Context) error
	HandleSummary(c echo.Context) error
	HandleSummaryHighlights(c echo.Context) error
	HandleGetItem(c echo.Context) error
}

// IngestHandler loads documents into the store
type IngestHandler interface {
	HandleIndexDocuments(c echo.Context) error
	HandleStartIngest(c echo.Context) error
	HandleIngestStatus(c echo.Context) error
	HandleListParsers(c echo.Context) error
}

// UploadHandler handles log file uploads
type UploadHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleUploadChunk(c echo.Context) error
	HandleCompleteUpload(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// SourcesHandler exposes source configurations
type SourcesHandler interface {
	HandleListSources(c echo.Context) error
	HandleGetSource(c echo.Context) error
	HandlePutSource(c echo.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
