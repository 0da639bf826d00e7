// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/logview/backend/internal/docstore"
	"github.com/logview/backend/internal/ingest"
	"github.com/logview/backend/internal/logentries"
	"github.com/logview/backend/internal/sources"
	"github.com/logview/backend/internal/storage"
	"github.com/rs/zerolog"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Domain    *logentries.Domain
	Sources   *sources.Provider
	Store     docstore.Store
	Ingest    *ingest.Manager
	Uploads   storage.Store
	// ImportDir holds log files that POST /api/ingest may read by path.
	ImportDir string
	Version   string
}

// Handlers holds all handler instances
type Handlers struct {
	Health     HealthHandler
	LogEntries LogEntriesHandler
	Ingest     IngestHandler
	Sources    SourcesHandler
	Upload     UploadHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(deps.Version, deps.Store),
		LogEntries: NewLogEntriesHandler(deps.Domain),
		Ingest:     NewIngestHandler(deps.Ingest, deps.Uploads, deps.ImportDir),
		Sources:    NewSourcesHandler(deps.Sources),
		Upload:     NewUploadHandler(deps.Uploads, deps.Ingest),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Log entries
	entriesGroup := apiGroup.Group("/log_entries")
	entriesGroup.POST("/entries", handlers.LogEntries.HandleEntries)
	entriesGroup.GET("/entries/msgpack", handlers.LogEntries.HandleEntriesMsgpack)
	entriesGroup.POST("/entries/around", handlers.LogEntries.HandleEntriesAround)
	entriesGroup.POST("/entries/around_split", handlers.LogEntries.HandleEntriesAroundSplit)
	entriesGroup.POST("/entries/between", handlers.LogEntries.HandleEntriesBetween)
	entriesGroup.POST("/highlights", handlers.LogEntries.HandleHighlights)
	entriesGroup.POST("/summary", handlers.LogEntries.HandleSummary)
	entriesGroup.POST("/summary_highlights", handlers.LogEntries.HandleSummaryHighlights)
	entriesGroup.GET("/item/:sourceId/:id", handlers.LogEntries.HandleGetItem)

	// Ingestion
	apiGroup.POST("/indices/:index/documents", handlers.Ingest.HandleIndexDocuments)
	apiGroup.POST("/ingest", handlers.Ingest.HandleStartIngest)
	apiGroup.GET("/ingest/parsers", handlers.Ingest.HandleListParsers)
	apiGroup.GET("/ingest/:jobId", handlers.Ingest.HandleIngestStatus)

	// File upload routes
	uploadGroup := apiGroup.Group("/files")
	uploadGroup.POST("/upload", handlers.Upload.HandleUploadFile)
	uploadGroup.POST("/upload/chunk", handlers.Upload.HandleUploadChunk)
	uploadGroup.POST("/upload/complete", handlers.Upload.HandleCompleteUpload)
	uploadGroup.GET("/recent", handlers.Upload.HandleGetRecentFiles)
	uploadGroup.GET("/:id", handlers.Upload.HandleGetFile)
	uploadGroup.DELETE("/:id", handlers.Upload.HandleDeleteFile)

	// Sources
	apiGroup.GET("/sources", handlers.Sources.HandleListSources)
	apiGroup.GET("/sources/:sourceId", handlers.Sources.HandleGetSource)
	apiGroup.PUT("/sources/:sourceId", handlers.Sources.HandlePutSource)
}

// MiddlewareOptions configures SetupMiddleware
type MiddlewareOptions struct {
	EnableCORS     bool
	AllowOrigins   string
	BodyLimit      string
	RequestLogging bool
	ShowDetails    bool
	Logger         zerolog.Logger
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
	showDetails = opts.ShowDetails

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if opts.RequestLogging {
		log := opts.Logger
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/api/health"
			},
			LogURI:     true,
			LogMethod:  true,
			LogStatus:  true,
			LogLatency: true,
			LogError:   true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				ev := log.Info()
				if v.Error != nil {
					ev = log.Warn().Err(v.Error)
				}
				ev.Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
				return nil
			},
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			// MessagePack pages are already compact.
			return strings.HasSuffix(c.Request().URL.Path, "/msgpack")
		},
	}))

	if opts.EnableCORS {
		origins := strings.Split(opts.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderContentEncoding, echo.HeaderAccept},
		}))
	}
}
