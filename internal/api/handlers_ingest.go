// handlers_ingest.go - Document ingestion handlers
package api

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/logview/backend/internal/ingest"
	"github.com/logview/backend/internal/storage"
)

// IngestHandlerImpl implements the IngestHandler interface
type IngestHandlerImpl struct {
	manager   *ingest.Manager
	uploads   storage.Store
	importDir string
}

// NewIngestHandler creates a new ingest handler. Server-side paths are only
// read from inside importDir; an empty importDir disables them.
func NewIngestHandler(manager *ingest.Manager, uploads storage.Store, importDir string) IngestHandler {
	return &IngestHandlerImpl{manager: manager, uploads: uploads, importDir: importDir}
}

// HandleIndexDocuments synchronously loads the request body into an index.
// The body is NDJSON unless ?parser names another parser; gzip and zstd
// bodies are accepted via Content-Encoding.
func (h *IngestHandlerImpl) HandleIndexDocuments(c echo.Context) error {
	index := c.Param("index")
	if index == "" {
		return NewValidationError("index")
	}

	var p ingest.Parser = ingest.NewNDJSONParser()
	if name := c.QueryParam("parser"); name != "" {
		var err error
		if p, err = h.manager.Registry().GetParserByName(name); err != nil {
			return NewBadRequestError("unknown parser", err)
		}
	}
	if field := c.QueryParam("timestampField"); field != "" {
		if _, ok := p.(*ingest.NDJSONParser); !ok {
			return NewBadRequestError("timestampField only applies to the ndjson parser", nil)
		}
		p = &ingest.NDJSONParser{TimestampField: field}
	}

	body, err := ingest.NewReader(c.Request().Body, c.Request().Header.Get(echo.HeaderContentEncoding))
	if err != nil {
		return NewBadRequestError("failed to decode request body", err)
	}
	defer body.Close()

	result, err := h.manager.Ingest(c.Request().Context(), index, p, body)
	if err != nil {
		return NewInternalError("failed to ingest documents", err)
	}
	return c.JSON(http.StatusCreated, result)
}

// startIngestRequest names the file either by a path inside the import
// directory or by upload id.
type startIngestRequest struct {
	Index  string `json:"index"`
	Path   string `json:"path"`
	FileID string `json:"fileId"`
	Parser string `json:"parser"`
}

// HandleStartIngest starts a background job loading an imported or uploaded file
func (h *IngestHandlerImpl) HandleStartIngest(c echo.Context) error {
	var req startIngestRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Index == "" {
		return NewValidationError("index")
	}
	switch {
	case req.FileID != "" && req.Path != "":
		return NewBadRequestError("only one of path and fileId may be set", nil)
	case req.FileID != "":
		if h.uploads == nil {
			return NewNotFoundError("file", req.FileID)
		}
		path, err := h.uploads.GetFilePath(req.FileID)
		if err != nil {
			return NewNotFoundError("file", req.FileID)
		}
		req.Path = path
	case req.Path == "":
		return NewValidationError("path")
	default:
		path, err := ingest.ResolveImportPath(h.importDir, req.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return NewNotFoundError("file", req.Path)
		}
		if err != nil {
			return NewBadRequestError("path must name a file inside the import directory", err)
		}
		req.Path = path
	}

	job, err := h.manager.StartJob(req.Index, req.Path, req.Parser)
	if err != nil {
		return NewBadRequestError("failed to start ingest", err)
	}
	if req.FileID != "" {
		if err := h.uploads.RecordIngest(req.FileID, job); err != nil {
			return NewInternalError("failed to record ingest", err)
		}
	}
	return c.JSON(http.StatusAccepted, job)
}

// HandleIngestStatus returns the state of an ingest job
func (h *IngestHandlerImpl) HandleIngestStatus(c echo.Context) error {
	id := c.Param("jobId")
	job, ok := h.manager.GetJob(id)
	if !ok {
		return NewNotFoundError("ingest job", id)
	}
	return c.JSON(http.StatusOK, job)
}

// HandleListParsers lists the available parser names
func (h *IngestHandlerImpl) HandleListParsers(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"parsers": h.manager.Registry().Names()})
}
