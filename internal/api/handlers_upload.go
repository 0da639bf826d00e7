// handlers_upload.go - Log file upload handlers
package api

import (
	"bytes"
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/logview/backend/internal/ingest"
	"github.com/logview/backend/internal/models"
	"github.com/logview/backend/internal/storage"
)

// recentFilesLimit caps HandleGetRecentFiles.
const recentFilesLimit = 20

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store   storage.Store
	manager *ingest.Manager
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(store storage.Store, manager *ingest.Manager) UploadHandler {
	return &UploadHandlerImpl{
		store:   store,
		manager: manager,
	}
}

// uploadResponse is returned by the upload endpoints. Job is set when an
// index was given and ingestion started.
type uploadResponse struct {
	File *models.FileInfo  `json:"file"`
	Job  *models.IngestJob `json:"job,omitempty"`
}

// HandleUploadFile accepts a multipart file. With an "index" form value the
// file is ingested right away.
func (h *UploadHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}
	return h.respondUploaded(c, info, c.FormValue("index"), c.FormValue("parser"))
}

// HandleUploadChunk accepts a single base64 chunk of a chunked upload
func (h *UploadHandlerImpl) HandleUploadChunk(c echo.Context) error {
	var req uploadChunkRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	if err := h.store.SaveChunk(req.UploadID, req.ChunkIndex, bytes.NewReader(decoded)); err != nil {
		return NewBadRequestError("failed to save chunk", err)
	}
	return c.NoContent(http.StatusAccepted)
}

// HandleCompleteUpload assembles a chunked upload and optionally ingests it
func (h *UploadHandlerImpl) HandleCompleteUpload(c echo.Context) error {
	var req completeUploadRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	info, err := h.store.CompleteChunkedUpload(req.UploadID, req.Name, req.TotalChunks)
	if err != nil {
		return NewBadRequestError("failed to complete upload", err)
	}
	return h.respondUploaded(c, info, req.Index, req.Parser)
}

func (h *UploadHandlerImpl) respondUploaded(c echo.Context, info *models.FileInfo, index, parser string) error {
	resp := uploadResponse{File: info}
	if index == "" {
		return c.JSON(http.StatusCreated, resp)
	}

	path, err := h.store.GetFilePath(info.ID)
	if err != nil {
		return NewInternalError("uploaded file vanished", err)
	}
	job, err := h.manager.StartJob(index, path, parser)
	if err != nil {
		return NewBadRequestError("failed to start ingest", err)
	}
	if err := h.store.RecordIngest(info.ID, job); err != nil {
		return NewInternalError("failed to record ingest", err)
	}
	if updated, err := h.store.Get(info.ID); err == nil {
		resp.File = updated
	}
	resp.Job = job
	return c.JSON(http.StatusAccepted, resp)
}

// HandleGetRecentFiles returns a list of recently uploaded log files
func (h *UploadHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files, err := h.store.List(recentFilesLimit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file
func (h *UploadHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile deletes an uploaded file. Documents already ingested from
// it stay in the store.
func (h *UploadHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// Request/Response types

type uploadChunkRequest struct {
	UploadID   string `json:"uploadId"`
	ChunkIndex int    `json:"chunkIndex"`
	Data       string `json:"data"` // Base64-encoded chunk
}

func (r *uploadChunkRequest) validate() error {
	if r.UploadID == "" {
		return NewValidationError("uploadId")
	}
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}

type completeUploadRequest struct {
	UploadID    string `json:"uploadId"`
	Name        string `json:"name"`
	TotalChunks int    `json:"totalChunks"`
	Index       string `json:"index"`
	Parser      string `json:"parser"`
}

func (r *completeUploadRequest) validate() error {
	if r.UploadID == "" {
		return NewValidationError("uploadId")
	}
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.TotalChunks <= 0 {
		return NewBadRequestError("totalChunks must be positive", nil)
	}
	return nil
}
