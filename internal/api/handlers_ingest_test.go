package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/labstack/echo/v4"
	"github.com/logview/backend/internal/ingest"
	"github.com/logview/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testNDJSON = `{"@timestamp":"2024-01-01T00:00:00Z","message":"started"}
{"@timestamp":"2024-01-01T00:00:01Z","message":"stopped"}
oops
`

func TestHandleIndexDocuments(t *testing.T) {
	t.Run("plain body", func(t *testing.T) {
		h, store, _ := createTestHandlers(t, 0)

		c, rec := newContext(http.MethodPost, "/", strings.NewReader(testNDJSON))
		c.SetParamNames("index")
		c.SetParamValues("logs-web")
		require.NoError(t, h.Ingest.HandleIndexDocuments(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var res ingest.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 2, res.Documents)
		assert.Len(t, res.Errors, 1)

		st, err := store.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, st.Documents)
	})

	t.Run("gzip body", func(t *testing.T) {
		h, _, _ := createTestHandlers(t, 0)

		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(testNDJSON))
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		c, rec := newContext(http.MethodPost, "/", &buf)
		c.Request().Header.Set(echo.HeaderContentEncoding, "gzip")
		c.SetParamNames("index")
		c.SetParamValues("logs-web")
		require.NoError(t, h.Ingest.HandleIndexDocuments(c))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"documents":2`)
	})

	t.Run("custom timestamp field", func(t *testing.T) {
		h, _, _ := createTestHandlers(t, 0)

		c, rec := newContext(http.MethodPost, "/?timestampField=ts", strings.NewReader(`{"ts":1704067200000,"message":"x"}`+"\n"))
		c.SetParamNames("index")
		c.SetParamValues("logs-web")
		require.NoError(t, h.Ingest.HandleIndexDocuments(c))
		assert.Contains(t, rec.Body.String(), `"minTimestamp":1704067200000`)
	})

	t.Run("unknown parser", func(t *testing.T) {
		h, _, _ := createTestHandlers(t, 0)

		c, _ := newContext(http.MethodPost, "/?parser=csv", strings.NewReader(testNDJSON))
		c.SetParamNames("index")
		c.SetParamValues("logs-web")
		err := h.Ingest.HandleIndexDocuments(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, FromError(err).Status)
	})

	t.Run("ingested documents are pageable", func(t *testing.T) {
		h, _, _ := createTestHandlers(t, 0)

		c, _ := newContext(http.MethodPost, "/", strings.NewReader(testNDJSON))
		c.SetParamNames("index")
		c.SetParamValues("logs-web")
		require.NoError(t, h.Ingest.HandleIndexDocuments(c))

		var page entriesPage
		postJSON(t, h.LogEntries.HandleEntries, `{
			"sourceId": "default",
			"window": {"startTimestamp": 1704067200000, "endTimestamp": 1704067201000}
		}`, &page)
		require.Len(t, page.Entries, 2)
		assert.Equal(t, int64(1704067200000), page.Entries[0].Cursor.Time)
	})
}

func TestHandleIngestJobs(t *testing.T) {
	h, _, _ := createTestHandlers(t, 0)
	impl := h.Ingest.(*IngestHandlerImpl)

	require.NoError(t, os.WriteFile(filepath.Join(impl.importDir, "app.ndjson"), []byte(testNDJSON), 0644))

	c, rec := newContext(http.MethodPost, "/api/ingest", strings.NewReader(`{"index": "logs-web", "path": "app.ndjson"}`))
	require.NoError(t, h.Ingest.HandleStartIngest(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var job models.IngestJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.NotEmpty(t, job.ID)
	impl.manager.Wait()

	c, rec = newContext(http.MethodGet, "/", nil)
	c.SetParamNames("jobId")
	c.SetParamValues(job.ID)
	require.NoError(t, h.Ingest.HandleIngestStatus(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusComplete, job.Status)
	assert.Equal(t, 2, job.DocumentCount)

	t.Run("missing fields", func(t *testing.T) {
		apiErr := postError(t, h.Ingest.HandleStartIngest, `{"index": "logs-web"}`)
		assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	})

	t.Run("paths outside the import directory", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "secret.log")
		require.NoError(t, os.WriteFile(outside, []byte("secret\n"), 0644))

		for _, path := range []string{
			"../secret.log",
			"../../../../etc/passwd",
			"/etc/passwd",
			filepath.ToSlash(outside),
		} {
			apiErr := postError(t, h.Ingest.HandleStartIngest, `{"index": "logs-web", "path": "`+path+`"}`)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status, path)
		}
	})

	t.Run("absolute path inside the import directory", func(t *testing.T) {
		path := filepath.Join(impl.importDir, "app.ndjson")
		c, rec := newContext(http.MethodPost, "/api/ingest", strings.NewReader(`{"index": "logs-web", "path": "`+filepath.ToSlash(path)+`"}`))
		require.NoError(t, h.Ingest.HandleStartIngest(c))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		impl.manager.Wait()
	})

	t.Run("missing file in the import directory", func(t *testing.T) {
		apiErr := postError(t, h.Ingest.HandleStartIngest, `{"index": "logs-web", "path": "nope.ndjson"}`)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})

	t.Run("unknown job", func(t *testing.T) {
		c, _ := newContext(http.MethodGet, "/", nil)
		c.SetParamNames("jobId")
		c.SetParamValues("nope")
		err := h.Ingest.HandleIngestStatus(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, FromError(err).Status)
	})

	t.Run("parsers", func(t *testing.T) {
		c, rec := newContext(http.MethodGet, "/", nil)
		require.NoError(t, h.Ingest.HandleListParsers(c))
		assert.JSONEq(t, `{"parsers":["ndjson","text"]}`, rec.Body.String())
	})
}
