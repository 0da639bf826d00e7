// handlers_entries.go - Log entries paging, highlight and summary handlers
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/logview/backend/internal/logentries"
	"github.com/logview/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// LogEntriesHandlerImpl implements the LogEntriesHandler interface
type LogEntriesHandlerImpl struct {
	domain *logentries.Domain
}

// NewLogEntriesHandler creates a new log entries handler
func NewLogEntriesHandler(domain *logentries.Domain) LogEntriesHandler {
	return &LogEntriesHandlerImpl{domain: domain}
}

type entriesRequest struct {
	SourceID string `json:"sourceId"`
	logentries.EntriesParams
}

type aroundRequest struct {
	SourceID string `json:"sourceId"`
	logentries.AroundParams
}

type aroundSplitRequest struct {
	SourceID string `json:"sourceId"`
	logentries.AroundSplitParams
}

type betweenRequest struct {
	SourceID string `json:"sourceId"`
	logentries.BetweenParams
}

type highlightsRequest struct {
	SourceID string `json:"sourceId"`
	logentries.HighlightsParams
}

type summaryRequest struct {
	SourceID string `json:"sourceId"`
	logentries.SummaryParams
}

type summaryHighlightsRequest struct {
	SourceID string `json:"sourceId"`
	logentries.SummaryHighlightParams
}

// entriesPage is the response of the cursor paging endpoints.
type entriesPage struct {
	Entries      []models.LogEntry `json:"entries" msgpack:"entries"`
	TopCursor    *models.TimeKey   `json:"topCursor" msgpack:"topCursor"`
	BottomCursor *models.TimeKey   `json:"bottomCursor" msgpack:"bottomCursor"`
}

func newEntriesPage(entries []models.LogEntry) entriesPage {
	page := entriesPage{Entries: entries}
	if n := len(entries); n > 0 {
		top, bottom := entries[0].Cursor, entries[n-1].Cursor
		page.TopCursor = &top
		page.BottomCursor = &bottom
	}
	return page
}

// bindSourced decodes the JSON body into req and returns its source id.
func bindSourced(c echo.Context, req any, sourceID *string) error {
	if err := c.Bind(req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if *sourceID == "" {
		return NewValidationError("sourceId")
	}
	return nil
}

func respondData(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, map[string]any{"data": data})
}

// HandleEntries returns one cursor page of a time window
func (h *LogEntriesHandlerImpl) HandleEntries(c echo.Context) error {
	var req entriesRequest
	if err := bindSourced(c, &req, &req.SourceID); err != nil {
		return err
	}
	entries, err := h.domain.Entries(c.Request().Context(), req.SourceID, req.EntriesParams)
	if err != nil {
		return err
	}
	return respondData(c, newEntriesPage(entries))
}

// HandleEntriesMsgpack is the query-string variant of HandleEntries encoded as MessagePack.
// MessagePack is considerably smaller than JSON for column-heavy pages.
func (h *LogEntriesHandlerImpl) HandleEntriesMsgpack(c echo.Context) error {
	sourceID := c.QueryParam("sourceId")
	if sourceID == "" {
		return NewValidationError("sourceId")
	}
	params, err := entriesParamsFromQuery(c)
	if err != nil {
		return err
	}

	entries, err := h.domain.Entries(c.Request().Context(), sourceID, params)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(newEntriesPage(entries))
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// entriesParamsFromQuery reads startTimestamp, endTimestamp, size, before|after,
// highlightTerm and a JSON encoded query from the query string.
func entriesParamsFromQuery(c echo.Context) (logentries.EntriesParams, error) {
	var p logentries.EntriesParams

	start, err := strconv.ParseInt(c.QueryParam("startTimestamp"), 10, 64)
	if err != nil {
		return p, NewValidationError("startTimestamp")
	}
	end, err := strconv.ParseInt(c.QueryParam("endTimestamp"), 10, 64)
	if err != nil {
		return p, NewValidationError("endTimestamp")
	}
	p.Window = models.Window{Start: start, End: end}

	if s := c.QueryParam("size"); s != "" {
		if p.Size, err = strconv.Atoi(s); err != nil {
			return p, NewValidationError("size")
		}
	}

	before, after := c.QueryParam("before"), c.QueryParam("after")
	switch {
	case before != "" && after != "":
		return p, NewBadRequestError("only one of before and after may be set", nil)
	case before == "last":
		p.Cursor = models.CursorLast()
	case before != "":
		key, err := models.ParseTimeKey(before)
		if err != nil {
			return p, NewBadRequestError("invalid before cursor", err)
		}
		p.Cursor = models.CursorBefore(key)
	case after == "first":
		p.Cursor = models.CursorFirst()
	case after != "":
		key, err := models.ParseTimeKey(after)
		if err != nil {
			return p, NewBadRequestError("invalid after cursor", err)
		}
		p.Cursor = models.CursorAfter(key)
	}

	if q := c.QueryParam("query"); q != "" {
		var filter models.Query
		if err := json.Unmarshal([]byte(q), &filter); err != nil {
			return p, NewBadRequestError("invalid query", err)
		}
		p.Filter = &filter
	}
	p.HighlightTerm = c.QueryParam("highlightTerm")
	return p, nil
}

// HandleEntriesAround returns a page centered on a key
func (h *LogEntriesHandlerImpl) HandleEntriesAround(c echo.Context) error {
	var req aroundRequest
	if err := bindSourced(c, &req, &req.SourceID); err != nil {
		return err
	}
	entries, err := h.domain.EntriesAround(c.Request().Context(), req.SourceID, req.AroundParams)
	if err != nil {
		return err
	}
	return respondData(c, newEntriesPage(entries))
}

// HandleEntriesAroundSplit returns separate before/after lists around a key
func (h *LogEntriesHandlerImpl) HandleEntriesAroundSplit(c echo.Context) error {
	var req aroundSplitRequest
	if err := bindSourced(c, &req, &req.SourceID); err != nil {
		return err
	}
	split, err := h.domain.EntriesAroundSplit(c.Request().Context(), req.SourceID, req.AroundSplitParams)
	if err != nil {
		return err
	}
	return respondData(c, split)
}

// HandleEntriesBetween returns every entry in a key range
func (h *LogEntriesHandlerImpl) HandleEntriesBetween(c echo.Context) error {
	var req betweenRequest
	if err := bindSourced(c, &req, &req.SourceID); err != nil {
		return err
	}
	entries, err := h.domain.EntriesBetween(c.Request().Context(), req.SourceID, req.BetweenParams)
	if err != nil {
		return err
	}
	return respondData(c, map[string]any{"entries": entries})
}

// HandleHighlights returns highlighted entries for each requested phrase
func (h *LogEntriesHandlerImpl) HandleHighlights(c echo.Context) error {
	var req highlightsRequest
	if err := bindSourced(c, &req, &req.SourceID); err != nil {
		return err
	}
	sets, err := h.domain.EntryHighlights(c.Request().Context(), req.SourceID, req.HighlightsParams)
	if err != nil {
		return err
	}

	data := make([]map[string]any, len(sets))
	for i, entries := range sets {
		data[i] = map[string]any{"entries": entries}
	}
	return respondData(c, data)
}

// HandleSummary returns entry counts per time bucket
func (h *LogEntriesHandlerImpl) HandleSummary(c echo.Context) error {
	var req summaryRequest
	if err := bindSourced(c, &req, &req.SourceID); err != nil {
		return err
	}
	buckets, err := h.domain.SummaryBuckets(c.Request().Context(), req.SourceID, req.SummaryParams)
	if err != nil {
		return err
	}
	return respondData(c, map[string]any{
		"start":   req.Start,
		"end":     req.End,
		"buckets": buckets,
	})
}

// HandleSummaryHighlights returns non-empty buckets per highlight phrase
func (h *LogEntriesHandlerImpl) HandleSummaryHighlights(c echo.Context) error {
	var req summaryHighlightsRequest
	if err := bindSourced(c, &req, &req.SourceID); err != nil {
		return err
	}
	sets, err := h.domain.SummaryHighlightBuckets(c.Request().Context(), req.SourceID, req.SummaryHighlightParams)
	if err != nil {
		return err
	}

	data := make([]map[string]any, len(sets))
	for i, buckets := range sets {
		data[i] = map[string]any{
			"start":   req.Start,
			"end":     req.End,
			"buckets": buckets,
		}
	}
	return respondData(c, data)
}

// HandleGetItem returns every field of a single document
func (h *LogEntriesHandlerImpl) HandleGetItem(c echo.Context) error {
	sourceID := c.Param("sourceId")
	if sourceID == "" {
		return NewValidationError("sourceId")
	}
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	item, err := h.domain.LogItemBySource(c.Request().Context(), sourceID, id)
	if err != nil {
		return err
	}
	return respondData(c, item)
}
