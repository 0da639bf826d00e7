package logentries

import (
	"context"
	"math"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
)

// AroundParams selects a page centered on a key.
type AroundParams struct {
	Center models.TimeKey `json:"center"`
	// Size is the total page size; zero uses the configured page size.
	Size          int            `json:"size"`
	Window        *models.Window `json:"window,omitempty"`
	Filter        *models.Query  `json:"query,omitempty"`
	HighlightTerm string         `json:"highlightTerm,omitempty"`
}

// AroundSplitParams is the older call shape with explicit before/after counts.
type AroundSplitParams struct {
	Key            models.TimeKey `json:"key"`
	MaxCountBefore int            `json:"countBefore"`
	MaxCountAfter  int            `json:"countAfter"`
	Window         *models.Window `json:"window,omitempty"`
	Filter         *models.Query  `json:"query,omitempty"`
	HighlightTerm  string         `json:"highlightTerm,omitempty"`
}

// SplitEntries is the result of EntriesAroundSplit.
type SplitEntries struct {
	EntriesBefore []models.LegacyLogEntry `json:"entriesBefore"`
	EntriesAfter  []models.LegacyLogEntry `json:"entriesAfter"`
}

// EntriesParams selects one cursor page inside a time window.
type EntriesParams struct {
	Window        models.Window  `json:"window"`
	Cursor        *models.Cursor `json:"cursor,omitempty"`
	Size          int            `json:"size"`
	Filter        *models.Query  `json:"query,omitempty"`
	HighlightTerm string         `json:"highlightTerm,omitempty"`
}

// splitSize puts the odd entry after the center so the center opens the
// forward half.
func splitSize(size int) (before, after int) {
	before = size / 2
	return before, size - before
}

func (d *Domain) pageSize(op string, size int) (int, error) {
	if size < 0 {
		return 0, logerr.InvalidWindow(op, "size %d is negative", size)
	}
	if size == 0 {
		return d.opts.PageSize, nil
	}
	return size, nil
}

// EntriesAround returns size entries around center in ascending key order.
func (d *Domain) EntriesAround(ctx context.Context, sourceID string, p AroundParams) ([]models.LogEntry, error) {
	const op = "entries around"
	size, err := d.pageSize(op, p.Size)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(op, p.Window); err != nil {
		return nil, err
	}
	sc, err := d.scope(ctx, op, sourceID)
	if err != nil {
		return nil, err
	}

	before, after := splitSize(size)
	entriesBefore, entriesAfter, err := d.around(ctx, sc, p.Center, before, after, p.Window, p.Filter, sc.highlightQuery(p.HighlightTerm))
	if err != nil {
		return nil, err
	}

	docs := make([]models.LogEntryDocument, 0, len(entriesBefore)+len(entriesAfter))
	docs = append(docs, entriesBefore...)
	docs = append(docs, entriesAfter...)
	return sc.materializer.MaterializeAll(docs), nil
}

// EntriesAroundSplit keeps the before/after pair of the older API on top of the
// same windowing core.
func (d *Domain) EntriesAroundSplit(ctx context.Context, sourceID string, p AroundSplitParams) (*SplitEntries, error) {
	const op = "entries around split"
	if p.MaxCountBefore < 0 || p.MaxCountAfter < 0 {
		return nil, logerr.InvalidWindow(op, "counts %d/%d must not be negative", p.MaxCountBefore, p.MaxCountAfter)
	}
	if err := validateWindow(op, p.Window); err != nil {
		return nil, err
	}
	result := &SplitEntries{
		EntriesBefore: []models.LegacyLogEntry{},
		EntriesAfter:  []models.LegacyLogEntry{},
	}
	if p.MaxCountBefore == 0 && p.MaxCountAfter == 0 {
		return result, nil
	}

	sc, err := d.scope(ctx, op, sourceID)
	if err != nil {
		return nil, err
	}

	// At least one predecessor is fetched so the forward anchor is a real entry.
	before, after, err := d.around(ctx, sc, p.Key, max(p.MaxCountBefore, 1), p.MaxCountAfter, p.Window, p.Filter, sc.highlightQuery(p.HighlightTerm))
	if err != nil {
		return nil, err
	}
	if p.MaxCountBefore > 0 {
		result.EntriesBefore = sc.materializer.MaterializeLegacy(sc.source.ID, before)
	}
	result.EntriesAfter = sc.materializer.MaterializeLegacy(sc.source.ID, after)
	return result, nil
}

// around runs the backward then forward fetch. Both halves come back ascending.
func (d *Domain) around(ctx context.Context, sc *requestScope, center models.TimeKey, before, after int,
	window *models.Window, filter, highlight *models.Query) ([]models.LogEntryDocument, []models.LogEntryDocument, error) {
	entriesBefore, err := d.planner.FetchAdjacent(ctx, models.AdjacentQuery{
		Source:    sc.source,
		Fields:    sc.requiredFields,
		Anchor:    center,
		Direction: models.Backward,
		MaxCount:  before,
		Window:    window,
		Filter:    filter,
		Highlight: highlight,
	})
	if err != nil {
		return nil, nil, err
	}
	reverseDocuments(entriesBefore)

	anchor := models.Predecessor(center)
	if n := len(entriesBefore); n > 0 {
		anchor = entriesBefore[n-1].Key
	}

	entriesAfter, err := d.planner.FetchAdjacent(ctx, models.AdjacentQuery{
		Source:    sc.source,
		Fields:    sc.requiredFields,
		Anchor:    anchor,
		Direction: models.Forward,
		MaxCount:  after,
		Window:    window,
		Filter:    filter,
		Highlight: highlight,
	})
	if err != nil {
		return nil, nil, err
	}
	return entriesBefore, entriesAfter, nil
}

// Entries returns one page of the window in ascending order, positioned by the cursor.
func (d *Domain) Entries(ctx context.Context, sourceID string, p EntriesParams) ([]models.LogEntry, error) {
	const op = "entries"
	size, err := d.pageSize(op, p.Size)
	if err != nil {
		return nil, err
	}
	window := p.Window
	if err := validateWindow(op, &window); err != nil {
		return nil, err
	}
	sc, err := d.scope(ctx, op, sourceID)
	if err != nil {
		return nil, err
	}

	q := models.AdjacentQuery{
		Source:    sc.source,
		Fields:    sc.requiredFields,
		MaxCount:  size,
		Window:    &window,
		Filter:    p.Filter,
		Highlight: sc.highlightQuery(p.HighlightTerm),
	}
	q.Anchor, q.Direction = cursorAnchor(p.Cursor, window)

	docs, err := d.planner.FetchAdjacent(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Direction == models.Backward {
		reverseDocuments(docs)
	}
	return sc.materializer.MaterializeAll(docs), nil
}

// cursorAnchor maps a cursor to the key a fetch starts strictly beyond. Edge
// cursors anchor just outside the window so its boundary entries are included.
func cursorAnchor(c *models.Cursor, w models.Window) (models.TimeKey, models.Direction) {
	switch {
	case c == nil:
		return windowStartAnchor(w), models.Forward
	case c.Before && c.Key != nil:
		return *c.Key, models.Backward
	case c.Before:
		return windowEndAnchor(w), models.Backward
	case c.Key != nil:
		return *c.Key, models.Forward
	default:
		return windowStartAnchor(w), models.Forward
	}
}

func windowStartAnchor(w models.Window) models.TimeKey {
	if w.Start == math.MinInt64 {
		return models.TimeKey{Time: math.MinInt64, Tiebreaker: math.MinInt64}
	}
	return models.TimeKey{Time: w.Start - 1, Tiebreaker: math.MaxInt64}
}

func windowEndAnchor(w models.Window) models.TimeKey {
	if w.End == math.MaxInt64 {
		return models.TimeKey{Time: math.MaxInt64, Tiebreaker: math.MaxInt64}
	}
	return models.TimeKey{Time: w.End + 1, Tiebreaker: math.MinInt64}
}
