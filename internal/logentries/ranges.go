package logentries

import (
	"context"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// BetweenParams selects every entry in an inclusive key range.
type BetweenParams struct {
	StartKey      models.TimeKey `json:"startKey"`
	EndKey        models.TimeKey `json:"endKey"`
	Filter        *models.Query  `json:"query,omitempty"`
	HighlightTerm string         `json:"highlightTerm,omitempty"`
}

// HighlightRequest is one highlight phrase with its context counts.
type HighlightRequest struct {
	Query       string `json:"query"`
	CountBefore int    `json:"countBefore"`
	CountAfter  int    `json:"countAfter"`
}

// HighlightsParams asks for highlighted entries of several phrases at once.
type HighlightsParams struct {
	StartKey   models.TimeKey     `json:"startKey"`
	EndKey     models.TimeKey     `json:"endKey"`
	Highlights []HighlightRequest `json:"highlights"`
	Filter     *models.Query      `json:"query,omitempty"`
}

func validateKeyRange(op string, start, end models.TimeKey) error {
	if models.Compare(start, end) > 0 {
		return logerr.InvalidWindow(op, "end key %s before start key %s", end, start)
	}
	return nil
}

// EntriesBetween returns all entries with key in [StartKey, EndKey], ascending.
func (d *Domain) EntriesBetween(ctx context.Context, sourceID string, p BetweenParams) ([]models.LegacyLogEntry, error) {
	const op = "entries between"
	if err := validateKeyRange(op, p.StartKey, p.EndKey); err != nil {
		return nil, err
	}
	sc, err := d.scope(ctx, op, sourceID)
	if err != nil {
		return nil, err
	}

	docs, err := d.planner.FetchRange(ctx, models.RangeQuery{
		Source:    sc.source,
		Fields:    sc.requiredFields,
		Start:     p.StartKey,
		End:       p.EndKey,
		Filter:    p.Filter,
		Highlight: sc.highlightQuery(p.HighlightTerm),
	})
	if err != nil {
		return nil, err
	}
	return sc.materializer.MaterializeLegacy(sc.source.ID, docs), nil
}

// EntryHighlights returns, per highlight phrase, the matching entries inside the
// range plus CountBefore/CountAfter matches outside it. Results are index-aligned
// with p.Highlights; one failing phrase fails the call.
func (d *Domain) EntryHighlights(ctx context.Context, sourceID string, p HighlightsParams) ([][]models.LegacyLogEntry, error) {
	const op = "entry highlights"
	if err := validateKeyRange(op, p.StartKey, p.EndKey); err != nil {
		return nil, err
	}
	for _, h := range p.Highlights {
		if h.CountBefore < 0 || h.CountAfter < 0 {
			return nil, logerr.InvalidWindow(op, "highlight %q counts %d/%d must not be negative", h.Query, h.CountBefore, h.CountAfter)
		}
	}
	sc, err := d.scope(ctx, op, sourceID)
	if err != nil {
		return nil, err
	}

	results := make([][]models.LegacyLogEntry, len(p.Highlights))
	g, gctx := errgroup.WithContext(ctx)
	if d.opts.MaxConcurrentHighlights > 0 {
		g.SetLimit(d.opts.MaxConcurrentHighlights)
	}
	for i, h := range p.Highlights {
		g.Go(func() error {
			docs, err := d.highlightSet(gctx, sc, p, h)
			if err != nil {
				return err
			}
			results[i] = sc.materializer.MaterializeLegacy(sc.source.ID, docs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// highlightSet assembles before ++ contained ++ after for one phrase.
func (d *Domain) highlightSet(ctx context.Context, sc *requestScope, p HighlightsParams, h HighlightRequest) ([]models.LogEntryDocument, error) {
	highlight := sc.highlightQuery(h.Query)
	filter := models.And(p.Filter, highlight)

	var before, contained, after []models.LogEntryDocument
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		before, err = d.planner.FetchAdjacent(gctx, models.AdjacentQuery{
			Source:    sc.source,
			Fields:    sc.requiredFields,
			Anchor:    p.StartKey,
			Direction: models.Backward,
			MaxCount:  h.CountBefore,
			Filter:    filter,
			Highlight: highlight,
		})
		return err
	})
	g.Go(func() (err error) {
		contained, err = d.planner.FetchRange(gctx, models.RangeQuery{
			Source:    sc.source,
			Fields:    sc.requiredFields,
			Start:     p.StartKey,
			End:       p.EndKey,
			Filter:    filter,
			Highlight: highlight,
		})
		return err
	})
	g.Go(func() (err error) {
		after, err = d.planner.FetchAdjacent(gctx, models.AdjacentQuery{
			Source:    sc.source,
			Fields:    sc.requiredFields,
			Anchor:    p.EndKey,
			Direction: models.Forward,
			MaxCount:  h.CountAfter,
			Filter:    filter,
			Highlight: highlight,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reverseDocuments(before)
	docs := make([]models.LogEntryDocument, 0, len(before)+len(contained)+len(after))
	docs = append(docs, before...)
	docs = append(docs, contained...)
	return append(docs, after...), nil
}
