package logentries

import (
	"context"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
	"github.com/rs/zerolog"
)

// Planner asks the store for the next N documents strictly beyond an anchor key.
type Planner struct {
	adapter Adapter
	logger  zerolog.Logger
}

// NewPlanner creates a planner over adapter.
func NewPlanner(adapter Adapter, logger zerolog.Logger) *Planner {
	return &Planner{adapter: adapter, logger: logger}
}

// FetchAdjacent returns up to q.MaxCount documents beyond q.Anchor in store order:
// descending for Backward, ascending for Forward. A non-positive count returns an
// empty slice without touching the store.
func (p *Planner) FetchAdjacent(ctx context.Context, q models.AdjacentQuery) ([]models.LogEntryDocument, error) {
	if q.MaxCount <= 0 {
		return []models.LogEntryDocument{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs, err := p.adapter.FetchAdjacent(ctx, q)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("anchor", q.Anchor.String()).
			Str("direction", string(q.Direction)).
			Int("max_count", q.MaxCount).
			Msg("adjacent fetch failed")
		return nil, logerr.StoreUnavailable("fetch adjacent", err)
	}
	return docs, nil
}

// FetchRange returns every document with key in [q.Start, q.End], ascending.
func (p *Planner) FetchRange(ctx context.Context, q models.RangeQuery) ([]models.LogEntryDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs, err := p.adapter.FetchRange(ctx, q)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("start", q.Start.String()).
			Str("end", q.End.String()).
			Msg("range fetch failed")
		return nil, logerr.StoreUnavailable("fetch range", err)
	}
	return docs, nil
}

// reverseDocuments reverses docs in place.
func reverseDocuments(docs []models.LogEntryDocument) {
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
}
