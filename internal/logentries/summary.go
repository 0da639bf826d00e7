package logentries

import (
	"context"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// SummaryParams partitions [Start, End) into buckets of BucketSize milliseconds.
type SummaryParams struct {
	Start      int64         `json:"startTimestamp"`
	End        int64         `json:"endTimestamp"`
	BucketSize int64         `json:"bucketSize"`
	Filter     *models.Query `json:"query,omitempty"`
}

// SummaryHighlightParams runs one summary per phrase.
type SummaryHighlightParams struct {
	SummaryParams
	Phrases []string `json:"highlightTerms"`
}

func (d *Domain) validateSummary(op string, p SummaryParams) error {
	if p.End < p.Start {
		return logerr.InvalidWindow(op, "end %d before start %d", p.End, p.Start)
	}
	if p.BucketSize <= 0 {
		return logerr.InvalidWindow(op, "bucket size %d must be positive", p.BucketSize)
	}
	q := models.BucketQuery{Start: p.Start, End: p.End, BucketSize: p.BucketSize}
	if n := q.BucketCount(); n > uint64(d.opts.MaxSummaryBuckets) {
		return logerr.InvalidWindow(op, "%d buckets exceed the limit of %d", n, d.opts.MaxSummaryBuckets)
	}
	return nil
}

// SummaryBuckets counts matching entries per bucket.
func (d *Domain) SummaryBuckets(ctx context.Context, sourceID string, p SummaryParams) ([]models.LogSummaryBucket, error) {
	const op = "summary buckets"
	if err := d.validateSummary(op, p); err != nil {
		return nil, err
	}
	sc, err := d.scope(ctx, op, sourceID)
	if err != nil {
		return nil, err
	}
	return d.bucketize(ctx, sc, p.Start, p.End, p.BucketSize, p.Filter)
}

// SummaryHighlightBuckets returns, per phrase, the non-empty buckets matching the
// phrase and the filter, each reduced to its first representative key.
func (d *Domain) SummaryHighlightBuckets(ctx context.Context, sourceID string, p SummaryHighlightParams) ([][]models.SummaryHighlightBucket, error) {
	const op = "summary highlight buckets"
	if err := d.validateSummary(op, p.SummaryParams); err != nil {
		return nil, err
	}
	sc, err := d.scope(ctx, op, sourceID)
	if err != nil {
		return nil, err
	}

	results := make([][]models.SummaryHighlightBucket, len(p.Phrases))
	g, gctx := errgroup.WithContext(ctx)
	if d.opts.MaxConcurrentHighlights > 0 {
		g.SetLimit(d.opts.MaxConcurrentHighlights)
	}
	for i, phrase := range p.Phrases {
		g.Go(func() error {
			buckets, err := d.bucketize(gctx, sc, p.Start, p.End, p.BucketSize, models.And(p.Filter, sc.highlightQuery(phrase)))
			if err != nil {
				return err
			}
			results[i] = HighlightBuckets(buckets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Domain) bucketize(ctx context.Context, sc *requestScope, start, end, size int64, filter *models.Query) ([]models.LogSummaryBucket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buckets, err := d.adapter.Bucketize(ctx, models.BucketQuery{
		Source:       sc.source,
		Start:        start,
		End:          end,
		BucketSize:   size,
		Filter:       filter,
		TopEntryKeys: d.opts.SummaryTopEntryKeys,
	})
	if err != nil {
		d.logger.Warn().Err(err).Int64("start", start).Int64("end", end).Msg("bucketize failed")
		return nil, logerr.StoreUnavailable("bucketize", err)
	}
	return buckets, nil
}

// HighlightBuckets drops empty buckets and keeps the first key of the rest.
func HighlightBuckets(buckets []models.LogSummaryBucket) []models.SummaryHighlightBucket {
	out := make([]models.SummaryHighlightBucket, 0, len(buckets))
	for _, b := range buckets {
		if !b.HasEntries() {
			continue
		}
		out = append(out, models.SummaryHighlightBucket{
			Start:             b.Start,
			End:               b.End,
			EntriesCount:      b.EntriesCount,
			RepresentativeKey: b.TopEntryKeys[0],
		})
	}
	return out
}
