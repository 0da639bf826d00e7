// Package logentries pages through time-ordered log entries and aggregates them
// into summary buckets. It reaches the document store only through Adapter.
package logentries

import (
	"context"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/message"
	"github.com/logview/backend/internal/models"
	"github.com/rs/zerolog"
)

// Adapter is the store surface the engine needs. Backward adjacency results are
// in descending key order, everything else ascending.
type Adapter interface {
	FetchAdjacent(ctx context.Context, q models.AdjacentQuery) ([]models.LogEntryDocument, error)
	FetchRange(ctx context.Context, q models.RangeQuery) ([]models.LogEntryDocument, error)
	Bucketize(ctx context.Context, q models.BucketQuery) ([]models.LogSummaryBucket, error)
	FetchByID(ctx context.Context, source *models.SourceConfiguration, id string) (*models.LogItemHit, error)
}

// SourceProvider resolves source configurations by id.
type SourceProvider interface {
	GetSourceConfiguration(ctx context.Context, sourceID string) (*models.SourceConfiguration, error)
}

// Options tunes the engine.
type Options struct {
	// PageSize is used when a caller does not ask for a size.
	PageSize int
	// SummaryTopEntryKeys caps the representative keys per summary bucket.
	SummaryTopEntryKeys int
	// MaxConcurrentHighlights bounds concurrent highlight phrases per request.
	// Zero means unbounded.
	MaxConcurrentHighlights int
	// MaxSummaryBuckets caps the buckets a single summary may produce.
	MaxSummaryBuckets int
}

// DefaultOptions returns the stock engine options.
func DefaultOptions() Options {
	return Options{
		PageSize:                200,
		SummaryTopEntryKeys:     1,
		MaxConcurrentHighlights: 8,
		MaxSummaryBuckets:       10000,
	}
}

// Domain implements the log entries operations on top of an Adapter.
type Domain struct {
	adapter Adapter
	planner *Planner
	sources SourceProvider
	opts    Options
	logger  zerolog.Logger
}

// NewDomain creates a Domain. Non-positive page size, bucket key cap or bucket
// limit fall back to DefaultOptions.
func NewDomain(adapter Adapter, sources SourceProvider, opts Options, logger zerolog.Logger) *Domain {
	defaults := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.SummaryTopEntryKeys <= 0 {
		opts.SummaryTopEntryKeys = defaults.SummaryTopEntryKeys
	}
	if opts.MaxConcurrentHighlights < 0 {
		opts.MaxConcurrentHighlights = 0
	}
	if opts.MaxSummaryBuckets <= 0 {
		opts.MaxSummaryBuckets = defaults.MaxSummaryBuckets
	}

	logger = logger.With().Str("component", "log-entries").Logger()
	return &Domain{
		adapter: adapter,
		planner: NewPlanner(adapter, logger),
		sources: sources,
		opts:    opts,
		logger:  logger,
	}
}

// Options returns the effective options.
func (d *Domain) Options() Options {
	return d.opts
}

// requestScope carries what every operation derives from the source configuration.
type requestScope struct {
	source         *models.SourceConfiguration
	rules          *message.Rules
	requiredFields []string
	materializer   *Materializer
}

func (d *Domain) scope(ctx context.Context, op, sourceID string) (*requestScope, error) {
	source, err := d.sources.GetSourceConfiguration(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, logerr.SourceConfigurationMissing(op, sourceID)
	}
	return newRequestScope(source), nil
}

func newRequestScope(source *models.SourceConfiguration) *requestScope {
	rules := message.Compile(message.BuiltinRules(source.Fields.Message))
	return &requestScope{
		source:         source,
		rules:          rules,
		requiredFields: RequiredFields(source, rules),
		materializer:   NewMaterializer(source.LogColumns, rules.Format),
	}
}

// highlightQuery builds the phrase query for a highlight term, or nil for none.
func (s *requestScope) highlightQuery(term string) *models.Query {
	if term == "" {
		return nil
	}
	return models.Phrase(term, s.requiredFields)
}

// RequiredFields lists the fields the column schema and message rules read,
// deduplicated, in first-seen order.
func RequiredFields(source *models.SourceConfiguration, rules *message.Rules) []string {
	seen := make(map[string]struct{})
	var fields []string
	add := func(f string) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		fields = append(fields, f)
	}

	for _, col := range source.LogColumns {
		if col.Kind == models.FieldColumn {
			add(col.Field)
		}
	}
	if rules != nil {
		for _, f := range rules.RequiredFields {
			add(f)
		}
	}
	return fields
}

func validateWindow(op string, w *models.Window) error {
	if w != nil && w.End < w.Start {
		return logerr.InvalidWindow(op, "window end %d before start %d", w.End, w.Start)
	}
	return nil
}
