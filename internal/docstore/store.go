// Package docstore holds log documents and answers the keyset queries of the
// log entries engine. DuckStore persists to DuckDB; MemStore keeps everything
// in memory for tests and small deployments.
package docstore

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/logview/backend/internal/models"
)

// Document is a log document to be stored. The store assigns the tiebreaker.
type Document struct {
	GID       string
	Index     string
	Timestamp int64
	Source    map[string]any
}

// Stats describes the stored documents.
type Stats struct {
	Documents int   `json:"documents"`
	MinTs     int64 `json:"minTimestamp"`
	MaxTs     int64 `json:"maxTimestamp"`
}

// Store is a document store usable as the log entries adapter.
type Store interface {
	FetchAdjacent(ctx context.Context, q models.AdjacentQuery) ([]models.LogEntryDocument, error)
	FetchRange(ctx context.Context, q models.RangeQuery) ([]models.LogEntryDocument, error)
	Bucketize(ctx context.Context, q models.BucketQuery) ([]models.LogSummaryBucket, error)
	FetchByID(ctx context.Context, source *models.SourceConfiguration, id string) (*models.LogItemHit, error)

	// AddDocuments stores docs and returns their keys in input order.
	AddDocuments(ctx context.Context, docs []Document) ([]models.TimeKey, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

func ensureGID(doc *Document) {
	if doc.GID == "" {
		doc.GID = uuid.NewString()
	}
}

// matchIndex reports whether index matches any of the glob patterns.
func matchIndex(patterns []string, index string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, err := path.Match(p, index); err == nil && ok {
			return true
		}
	}
	return false
}

// buildDocument projects flattened source fields onto the requested fields and
// computes highlights.
func buildDocument(gid string, key models.TimeKey, flat models.Fields, fields []string, highlight *models.Query) models.LogEntryDocument {
	projected := flat
	if len(fields) > 0 {
		projected = make(models.Fields, len(fields))
		for _, name := range fields {
			if v, ok := flat[name]; ok {
				projected[name] = v
			}
		}
	}
	return models.LogEntryDocument{
		Fields:     projected,
		Highlights: models.ComputeHighlights(projected, highlight),
		GID:        gid,
		Key:        key,
	}
}

// fieldValues lists the string forms stored for a flattened field. Arrays
// contribute one value per element.
func fieldValues(v any) []string {
	if list, ok := v.([]any); ok {
		var out []string
		for _, item := range list {
			out = append(out, fieldValues(item)...)
		}
		return out
	}
	if v == nil {
		return nil
	}
	return []string{models.FieldString(v)}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
