package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/logview/backend/internal/models"
)

type memDocument struct {
	gid    string
	index  string
	key    models.TimeKey
	source map[string]any
	flat   models.Fields
}

// MemStore is an in-memory Store. Documents are kept sorted by key.
type MemStore struct {
	mu    sync.RWMutex
	docs  []memDocument
	seq   int64
	calls map[string]int

	// Err, when set, is returned by every query.
	Err error
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{calls: make(map[string]int)}
}

// Calls returns how often the named query method was invoked.
func (s *MemStore) Calls(method string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[method]
}

func (s *MemStore) record(method string) error {
	s.mu.Lock()
	s.calls[method]++
	s.mu.Unlock()
	return s.Err
}

// AddDocuments implements Store.
func (s *MemStore) AddDocuments(ctx context.Context, docs []Document) ([]models.TimeKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]models.TimeKey, len(docs))
	for i := range docs {
		doc := docs[i]
		ensureGID(&doc)
		s.seq++
		key := models.TimeKey{Time: doc.Timestamp, Tiebreaker: s.seq}
		keys[i] = key
		s.docs = append(s.docs, memDocument{
			gid:    doc.GID,
			index:  doc.Index,
			key:    key,
			source: doc.Source,
			flat:   models.FlattenFields(doc.Source),
		})
	}
	sort.SliceStable(s.docs, func(i, j int) bool { return s.docs[i].key.Less(s.docs[j].key) })
	return keys, nil
}

// matching returns the documents of the source that pass filter, ascending.
func (s *MemStore) matching(source *models.SourceConfiguration, filter *models.Query, keep func(memDocument) bool) []memDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var patterns []string
	if source != nil {
		patterns = source.IndexPatterns()
	}
	var out []memDocument
	for _, d := range s.docs {
		if !matchIndex(patterns, d.index) || !keep(d) || !filter.Matches(d.flat) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// FetchAdjacent implements Store.
func (s *MemStore) FetchAdjacent(ctx context.Context, q models.AdjacentQuery) ([]models.LogEntryDocument, error) {
	if err := s.record("FetchAdjacent"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := s.matching(q.Source, q.Filter, func(d memDocument) bool {
		if !q.Window.Contains(d.key.Time) {
			return false
		}
		if q.Direction == models.Backward {
			return d.key.Less(q.Anchor)
		}
		return q.Anchor.Less(d.key)
	})

	out := make([]models.LogEntryDocument, 0, min(q.MaxCount, len(docs)))
	if q.Direction == models.Backward {
		for i := len(docs) - 1; i >= 0 && len(out) < q.MaxCount; i-- {
			out = append(out, buildDocument(docs[i].gid, docs[i].key, docs[i].flat, q.Fields, q.Highlight))
		}
		return out, nil
	}
	for i := 0; i < len(docs) && len(out) < q.MaxCount; i++ {
		out = append(out, buildDocument(docs[i].gid, docs[i].key, docs[i].flat, q.Fields, q.Highlight))
	}
	return out, nil
}

// FetchRange implements Store.
func (s *MemStore) FetchRange(ctx context.Context, q models.RangeQuery) ([]models.LogEntryDocument, error) {
	if err := s.record("FetchRange"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := s.matching(q.Source, q.Filter, func(d memDocument) bool {
		return models.Compare(d.key, q.Start) >= 0 && models.Compare(d.key, q.End) <= 0
	})
	out := make([]models.LogEntryDocument, len(docs))
	for i, d := range docs {
		out[i] = buildDocument(d.gid, d.key, d.flat, q.Fields, q.Highlight)
	}
	return out, nil
}

// Bucketize implements Store.
func (s *MemStore) Bucketize(ctx context.Context, q models.BucketQuery) ([]models.LogSummaryBucket, error) {
	if err := s.record("Bucketize"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := s.matching(q.Source, q.Filter, func(d memDocument) bool {
		return d.key.Time >= q.Start && d.key.Time < q.End
	})
	bounds := q.BucketBounds()
	buckets := make([]models.LogSummaryBucket, len(bounds))
	for i, b := range bounds {
		buckets[i] = models.LogSummaryBucket{Start: b[0], End: b[1], TopEntryKeys: []models.TimeKey{}}
	}
	for _, d := range docs {
		i := int((uint64(d.key.Time) - uint64(q.Start)) / uint64(q.BucketSize))
		b := &buckets[i]
		b.EntriesCount++
		if len(b.TopEntryKeys) < q.TopEntryKeys {
			b.TopEntryKeys = append(b.TopEntryKeys, d.key)
		}
	}
	return buckets, nil
}

// FetchByID implements Store. A missing document is (nil, nil).
func (s *MemStore) FetchByID(ctx context.Context, source *models.SourceConfiguration, id string) (*models.LogItemHit, error) {
	if err := s.record("FetchByID"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := s.matching(source, nil, func(d memDocument) bool { return d.gid == id })
	if len(docs) == 0 {
		return nil, nil
	}
	d := docs[0]
	return &models.LogItemHit{
		Index:  d.index,
		ID:     d.gid,
		Source: d.source,
		Sort:   [2]int64{d.key.Time, d.key.Tiebreaker},
	}, nil
}

// Stats implements Store.
func (s *MemStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Documents: len(s.docs)}
	if len(s.docs) > 0 {
		st.MinTs = s.docs[0].key.Time
		st.MaxTs = s.docs[len(s.docs)-1].key.Time
	}
	return st, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }
