package docstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/logview/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"
)

// DuckOptions configures a DuckStore.
type DuckOptions struct {
	// Path of the database file. Empty means an in-memory database.
	Path        string
	MemoryLimit string
	Threads     int
	// MaxConcurrentQueries bounds concurrent reads. Defaults to 3.
	MaxConcurrentQueries int
}

// DuckStore stores log documents in DuckDB. Every flattened field is also kept
// in a side table so term and phrase filters run in SQL.
type DuckStore struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger

	// writeMu serializes appends and sequence allocation.
	writeMu sync.Mutex
	seq     int64

	// querySem limits concurrent queries.
	querySem chan struct{}
}

// OpenDuckStore opens (or creates) the database described by opts.
func OpenDuckStore(opts DuckOptions, logger zerolog.Logger) (*DuckStore, error) {
	logger = logger.With().Str("component", "duckstore").Str("path", opts.Path).Logger()
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "1GB"
	}
	if opts.Threads <= 0 {
		opts.Threads = 4
	}
	if opts.MaxConcurrentQueries <= 0 {
		opts.MaxConcurrentQueries = 3
	}

	connector, err := duckdb.NewConnector(opts.Path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return fmt.Errorf("%s: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS documents (
			seq    BIGINT PRIMARY KEY,
			gid    VARCHAR NOT NULL,
			idx    VARCHAR NOT NULL,
			ts     BIGINT NOT NULL,
			source VARCHAR NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fields (
			seq   BIGINT NOT NULL,
			name  VARCHAR NOT NULL,
			value VARCHAR
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	var seq int64
	if err := db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM documents").Scan(&seq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read sequence: %w", err)
	}

	logger.Info().Int64("documents", seq).Msg("DuckDB store opened")
	return &DuckStore{
		db:       db,
		path:     opts.Path,
		logger:   logger,
		seq:      seq,
		querySem: make(chan struct{}, opts.MaxConcurrentQueries),
	}, nil
}

func (ds *DuckStore) acquire(ctx context.Context) (func(), error) {
	select {
	case ds.querySem <- struct{}{}:
		return func() { <-ds.querySem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AddDocuments appends docs using the DuckDB Appender API.
func (ds *DuckStore) AddDocuments(ctx context.Context, docs []Document) ([]models.TimeKey, error) {
	if len(docs) == 0 {
		return []models.TimeKey{}, nil
	}
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	start := time.Now()
	keys := make([]models.TimeKey, len(docs))

	conn, err := ds.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		docApp, err := duckdb.NewAppenderFromConn(dConn, "", "documents")
		if err != nil {
			return fmt.Errorf("failed to create documents appender: %w", err)
		}
		defer docApp.Close()
		fieldApp, err := duckdb.NewAppenderFromConn(dConn, "", "fields")
		if err != nil {
			return fmt.Errorf("failed to create fields appender: %w", err)
		}
		defer fieldApp.Close()

		seq := ds.seq
		for i := range docs {
			doc := docs[i]
			ensureGID(&doc)
			seq++

			source, err := json.Marshal(doc.Source)
			if err != nil {
				return fmt.Errorf("document %d: %w", i, err)
			}
			if err := docApp.AppendRow(seq, doc.GID, doc.Index, doc.Timestamp, string(source)); err != nil {
				return fmt.Errorf("failed to append document %d: %w", i, err)
			}
			for name, v := range models.FlattenFields(doc.Source) {
				for _, value := range fieldValues(v) {
					if err := fieldApp.AppendRow(seq, name, value); err != nil {
						return fmt.Errorf("failed to append field %s of document %d: %w", name, i, err)
					}
				}
			}
			keys[i] = models.TimeKey{Time: doc.Timestamp, Tiebreaker: seq}
		}

		if err := docApp.Flush(); err != nil {
			return err
		}
		if err := fieldApp.Flush(); err != nil {
			return err
		}
		ds.seq = seq
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("appender error: %w", err)
	}

	ds.logger.Debug().Int("documents", len(docs)).Dur("elapsed", time.Since(start)).Msg("batch appended")
	return keys, nil
}

// Finalize creates the lookup indexes. It is safe to call repeatedly.
func (ds *DuckStore) Finalize(ctx context.Context) error {
	ds.writeMu.Lock()
	defer ds.writeMu.Unlock()

	for _, stmt := range []string{
		"CREATE INDEX IF NOT EXISTS idx_documents_ts ON documents(ts, seq)",
		"CREATE INDEX IF NOT EXISTS idx_documents_gid ON documents(gid)",
		"CREATE INDEX IF NOT EXISTS idx_fields_seq ON fields(seq, name)",
	} {
		if _, err := ds.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("index creation failed: %w", err)
		}
	}
	return nil
}

const documentColumns = "d.seq, d.gid, d.ts, d.source"

// FetchAdjacent implements Store.
func (ds *DuckStore) FetchAdjacent(ctx context.Context, q models.AdjacentQuery) ([]models.LogEntryDocument, error) {
	if q.MaxCount <= 0 {
		return []models.LogEntryDocument{}, nil
	}
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var w whereBuilder
	w.indices(q.Source)
	w.window(q.Window)
	dir := "ASC"
	if q.Direction == models.Backward {
		w.before(q.Anchor, false)
		dir = "DESC"
	} else {
		w.after(q.Anchor, false)
	}
	w.query(q.Filter)

	query := fmt.Sprintf("SELECT %s FROM documents d WHERE %s ORDER BY d.ts %s, d.seq %s LIMIT %d",
		documentColumns, w.sql(), dir, dir, q.MaxCount)
	return ds.queryDocuments(ctx, query, w.args, q.Fields, q.Highlight, q.MaxCount)
}

// FetchRange implements Store.
func (ds *DuckStore) FetchRange(ctx context.Context, q models.RangeQuery) ([]models.LogEntryDocument, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var w whereBuilder
	w.indices(q.Source)
	w.after(q.Start, true)
	w.before(q.End, true)
	w.query(q.Filter)

	query := fmt.Sprintf("SELECT %s FROM documents d WHERE %s ORDER BY d.ts ASC, d.seq ASC", documentColumns, w.sql())
	return ds.queryDocuments(ctx, query, w.args, q.Fields, q.Highlight, 64)
}

func (ds *DuckStore) queryDocuments(ctx context.Context, query string, args []any, fields []string, highlight *models.Query, capacity int) ([]models.LogEntryDocument, error) {
	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	docs := make([]models.LogEntryDocument, 0, capacity)
	for rows.Next() {
		var (
			seq, ts int64
			gid     string
			raw     string
		)
		if err := rows.Scan(&seq, &gid, &ts, &raw); err != nil {
			return nil, err
		}
		var source map[string]any
		if err := json.Unmarshal([]byte(raw), &source); err != nil {
			return nil, fmt.Errorf("document %s: %w", gid, err)
		}
		key := models.TimeKey{Time: ts, Tiebreaker: seq}
		docs = append(docs, buildDocument(gid, key, models.FlattenFields(source), fields, highlight))
	}
	return docs, rows.Err()
}

// Bucketize implements Store. Counts and the earliest TopEntryKeys keys per
// bucket come from one window-function query.
func (ds *DuckStore) Bucketize(ctx context.Context, q models.BucketQuery) ([]models.LogSummaryBucket, error) {
	bounds := q.BucketBounds()
	buckets := make([]models.LogSummaryBucket, len(bounds))
	for i, b := range bounds {
		buckets[i] = models.LogSummaryBucket{Start: b[0], End: b[1], TopEntryKeys: []models.TimeKey{}}
	}
	if len(bounds) == 0 {
		return buckets, nil
	}

	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var w whereBuilder
	w.indices(q.Source)
	w.add("d.ts >= ? AND d.ts < ?", q.Start, q.End)
	w.query(q.Filter)

	query := fmt.Sprintf(`
		SELECT bucket, cnt, ts, seq FROM (
			SELECT CAST((CAST(d.ts AS HUGEINT) - ?) // ? AS BIGINT) AS bucket, d.ts AS ts, d.seq AS seq,
				COUNT(*) OVER (PARTITION BY (CAST(d.ts AS HUGEINT) - ?) // ?) AS cnt,
				ROW_NUMBER() OVER (PARTITION BY (CAST(d.ts AS HUGEINT) - ?) // ? ORDER BY d.ts, d.seq) AS rn
			FROM documents d
			WHERE %s
		) WHERE rn <= ?
		ORDER BY bucket, rn`, w.sql())
	args := []any{q.Start, q.BucketSize, q.Start, q.BucketSize, q.Start, q.BucketSize}
	args = append(args, w.args...)
	args = append(args, max(q.TopEntryKeys, 1))

	rows, err := ds.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bucket query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bucket, count, ts, seq int64
		if err := rows.Scan(&bucket, &count, &ts, &seq); err != nil {
			return nil, err
		}
		if bucket < 0 || int(bucket) >= len(buckets) {
			continue
		}
		b := &buckets[bucket]
		b.EntriesCount = int(count)
		if len(b.TopEntryKeys) < q.TopEntryKeys {
			b.TopEntryKeys = append(b.TopEntryKeys, models.TimeKey{Time: ts, Tiebreaker: seq})
		}
	}
	return buckets, rows.Err()
}

// FetchByID implements Store. A missing document is (nil, nil).
func (ds *DuckStore) FetchByID(ctx context.Context, source *models.SourceConfiguration, id string) (*models.LogItemHit, error) {
	release, err := ds.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var w whereBuilder
	w.add("d.gid = ?", id)
	w.indices(source)

	var (
		hit     models.LogItemHit
		raw     string
		ts, seq int64
	)
	err = ds.db.QueryRowContext(ctx, "SELECT d.idx, d.gid, d.ts, d.seq, d.source FROM documents d WHERE "+w.sql()+" LIMIT 1", w.args...).
		Scan(&hit.Index, &hit.ID, &ts, &seq, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch by id failed: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &hit.Source); err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	hit.Sort = [2]int64{ts, seq}
	return &hit, nil
}

// Stats implements Store.
func (ds *DuckStore) Stats(ctx context.Context) (Stats, error) {
	var (
		st           Stats
		minTs, maxTs sql.NullInt64
	)
	err := ds.db.QueryRowContext(ctx, "SELECT COUNT(*), MIN(ts), MAX(ts) FROM documents").Scan(&st.Documents, &minTs, &maxTs)
	if err != nil {
		return Stats{}, err
	}
	st.MinTs, st.MaxTs = minTs.Int64, maxTs.Int64
	return st, nil
}

// Close closes the database.
func (ds *DuckStore) Close() error {
	if ds.db == nil {
		return nil
	}
	err := ds.db.Close()
	ds.db = nil
	ds.logger.Info().Msg("DuckDB store closed")
	return err
}
