package logentries

import (
	"context"
	"fmt"
	"testing"

	"github.com/logview/backend/internal/docstore"
	"github.com/logview/backend/internal/models"
	"github.com/logview/backend/internal/sources"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// createTestDomain seeds a MemStore with n documents at 100ms, 200ms, ... and
// returns a domain over it together with the document keys.
func createTestDomain(t *testing.T, n int, opts Options) (*Domain, *docstore.MemStore, []models.TimeKey) {
	t.Helper()
	store, keys := seedMemStore(t, n)
	return NewDomain(store, sources.NewDefaultProvider(), opts, zerolog.Nop()), store, keys
}

// createCountingDomain is createTestDomain with adjacency calls recorded.
func createCountingDomain(t *testing.T, n int, opts Options) (*Domain, *countingAdapter, []models.TimeKey) {
	t.Helper()
	store, keys := seedMemStore(t, n)
	adapter := &countingAdapter{MemStore: store}
	return NewDomain(adapter, sources.NewDefaultProvider(), opts, zerolog.Nop()), adapter, keys
}

func seedMemStore(t *testing.T, n int) (*docstore.MemStore, []models.TimeKey) {
	t.Helper()
	store := docstore.NewMemStore()

	docs := make([]docstore.Document, n)
	for i := range docs {
		docs[i] = docstore.Document{
			GID:       fmt.Sprintf("doc-%d", i),
			Index:     "logs-app",
			Timestamp: int64(i+1) * 100,
			Source: map[string]any{
				"message": fmt.Sprintf("line %d", i),
				"event":   map[string]any{"dataset": "app.log"},
			},
		}
	}
	keys, err := store.AddDocuments(context.Background(), docs)
	require.NoError(t, err)
	return store, keys
}

// createTiedDomain seeds documents at 100, 200, five at 300, 400 and 500, so
// keys[2:7] share one timestamp and differ only by tiebreaker.
func createTiedDomain(t *testing.T, opts Options) (*Domain, *countingAdapter, []models.TimeKey) {
	t.Helper()
	store := docstore.NewMemStore()

	timestamps := []int64{100, 200, 300, 300, 300, 300, 300, 400, 500}
	docs := make([]docstore.Document, len(timestamps))
	for i, ts := range timestamps {
		docs[i] = docstore.Document{
			GID:       fmt.Sprintf("tie-%d", i),
			Index:     "logs-app",
			Timestamp: ts,
			Source:    map[string]any{"message": fmt.Sprintf("tied %d", i)},
		}
	}
	keys, err := store.AddDocuments(context.Background(), docs)
	require.NoError(t, err)

	adapter := &countingAdapter{MemStore: store}
	return NewDomain(adapter, sources.NewDefaultProvider(), opts, zerolog.Nop()), adapter, keys
}

func cursors(entries []models.LogEntry) []models.TimeKey {
	out := make([]models.TimeKey, len(entries))
	for i, e := range entries {
		out[i] = e.Cursor
	}
	return out
}

func legacyKeys(entries []models.LegacyLogEntry) []models.TimeKey {
	out := make([]models.TimeKey, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

// countingAdapter records adjacency queries before delegating to a MemStore.
type countingAdapter struct {
	*docstore.MemStore
	adjacent []models.AdjacentQuery
}

func (a *countingAdapter) FetchAdjacent(ctx context.Context, q models.AdjacentQuery) ([]models.LogEntryDocument, error) {
	a.adjacent = append(a.adjacent, q)
	return a.MemStore.FetchAdjacent(ctx, q)
}
