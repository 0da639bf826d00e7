package logentries

import (
	"context"
	"errors"
	"testing"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntriesBetween(t *testing.T) {
	ctx := context.Background()
	d, _, keys := createTestDomain(t, 10, Options{})

	t.Run("inclusive bounds", func(t *testing.T) {
		entries, err := d.EntriesBetween(ctx, "default", BetweenParams{StartKey: keys[2], EndKey: keys[5]})
		require.NoError(t, err)
		assert.Equal(t, keys[2:6], legacyKeys(entries))
	})

	t.Run("filter", func(t *testing.T) {
		entries, err := d.EntriesBetween(ctx, "default", BetweenParams{
			StartKey: keys[0],
			EndKey:   keys[9],
			Filter:   models.Phrase("line 7", []string{"message"}),
		})
		require.NoError(t, err)
		assert.Equal(t, []models.TimeKey{keys[7]}, legacyKeys(entries))
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := d.EntriesBetween(ctx, "default", BetweenParams{StartKey: keys[5], EndKey: keys[2]})
		assert.ErrorIs(t, err, logerr.ErrInvalidWindow)
	})
}

func TestEntryHighlights(t *testing.T) {
	ctx := context.Background()

	t.Run("one result per phrase in input order", func(t *testing.T) {
		d, _, keys := createTestDomain(t, 10, Options{MaxConcurrentHighlights: 2})
		results, err := d.EntryHighlights(ctx, "default", HighlightsParams{
			StartKey: keys[3],
			EndKey:   keys[6],
			Highlights: []HighlightRequest{
				{Query: "line", CountBefore: 2, CountAfter: 1},
				{Query: "line 9", CountBefore: 0, CountAfter: 5},
				{Query: "nothing"},
			},
		})
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, keys[1:8], legacyKeys(results[0]))
		assert.Equal(t, []models.TimeKey{keys[9]}, legacyKeys(results[1]))
		assert.Empty(t, results[2])
	})

	t.Run("before part is ascending", func(t *testing.T) {
		d, _, keys := createTestDomain(t, 10, Options{})
		results, err := d.EntryHighlights(ctx, "default", HighlightsParams{
			StartKey:   keys[5],
			EndKey:     keys[5],
			Highlights: []HighlightRequest{{Query: "line", CountBefore: 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, keys[2:6], legacyKeys(results[0]))
	})

	t.Run("highlights carry fragments", func(t *testing.T) {
		d, _, keys := createTestDomain(t, 10, Options{})
		results, err := d.EntryHighlights(ctx, "default", HighlightsParams{
			StartKey:   keys[0],
			EndKey:     keys[9],
			Highlights: []HighlightRequest{{Query: "Line 4"}},
		})
		require.NoError(t, err)
		require.Len(t, results[0], 1)
		assert.Equal(t, []string{"line 4"}, results[0][0].Columns[2].Message[0].Highlights)
	})

	t.Run("negative counts", func(t *testing.T) {
		d, _, keys := createTestDomain(t, 10, Options{})
		_, err := d.EntryHighlights(ctx, "default", HighlightsParams{
			StartKey:   keys[0],
			EndKey:     keys[1],
			Highlights: []HighlightRequest{{Query: "line", CountBefore: -1}},
		})
		assert.ErrorIs(t, err, logerr.ErrInvalidWindow)
	})

	t.Run("store failure fails every phrase", func(t *testing.T) {
		d, store, keys := createTestDomain(t, 10, Options{})
		store.Err = errors.New("timeout")
		results, err := d.EntryHighlights(ctx, "default", HighlightsParams{
			StartKey:   keys[0],
			EndKey:     keys[1],
			Highlights: []HighlightRequest{{Query: "a"}, {Query: "b"}},
		})
		assert.ErrorIs(t, err, logerr.ErrStoreUnavailable)
		assert.Nil(t, results)
	})

	t.Run("canceled context", func(t *testing.T) {
		d, _, keys := createTestDomain(t, 10, Options{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := d.EntryHighlights(cctx, "default", HighlightsParams{
			StartKey:   keys[0],
			EndKey:     keys[1],
			Highlights: []HighlightRequest{{Query: "line", CountAfter: 1}},
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
