package logentries

import (
	"context"
	"math"
	"testing"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlightBuckets(t *testing.T) {
	k1 := models.TimeKey{Time: 10, Tiebreaker: 1}
	k2 := models.TimeKey{Time: 12, Tiebreaker: 2}

	got := HighlightBuckets([]models.LogSummaryBucket{
		{Start: 0, End: 10, EntriesCount: 0, TopEntryKeys: []models.TimeKey{}},
		{Start: 10, End: 20, EntriesCount: 3, TopEntryKeys: []models.TimeKey{k1, k2}},
		{Start: 20, End: 30, EntriesCount: 0},
	})

	assert.Equal(t, []models.SummaryHighlightBucket{
		{Start: 10, End: 20, EntriesCount: 3, RepresentativeKey: k1},
	}, got)
}

func TestHighlightBuckets_CountWithoutKeys(t *testing.T) {
	got := HighlightBuckets([]models.LogSummaryBucket{{Start: 0, End: 10, EntriesCount: 4}})
	assert.Empty(t, got)
}

func TestSummaryBuckets(t *testing.T) {
	ctx := context.Background()
	d, _, keys := createTestDomain(t, 10, Options{})

	t.Run("partitions the range", func(t *testing.T) {
		buckets, err := d.SummaryBuckets(ctx, "default", SummaryParams{Start: 100, End: 1050, BucketSize: 300})
		require.NoError(t, err)
		require.Len(t, buckets, 4)

		assert.Equal(t, 3, buckets[0].EntriesCount)
		assert.Equal(t, []models.TimeKey{keys[0]}, buckets[0].TopEntryKeys)
		assert.Equal(t, int64(1000), buckets[3].Start)
		assert.Equal(t, int64(1050), buckets[3].End)
		assert.Equal(t, 1, buckets[3].EntriesCount)
	})

	t.Run("invalid bounds", func(t *testing.T) {
		_, err := d.SummaryBuckets(ctx, "default", SummaryParams{Start: 100, End: 50, BucketSize: 10})
		assert.ErrorIs(t, err, logerr.ErrInvalidWindow)

		_, err = d.SummaryBuckets(ctx, "default", SummaryParams{Start: 0, End: 50, BucketSize: 0})
		assert.ErrorIs(t, err, logerr.ErrInvalidWindow)
	})

	t.Run("bucket limit", func(t *testing.T) {
		d, store, _ := createTestDomain(t, 10, Options{MaxSummaryBuckets: 5})

		buckets, err := d.SummaryBuckets(ctx, "default", SummaryParams{Start: 0, End: 500, BucketSize: 100})
		require.NoError(t, err)
		assert.Len(t, buckets, 5)

		_, err = d.SummaryBuckets(ctx, "default", SummaryParams{Start: 0, End: 501, BucketSize: 100})
		assert.ErrorIs(t, err, logerr.ErrInvalidWindow)

		// A year of milliseconds in 1ms buckets is rejected before reaching the store.
		calls := store.Calls("Bucketize")
		_, err = d.SummaryHighlightBuckets(ctx, "default", SummaryHighlightParams{
			SummaryParams: SummaryParams{Start: 0, End: 365 * 24 * 3600 * 1000, BucketSize: 1},
			Phrases:       []string{"line"},
		})
		assert.ErrorIs(t, err, logerr.ErrInvalidWindow)
		assert.Equal(t, calls, store.Calls("Bucketize"))
	})

	t.Run("range near the int64 limit", func(t *testing.T) {
		_, err := d.SummaryBuckets(ctx, "default", SummaryParams{Start: 0, End: math.MaxInt64, BucketSize: 1 << 62})
		require.NoError(t, err)

		_, err = d.SummaryBuckets(ctx, "default", SummaryParams{Start: math.MinInt64, End: math.MaxInt64, BucketSize: 1})
		assert.ErrorIs(t, err, logerr.ErrInvalidWindow)
	})

	t.Run("top key cap follows options", func(t *testing.T) {
		d, _, keys := createTestDomain(t, 10, Options{SummaryTopEntryKeys: 2})
		buckets, err := d.SummaryBuckets(ctx, "default", SummaryParams{Start: 100, End: 400, BucketSize: 300})
		require.NoError(t, err)
		assert.Equal(t, []models.TimeKey{keys[0], keys[1]}, buckets[0].TopEntryKeys)
	})
}

func TestSummaryHighlightBuckets(t *testing.T) {
	ctx := context.Background()
	d, _, keys := createTestDomain(t, 10, Options{})

	results, err := d.SummaryHighlightBuckets(ctx, "default", SummaryHighlightParams{
		SummaryParams: SummaryParams{Start: 100, End: 1100, BucketSize: 500},
		Phrases:       []string{"line 7", "line", "absent"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []models.SummaryHighlightBucket{
		{Start: 600, End: 1100, EntriesCount: 1, RepresentativeKey: keys[7]},
	}, results[0])
	require.Len(t, results[1], 2)
	assert.Equal(t, keys[0], results[1][0].RepresentativeKey)
	assert.Equal(t, 5, results[1][1].EntriesCount)
	assert.Empty(t, results[2])
}

func TestSummaryHighlightBuckets_Filter(t *testing.T) {
	d, _, _ := createTestDomain(t, 10, Options{})

	results, err := d.SummaryHighlightBuckets(context.Background(), "default", SummaryHighlightParams{
		SummaryParams: SummaryParams{
			Start: 100, End: 1100, BucketSize: 1000,
			Filter: models.Term("event.dataset", "other.log"),
		},
		Phrases: []string{"line"},
	})
	require.NoError(t, err)
	assert.Empty(t, results[0])
}
