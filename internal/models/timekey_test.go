package models

import (
	"encoding/json"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b TimeKey
		want int
	}{
		{"earlier time", TimeKey{1, 9}, TimeKey{2, 0}, -1},
		{"later time", TimeKey{3, 0}, TimeKey{2, 9}, 1},
		{"same time lower tiebreaker", TimeKey{2, 1}, TimeKey{2, 2}, -1},
		{"same time higher tiebreaker", TimeKey{2, 3}, TimeKey{2, 2}, 1},
		{"equal", TimeKey{2, 2}, TimeKey{2, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, -tt.want, Compare(tt.b, tt.a))
		})
	}
}

func TestTimeKey_TotalOrder(t *testing.T) {
	keys := []TimeKey{{5, 1}, {1, 2}, {5, 0}, {1, 1}, {3, 0}}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	assert.Equal(t, []TimeKey{{1, 1}, {1, 2}, {3, 0}, {5, 0}, {5, 1}}, keys)
}

func TestPredecessor(t *testing.T) {
	k := TimeKey{Time: 1000, Tiebreaker: 42}
	p := Predecessor(k)

	assert.Equal(t, TimeKey{Time: 999, Tiebreaker: 0}, p)
	assert.True(t, p.Less(k))
	// Every key at k.Time sorts after the predecessor.
	assert.True(t, p.Less(TimeKey{Time: 1000, Tiebreaker: -5}))
}

func TestParseTimeKey(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		k := TimeKey{Time: 1704067200000, Tiebreaker: 7}
		got, err := ParseTimeKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	})

	t.Run("bare time", func(t *testing.T) {
		got, err := ParseTimeKey(" 1500 ")
		require.NoError(t, err)
		assert.Equal(t, TimeKey{Time: 1500}, got)
	})

	for _, in := range []string{"", "abc", "10:x", ":5"} {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := ParseTimeKey(in)
			assert.Error(t, err)
		})
	}
}

func TestCursorJSON(t *testing.T) {
	tests := []struct {
		name   string
		cursor *Cursor
		json   string
	}{
		{"first", CursorFirst(), `{"after":"first"}`},
		{"last", CursorLast(), `{"before":"last"}`},
		{"after key", CursorAfter(TimeKey{10, 1}), `{"after":{"time":10,"tiebreaker":1}}`},
		{"before key", CursorBefore(TimeKey{20, 2}), `{"before":{"time":20,"tiebreaker":2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cursor)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(data))

			var got Cursor
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, *tt.cursor, got)
		})
	}
}

func TestCursorJSON_Invalid(t *testing.T) {
	for _, in := range []string{
		`{}`,
		`{"before":"last","after":"first"}`,
		`{"before":"first"}`,
		`{"after":true}`,
	} {
		var c Cursor
		assert.Error(t, json.Unmarshal([]byte(in), &c), in)
	}
}

func TestCursorIsEdge(t *testing.T) {
	var nilCursor *Cursor
	assert.True(t, nilCursor.IsEdge())
	assert.True(t, CursorFirst().IsEdge())
	assert.True(t, CursorLast().IsEdge())
	assert.False(t, CursorAfter(TimeKey{1, 1}).IsEdge())
}

func TestBucketBounds(t *testing.T) {
	t.Run("last bucket clamped", func(t *testing.T) {
		q := BucketQuery{Start: 100, End: 350, BucketSize: 100}
		assert.Equal(t, uint64(3), q.BucketCount())
		assert.Equal(t, [][2]int64{{100, 200}, {200, 300}, {300, 350}}, q.BucketBounds())
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, BucketQuery{Start: 10, End: 10, BucketSize: 5}.BucketBounds())
		assert.Nil(t, BucketQuery{Start: 0, End: 10, BucketSize: 0}.BucketBounds())
	})

	t.Run("near the int64 limit", func(t *testing.T) {
		q := BucketQuery{Start: 0, End: math.MaxInt64, BucketSize: 1 << 62}
		assert.Equal(t, uint64(2), q.BucketCount())
		assert.Equal(t, [][2]int64{{0, 1 << 62}, {1 << 62, math.MaxInt64}}, q.BucketBounds())

		q = BucketQuery{Start: math.MinInt64, End: math.MaxInt64, BucketSize: math.MaxInt64}
		assert.Equal(t, uint64(3), q.BucketCount())
		bounds := q.BucketBounds()
		require.Len(t, bounds, 3)
		assert.Equal(t, int64(math.MaxInt64), bounds[2][1])
	})
}
