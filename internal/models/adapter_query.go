package models

// Direction is the traversal order of an adjacency search.
type Direction string

const (
	Forward  Direction = "asc"
	Backward Direction = "desc"
)

// Window bounds a search to [Start, End] in epoch milliseconds.
type Window struct {
	Start int64 `json:"startTimestamp"`
	End   int64 `json:"endTimestamp"`
}

// Contains reports whether t lies inside the window.
func (w *Window) Contains(t int64) bool {
	return w == nil || (t >= w.Start && t <= w.End)
}

// AdjacentQuery asks a store for up to MaxCount documents strictly beyond Anchor.
type AdjacentQuery struct {
	Source    *SourceConfiguration
	Fields    []string
	Anchor    TimeKey
	Direction Direction
	MaxCount  int
	Window    *Window
	Filter    *Query
	Highlight *Query
}

// RangeQuery asks a store for every document with key in [Start, End].
type RangeQuery struct {
	Source    *SourceConfiguration
	Fields    []string
	Start     TimeKey
	End       TimeKey
	Filter    *Query
	Highlight *Query
}

// BucketQuery asks a store to count matches in fixed-width buckets over [Start, End).
type BucketQuery struct {
	Source       *SourceConfiguration
	Start        int64
	End          int64
	BucketSize   int64
	Filter       *Query
	TopEntryKeys int
}

// BucketCount returns the number of buckets covering [Start, End), the last one
// possibly partial. It does not overflow for any Start < End.
func (q BucketQuery) BucketCount() uint64 {
	if q.BucketSize <= 0 || q.End <= q.Start {
		return 0
	}
	span := uint64(q.End) - uint64(q.Start)
	size := uint64(q.BucketSize)
	count := span / size
	if span%size != 0 {
		count++
	}
	return count
}

// BucketBounds returns the [start, end) bounds of every bucket. The last bucket
// is clamped to End.
func (q BucketQuery) BucketBounds() [][2]int64 {
	count := q.BucketCount()
	if count == 0 {
		return nil
	}
	bounds := make([][2]int64, 0, count)
	for from := q.Start; from < q.End; {
		to := q.End
		if uint64(q.End)-uint64(from) > uint64(q.BucketSize) {
			to = from + q.BucketSize
		}
		bounds = append(bounds, [2]int64{from, to})
		from = to
	}
	return bounds
}
