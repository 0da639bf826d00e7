package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeKey is the composite sort key of a log entry. Entries are totally ordered by
// Time (epoch milliseconds) and then by Tiebreaker.
type TimeKey struct {
	Time       int64 `json:"time" msgpack:"time"`
	Tiebreaker int64 `json:"tiebreaker" msgpack:"tiebreaker"`
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to or after b.
func Compare(a, b TimeKey) int {
	switch {
	case a.Time < b.Time:
		return -1
	case a.Time > b.Time:
		return 1
	case a.Tiebreaker < b.Tiebreaker:
		return -1
	case a.Tiebreaker > b.Tiebreaker:
		return 1
	default:
		return 0
	}
}

// Less reports whether k sorts strictly before other.
func (k TimeKey) Less(other TimeKey) bool {
	return Compare(k, other) < 0
}

// Predecessor returns the key one millisecond before k with a zero tiebreaker.
// A forward search strictly after it starts with entries at k.Time.
func Predecessor(k TimeKey) TimeKey {
	return TimeKey{Time: k.Time - 1, Tiebreaker: 0}
}

// String encodes the key as "time:tiebreaker".
func (k TimeKey) String() string {
	return strconv.FormatInt(k.Time, 10) + ":" + strconv.FormatInt(k.Tiebreaker, 10)
}

// ParseTimeKey parses the "time:tiebreaker" form produced by String.
// A bare "time" is accepted with a zero tiebreaker.
func ParseTimeKey(s string) (TimeKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeKey{}, fmt.Errorf("empty time key")
	}

	timePart, tiePart, hasTie := strings.Cut(s, ":")
	t, err := strconv.ParseInt(timePart, 10, 64)
	if err != nil {
		return TimeKey{}, fmt.Errorf("invalid time in key %q: %w", s, err)
	}
	if !hasTie {
		return TimeKey{Time: t}, nil
	}

	tb, err := strconv.ParseInt(tiePart, 10, 64)
	if err != nil {
		return TimeKey{}, fmt.Errorf("invalid tiebreaker in key %q: %w", s, err)
	}
	return TimeKey{Time: t, Tiebreaker: tb}, nil
}
