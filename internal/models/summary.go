package models

// LogSummaryBucket is a fixed-width time interval with the number of matching
// entries and a small sample of their keys.
type LogSummaryBucket struct {
	Start        int64     `json:"start" msgpack:"start"`
	End          int64     `json:"end" msgpack:"end"`
	EntriesCount int       `json:"entriesCount" msgpack:"entriesCount"`
	TopEntryKeys []TimeKey `json:"topEntryKeys" msgpack:"topEntryKeys"`
}

// HasEntries reports whether the bucket matched anything and carries a key.
func (b LogSummaryBucket) HasEntries() bool {
	return b.EntriesCount > 0 && len(b.TopEntryKeys) > 0
}

// SummaryHighlightBucket is a non-empty bucket reduced to one representative key.
type SummaryHighlightBucket struct {
	Start             int64   `json:"start" msgpack:"start"`
	End               int64   `json:"end" msgpack:"end"`
	EntriesCount      int     `json:"entriesCount" msgpack:"entriesCount"`
	RepresentativeKey TimeKey `json:"representativeKey" msgpack:"representativeKey"`
}
