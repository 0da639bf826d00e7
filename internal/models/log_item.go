package models

// LogItemHit is a raw document fetched by id.
type LogItemHit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
	Sort   [2]int64       `json:"sort"`
}

// LogItemField is one flattened field of a log item.
type LogItemField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// LogEntriesItem is the detail view of a single document.
type LogEntriesItem struct {
	ID     string         `json:"id"`
	Index  string         `json:"index"`
	Key    TimeKey        `json:"key"`
	Fields []LogItemField `json:"fields"`
}
