package logentries

import (
	"bytes"
	"encoding/json"

	"github.com/logview/backend/internal/message"
	"github.com/logview/backend/internal/models"
)

// Materializer renders documents against a column schema.
type Materializer struct {
	columns []models.ColumnSpec
	format  message.Formatter
}

// NewMaterializer creates a materializer for columns using format for message columns.
func NewMaterializer(columns []models.ColumnSpec, format message.Formatter) *Materializer {
	return &Materializer{columns: columns, format: format}
}

// Materialize renders one document with exactly one column per configured column.
func (m *Materializer) Materialize(doc models.LogEntryDocument) models.LogEntry {
	return models.LogEntry{
		ID:      doc.GID,
		Cursor:  doc.Key,
		Columns: m.Columns(doc),
	}
}

// MaterializeAll renders docs, preserving order.
func (m *Materializer) MaterializeAll(docs []models.LogEntryDocument) []models.LogEntry {
	entries := make([]models.LogEntry, len(docs))
	for i, doc := range docs {
		entries[i] = m.Materialize(doc)
	}
	return entries
}

// MaterializeLegacy renders docs in the older entry shape tagged with sourceID.
func (m *Materializer) MaterializeLegacy(sourceID string, docs []models.LogEntryDocument) []models.LegacyLogEntry {
	entries := make([]models.LegacyLogEntry, len(docs))
	for i, doc := range docs {
		entries[i] = models.LegacyLogEntry{
			GID:     doc.GID,
			Key:     doc.Key,
			Source:  sourceID,
			Columns: m.Columns(doc),
		}
	}
	return entries
}

// Columns renders the column values of doc.
func (m *Materializer) Columns(doc models.LogEntryDocument) []models.LogColumn {
	columns := make([]models.LogColumn, 0, len(m.columns))
	for _, spec := range m.columns {
		switch spec.Kind {
		case models.TimestampColumn:
			ts := doc.Key.Time
			columns = append(columns, models.LogColumn{ColumnID: spec.ID, Timestamp: &ts})
		case models.MessageColumn:
			var segments []models.MessageSegment
			if m.format != nil {
				segments = m.format(doc.Fields, doc.Highlights)
			}
			if segments == nil {
				segments = []models.MessageSegment{}
			}
			columns = append(columns, models.LogColumn{ColumnID: spec.ID, Message: segments})
		case models.FieldColumn:
			value := EncodeFieldValue(doc.Fields[spec.Field])
			highlights := doc.Highlights[spec.Field]
			if highlights == nil {
				highlights = []string{}
			}
			columns = append(columns, models.LogColumn{
				ColumnID:   spec.ID,
				Field:      spec.Field,
				Value:      &value,
				Highlights: highlights,
			})
		default:
			columns = append(columns, models.LogColumn{ColumnID: spec.ID})
		}
	}
	return columns
}

// EncodeFieldValue encodes v as compact JSON with object keys sorted, so equal
// values always encode to the same bytes. Missing and unencodable values are "null".
func EncodeFieldValue(v any) string {
	if v == nil {
		return "null"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
