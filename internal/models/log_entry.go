// Package models contains domain types for the log entries service.
package models

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Fields maps flattened field names ("host.name") to their values.
type Fields map[string]any

// Highlights maps field names to the highlighted fragments found in them.
type Highlights map[string][]string

// LogEntryDocument is a matched document as returned by a store adapter.
type LogEntryDocument struct {
	Fields     Fields     `json:"fields"`
	Highlights Highlights `json:"highlights"`
	GID        string     `json:"gid"`
	Key        TimeKey    `json:"key"`
}

// MessageSegment is one piece of a formatted log message. A segment either
// references a field (with highlights) or carries constant text.
type MessageSegment struct {
	Field      string   `json:"field,omitempty" msgpack:"field,omitempty"`
	Value      string   `json:"value,omitempty" msgpack:"value,omitempty"`
	Highlights []string `json:"highlights,omitempty" msgpack:"highlights,omitempty"`
	Constant   string   `json:"constant,omitempty" msgpack:"constant,omitempty"`
}

// LogColumn is one rendered column of a log entry. Exactly one of the
// Timestamp, Message or Field groups is populated, matching the column spec.
type LogColumn struct {
	ColumnID   string           `json:"columnId" msgpack:"columnId"`
	Timestamp  *int64           `json:"timestamp,omitempty" msgpack:"timestamp,omitempty"`
	Message    []MessageSegment `json:"message,omitempty" msgpack:"message,omitempty"`
	Field      string           `json:"field,omitempty" msgpack:"field,omitempty"`
	Value      *string          `json:"value,omitempty" msgpack:"value,omitempty"`
	Highlights []string         `json:"highlights,omitempty" msgpack:"highlights,omitempty"`
}

// LogEntry is a document rendered against a column schema.
type LogEntry struct {
	ID      string      `json:"id" msgpack:"id"`
	Cursor  TimeKey     `json:"cursor" msgpack:"cursor"`
	Columns []LogColumn `json:"columns" msgpack:"columns"`
}

// LegacyLogEntry is the rendering used by the deprecated around/between/highlights
// calls. It carries the source id and exposes the key under its old name.
type LegacyLogEntry struct {
	GID     string      `json:"gid"`
	Key     TimeKey     `json:"key"`
	Source  string      `json:"source"`
	Columns []LogColumn `json:"columns"`
}

type fieldSegmentWire struct {
	Field      string   `json:"field" msgpack:"field"`
	Value      string   `json:"value" msgpack:"value"`
	Highlights []string `json:"highlights" msgpack:"highlights"`
}

type constantSegmentWire struct {
	Constant string `json:"constant" msgpack:"constant"`
}

// wire returns the variant the segment encodes as. Field segments always
// carry value and highlights.
func (s MessageSegment) wire() any {
	if s.Field == "" {
		return constantSegmentWire{Constant: s.Constant}
	}
	return fieldSegmentWire{Field: s.Field, Value: s.Value, Highlights: nonNil(s.Highlights)}
}

// MarshalJSON implements json.Marshaler.
func (s MessageSegment) MarshalJSON() ([]byte, error) { return json.Marshal(s.wire()) }

// MarshalMsgpack implements msgpack.Marshaler.
func (s MessageSegment) MarshalMsgpack() ([]byte, error) { return msgpack.Marshal(s.wire()) }

type timestampColumnWire struct {
	ColumnID  string `json:"columnId" msgpack:"columnId"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"`
}

type messageColumnWire struct {
	ColumnID string           `json:"columnId" msgpack:"columnId"`
	Message  []MessageSegment `json:"message" msgpack:"message"`
}

type fieldColumnWire struct {
	ColumnID   string   `json:"columnId" msgpack:"columnId"`
	Field      string   `json:"field" msgpack:"field"`
	Value      string   `json:"value" msgpack:"value"`
	Highlights []string `json:"highlights" msgpack:"highlights"`
}

type emptyColumnWire struct {
	ColumnID string `json:"columnId" msgpack:"columnId"`
}

// wire returns the variant the column encodes as. Message columns always carry
// a message list and field columns always carry a highlights list.
func (c LogColumn) wire() any {
	switch {
	case c.Timestamp != nil:
		return timestampColumnWire{ColumnID: c.ColumnID, Timestamp: *c.Timestamp}
	case c.Value != nil:
		return fieldColumnWire{ColumnID: c.ColumnID, Field: c.Field, Value: *c.Value, Highlights: nonNil(c.Highlights)}
	case c.Message != nil:
		return messageColumnWire{ColumnID: c.ColumnID, Message: c.Message}
	default:
		return emptyColumnWire{ColumnID: c.ColumnID}
	}
}

// MarshalJSON implements json.Marshaler.
func (c LogColumn) MarshalJSON() ([]byte, error) { return json.Marshal(c.wire()) }

// MarshalMsgpack implements msgpack.Marshaler.
func (c LogColumn) MarshalMsgpack() ([]byte, error) { return msgpack.Marshal(c.wire()) }

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
