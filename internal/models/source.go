package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnKind identifies the variant of a ColumnSpec.
type ColumnKind int

const (
	TimestampColumn ColumnKind = iota + 1
	MessageColumn
	FieldColumn
)

func (k ColumnKind) String() string {
	switch k {
	case TimestampColumn:
		return "timestamp"
	case MessageColumn:
		return "message"
	case FieldColumn:
		return "field"
	default:
		return fmt.Sprintf("ColumnKind(%d)", int(k))
	}
}

// ColumnSpec is one column of a source's log view. Field is only set for
// field columns.
type ColumnSpec struct {
	Kind  ColumnKind
	ID    string
	Field string
}

func NewTimestampColumn(id string) ColumnSpec { return ColumnSpec{Kind: TimestampColumn, ID: id} }
func NewMessageColumn(id string) ColumnSpec   { return ColumnSpec{Kind: MessageColumn, ID: id} }
func NewFieldColumn(id, field string) ColumnSpec {
	return ColumnSpec{Kind: FieldColumn, ID: id, Field: field}
}

type columnID struct {
	ID string `json:"id" yaml:"id"`
}

type fieldColumnBody struct {
	ID    string `json:"id" yaml:"id"`
	Field string `json:"field" yaml:"field"`
}

// columnShape is the saved form: {timestampColumn: {id}}, {messageColumn: {id}}
// or {fieldColumn: {id, field}}.
type columnShape struct {
	TimestampColumn *columnID        `json:"timestampColumn,omitempty" yaml:"timestampColumn,omitempty"`
	MessageColumn   *columnID        `json:"messageColumn,omitempty" yaml:"messageColumn,omitempty"`
	FieldColumn     *fieldColumnBody `json:"fieldColumn,omitempty" yaml:"fieldColumn,omitempty"`
}

func (s columnShape) toSpec() (ColumnSpec, error) {
	set := 0
	var spec ColumnSpec
	if s.TimestampColumn != nil {
		set++
		spec = NewTimestampColumn(s.TimestampColumn.ID)
	}
	if s.MessageColumn != nil {
		set++
		spec = NewMessageColumn(s.MessageColumn.ID)
	}
	if s.FieldColumn != nil {
		set++
		if s.FieldColumn.Field == "" {
			return ColumnSpec{}, fmt.Errorf("field column %q has no field", s.FieldColumn.ID)
		}
		spec = NewFieldColumn(s.FieldColumn.ID, s.FieldColumn.Field)
	}
	if set != 1 {
		return ColumnSpec{}, fmt.Errorf("column must be exactly one of timestampColumn, messageColumn, fieldColumn")
	}
	return spec, nil
}

func (c ColumnSpec) shape() columnShape {
	switch c.Kind {
	case TimestampColumn:
		return columnShape{TimestampColumn: &columnID{ID: c.ID}}
	case MessageColumn:
		return columnShape{MessageColumn: &columnID{ID: c.ID}}
	default:
		return columnShape{FieldColumn: &fieldColumnBody{ID: c.ID, Field: c.Field}}
	}
}

func (c ColumnSpec) MarshalJSON() ([]byte, error) { return json.Marshal(c.shape()) }

func (c *ColumnSpec) UnmarshalJSON(data []byte) error {
	var s columnShape
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	spec, err := s.toSpec()
	if err != nil {
		return err
	}
	*c = spec
	return nil
}

func (c ColumnSpec) MarshalYAML() (interface{}, error) { return c.shape(), nil }

func (c *ColumnSpec) UnmarshalYAML(value *yaml.Node) error {
	var s columnShape
	if err := value.Decode(&s); err != nil {
		return err
	}
	spec, err := s.toSpec()
	if err != nil {
		return err
	}
	*c = spec
	return nil
}

// SourceFields names the fields a source uses for ordering and messages.
type SourceFields struct {
	Timestamp  string   `json:"timestamp" yaml:"timestamp"`
	Tiebreaker string   `json:"tiebreaker" yaml:"tiebreaker"`
	Message    []string `json:"message" yaml:"message"`
}

// SourceConfiguration describes where a source's documents live and how its
// log view is laid out.
type SourceConfiguration struct {
	ID         string       `json:"id" yaml:"id"`
	Name       string       `json:"name" yaml:"name"`
	LogIndices string       `json:"logIndices" yaml:"log_indices"` // comma-separated glob patterns
	Fields     SourceFields `json:"fields" yaml:"fields"`
	LogColumns []ColumnSpec `json:"logColumns" yaml:"log_columns"`
}

// IndexPatterns splits LogIndices into trimmed, non-empty glob patterns.
func (s *SourceConfiguration) IndexPatterns() []string {
	var patterns []string
	for _, p := range strings.Split(s.LogIndices, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// DefaultSourceConfiguration is used when no source file is configured.
func DefaultSourceConfiguration() SourceConfiguration {
	return SourceConfiguration{
		ID:         "default",
		Name:       "Default",
		LogIndices: "logs-*",
		Fields: SourceFields{
			Timestamp:  "@timestamp",
			Tiebreaker: "_doc",
			Message:    []string{"message", "@message"},
		},
		LogColumns: []ColumnSpec{
			NewTimestampColumn("5e7f964a-be8a-40d8-88d2-fbcfbdca0e2f"),
			NewFieldColumn("eb9777a8-fcd3-420e-ba7d-172fff6da7a2", "event.dataset"),
			NewMessageColumn("b645d6da-824b-4723-9a2a-e8cece1645c0"),
		},
	}
}
