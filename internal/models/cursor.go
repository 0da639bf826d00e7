package models

import (
	"encoding/json"
	"fmt"
)

// Cursor is a directional pagination marker. Before pages backward from Key
// (or from the end of the window when Key is nil, "last"); After pages forward
// from Key (or from the start of the window when Key is nil, "first").
type Cursor struct {
	Before bool
	Key    *TimeKey
}

// CursorBefore pages backward from key.
func CursorBefore(key TimeKey) *Cursor { return &Cursor{Before: true, Key: &key} }

// CursorAfter pages forward from key.
func CursorAfter(key TimeKey) *Cursor { return &Cursor{Key: &key} }

// CursorLast pages backward from the end of the window.
func CursorLast() *Cursor { return &Cursor{Before: true} }

// CursorFirst pages forward from the start of the window.
func CursorFirst() *Cursor { return &Cursor{} }

// IsEdge reports whether the cursor is "first" or "last" rather than a key.
func (c *Cursor) IsEdge() bool {
	return c == nil || c.Key == nil
}

type cursorJSON struct {
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// MarshalJSON encodes {"before": key|"last"} or {"after": key|"first"}.
func (c Cursor) MarshalJSON() ([]byte, error) {
	var value any
	switch {
	case c.Key != nil:
		value = c.Key
	case c.Before:
		value = "last"
	default:
		value = "first"
	}
	if c.Before {
		return json.Marshal(map[string]any{"before": value})
	}
	return json.Marshal(map[string]any{"after": value})
}

// UnmarshalJSON accepts the shapes produced by MarshalJSON.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	var raw cursorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch {
	case len(raw.Before) > 0 && len(raw.After) > 0:
		return fmt.Errorf("cursor must have exactly one of before or after")
	case len(raw.Before) > 0:
		key, err := decodeCursorKey(raw.Before, "last")
		if err != nil {
			return err
		}
		*c = Cursor{Before: true, Key: key}
	case len(raw.After) > 0:
		key, err := decodeCursorKey(raw.After, "first")
		if err != nil {
			return err
		}
		*c = Cursor{Key: key}
	default:
		return fmt.Errorf("cursor must have one of before or after")
	}
	return nil
}

func decodeCursorKey(data json.RawMessage, edge string) (*TimeKey, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != edge {
			return nil, fmt.Errorf("invalid cursor value %q, expected %q or a time key", s, edge)
		}
		return nil, nil
	}

	var key TimeKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("invalid cursor key: %w", err)
	}
	return &key, nil
}
