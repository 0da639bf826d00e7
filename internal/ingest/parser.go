// Package ingest loads log files into a document store.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/logview/backend/internal/models"
)

// Record is one parsed log document.
type Record struct {
	Timestamp int64
	Source    map[string]any
}

// EmitFunc receives parsed records. Returning an error stops parsing.
type EmitFunc func(Record) error

// Parser defines the interface for log file parsers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser can handle the given file.
	CanParse(filePath string) (bool, error)
	// Parse reads r and emits every record. Lines that cannot be parsed are
	// returned as errors and skipped.
	Parse(r io.Reader, emit EmitFunc) ([]models.IngestError, error)
}

// maxLineErrors caps the per-file error list.
const maxLineErrors = 100

// maxLineSize is the longest line the scanners accept.
const maxLineSize = 4 * 1024 * 1024

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// lineErrors collects capped line errors.
type lineErrors []models.IngestError

func (e *lineErrors) add(line int, content, reason string) {
	if len(*e) >= maxLineErrors {
		return
	}
	if len(content) > 200 {
		content = content[:200]
	}
	*e = append(*e, models.IngestError{Line: line, Content: content, Reason: reason})
}

// ParseTimestamp accepts RFC3339 strings (with or without fractional
// seconds), numeric strings and JSON numbers holding epoch milliseconds.
func ParseTimestamp(v any) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		s := strings.TrimSpace(t)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ms, nil
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		return ts.UnixMilli(), nil
	case nil:
		return 0, fmt.Errorf("missing timestamp")
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
