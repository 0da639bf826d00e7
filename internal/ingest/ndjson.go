package ingest

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/logview/backend/internal/models"
)

// DefaultTimestampField is where NDJSON documents keep their time.
const DefaultTimestampField = "@timestamp"

// NDJSONParser reads one JSON object per line.
type NDJSONParser struct {
	TimestampField string
}

func NewNDJSONParser() *NDJSONParser {
	return &NDJSONParser{TimestampField: DefaultTimestampField}
}

func (p *NDJSONParser) Name() string { return "ndjson" }

// CanParse accepts .ndjson/.jsonl/.json files, and otherwise sniffs the first
// non-empty line for a JSON object.
func (p *NDJSONParser) CanParse(filePath string) (bool, error) {
	switch strings.ToLower(filepath.Ext(trimCompressionExt(filePath))) {
	case ".ndjson", ".jsonl", ".json":
		return true, nil
	}

	line, err := firstLine(filePath)
	if err != nil {
		return false, err
	}
	line = bytes.TrimSpace(line)
	return len(line) > 0 && line[0] == '{' && json.Valid(line), nil
}

func (p *NDJSONParser) Parse(r io.Reader, emit EmitFunc) ([]models.IngestError, error) {
	field := p.TimestampField
	if field == "" {
		field = DefaultTimestampField
	}

	var errs lineErrors
	scanner := newLineScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var source map[string]any
		if err := json.Unmarshal(line, &source); err != nil {
			errs.add(lineNum, string(line), "invalid JSON: "+err.Error())
			continue
		}
		ts, err := ParseTimestamp(models.FlattenFields(source)[field])
		if err != nil {
			errs.add(lineNum, string(line), err.Error())
			continue
		}
		if err := emit(Record{Timestamp: ts, Source: source}); err != nil {
			return errs, err
		}
	}
	return errs, scanner.Err()
}
