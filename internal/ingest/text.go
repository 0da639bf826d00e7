package ingest

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/logview/backend/internal/models"
)

// textLineRegex matches "<RFC3339> [LEVEL] message" with the level optional.
var textLineRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\S+)\s+(?:\[([A-Za-z]+)\]\s+)?(.*)$`)

// TextParser reads plain log lines that start with an RFC3339 timestamp.
type TextParser struct{}

func NewTextParser() *TextParser { return &TextParser{} }

func (p *TextParser) Name() string { return "text" }

func (p *TextParser) CanParse(filePath string) (bool, error) {
	line, err := firstLine(filePath)
	if err != nil {
		return false, err
	}
	_, ok := parseTextLine(string(line))
	return ok, nil
}

func (p *TextParser) Parse(r io.Reader, emit EmitFunc) ([]models.IngestError, error) {
	var errs lineErrors
	scanner := newLineScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, ok := parseTextLine(line)
		if !ok {
			errs.add(lineNum, line, "line does not start with an RFC3339 timestamp")
			continue
		}
		if err := emit(rec); err != nil {
			return errs, err
		}
	}
	return errs, scanner.Err()
}

func parseTextLine(line string) (Record, bool) {
	m := textLineRegex.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, m[1])
	if err != nil {
		return Record{}, false
	}

	source := map[string]any{
		"@timestamp": m[1],
		"message":    m[3],
	}
	if m[2] != "" {
		source["log"] = map[string]any{"level": strings.ToUpper(m[2])}
	}
	return Record{Timestamp: ts.UnixMilli(), Source: source}, true
}
