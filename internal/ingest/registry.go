package ingest

import (
	"fmt"
	"strings"
)

// Registry holds all available parsers and provides auto-detection.
type Registry struct {
	parsers []Parser
}

func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			NewNDJSONParser(),
			NewTextParser(),
		},
	}
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// FindParser detects the correct parser for a file.
func (r *Registry) FindParser(filePath string) (Parser, error) {
	var lastErr error
	for _, p := range r.parsers {
		can, err := p.CanParse(filePath)
		if err != nil {
			lastErr = err
			continue
		}
		if can {
			return p, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("no suitable parser found for file %s: %w", filePath, lastErr)
	}
	return nil, fmt.Errorf("no suitable parser found for file: %s", filePath)
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}

// Names lists registered parsers in detection order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		names[i] = p.Name()
	}
	return names
}
