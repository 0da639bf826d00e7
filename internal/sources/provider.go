// Package sources resolves log source configurations by id.
package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a sources file.
type File struct {
	Sources []models.SourceConfiguration `yaml:"sources"`
}

// Provider is an in-memory set of source configurations.
type Provider struct {
	mu      sync.RWMutex
	sources map[string]models.SourceConfiguration
}

// NewProvider validates configs and indexes them by id.
func NewProvider(configs ...models.SourceConfiguration) (*Provider, error) {
	p := &Provider{sources: make(map[string]models.SourceConfiguration, len(configs))}
	for _, c := range configs {
		if err := validate(c); err != nil {
			return nil, err
		}
		if _, dup := p.sources[c.ID]; dup {
			return nil, fmt.Errorf("duplicate source id %q", c.ID)
		}
		p.sources[c.ID] = c
	}
	return p, nil
}

// NewDefaultProvider serves only the built-in default source.
func NewDefaultProvider() *Provider {
	p, _ := NewProvider(models.DefaultSourceConfiguration())
	return p
}

// LoadFile reads a YAML sources file.
func LoadFile(path string) (*Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// Load reads YAML sources from r.
func Load(r io.Reader) (*Provider, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}
	return NewProvider(file.Sources...)
}

func validate(c models.SourceConfiguration) error {
	if c.ID == "" {
		return fmt.Errorf("source without id")
	}
	if len(c.IndexPatterns()) == 0 {
		return fmt.Errorf("source %q: no log indices", c.ID)
	}
	if len(c.LogColumns) == 0 {
		return fmt.Errorf("source %q: no log columns", c.ID)
	}
	return nil
}

// GetSourceConfiguration returns a copy of the source with id.
func (p *Provider) GetSourceConfiguration(ctx context.Context, sourceID string) (*models.SourceConfiguration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, ok := p.sources[sourceID]
	if !ok {
		return nil, logerr.SourceConfigurationMissing("get source configuration", sourceID)
	}
	return &c, nil
}

// Put adds or replaces a source.
func (p *Provider) Put(c models.SourceConfiguration) error {
	if err := validate(c); err != nil {
		return err
	}
	p.mu.Lock()
	p.sources[c.ID] = c
	p.mu.Unlock()
	return nil
}

// List returns all sources sorted by id.
func (p *Provider) List() []models.SourceConfiguration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]models.SourceConfiguration, 0, len(p.sources))
	for _, c := range p.sources {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
