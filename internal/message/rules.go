// Package message turns document fields into formatted message segments.
package message

import (
	"sort"
	"strings"

	"github.com/logview/backend/internal/models"
)

// Condition decides whether a rule applies to a document. All listed fields
// must exist and every Equals pair must match the field's string form.
type Condition struct {
	Exists []string          `json:"exists,omitempty" yaml:"exists,omitempty"`
	Equals map[string]string `json:"equals,omitempty" yaml:"equals,omitempty"`
}

// Pattern is one piece of a rule's output: a field reference or constant text.
type Pattern struct {
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Constant string `json:"constant,omitempty" yaml:"constant,omitempty"`
}

// Rule formats documents matching When using Format.
// Rules are evaluated in order; the first match wins.
type Rule struct {
	When   Condition `json:"when" yaml:"when"`
	Format []Pattern `json:"format" yaml:"format"`
}

// Formatter renders a document's fields and highlights into message segments.
type Formatter func(fields models.Fields, highlights models.Highlights) []models.MessageSegment

// Rules is a compiled, ordered rule list.
type Rules struct {
	rules          []Rule
	RequiredFields []string
}

// Compile prepares rules for formatting and collects the fields they read.
func Compile(rules []Rule) *Rules {
	seen := make(map[string]struct{})
	var required []string
	add := func(field string) {
		if field == "" {
			return
		}
		if _, ok := seen[field]; ok {
			return
		}
		seen[field] = struct{}{}
		required = append(required, field)
	}

	for _, r := range rules {
		for _, f := range r.When.Exists {
			add(f)
		}
		equals := make([]string, 0, len(r.When.Equals))
		for f := range r.When.Equals {
			equals = append(equals, f)
		}
		sort.Strings(equals)
		for _, f := range equals {
			add(f)
		}
		for _, p := range r.Format {
			add(p.Field)
		}
	}

	return &Rules{rules: rules, RequiredFields: required}
}

// Format renders with the first matching rule. Documents no rule matches get
// a single constant segment naming the fields that were looked for.
func (r *Rules) Format(fields models.Fields, highlights models.Highlights) []models.MessageSegment {
	for _, rule := range r.rules {
		if !rule.When.matches(fields) {
			continue
		}
		segments := make([]models.MessageSegment, 0, len(rule.Format))
		for _, p := range rule.Format {
			if p.Field == "" {
				segments = append(segments, models.MessageSegment{Constant: p.Constant})
				continue
			}
			hl := highlights[p.Field]
			if hl == nil {
				hl = []string{}
			}
			segments = append(segments, models.MessageSegment{
				Field:      p.Field,
				Value:      models.FieldString(fields[p.Field]),
				Highlights: hl,
			})
		}
		return segments
	}

	return []models.MessageSegment{{Constant: "failed to format message from " + strings.Join(r.RequiredFields, ", ")}}
}

func (c Condition) matches(fields models.Fields) bool {
	for _, f := range c.Exists {
		if v, ok := fields[f]; !ok || v == nil {
			return false
		}
	}
	for f, want := range c.Equals {
		v, ok := fields[f]
		if !ok || models.FieldString(v) != want {
			return false
		}
	}
	return true
}
