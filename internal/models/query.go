package models

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Query is a filter or highlight query. Exactly one of Term, Phrase or Bool is set.
type Query struct {
	Term   *TermQuery   `json:"term,omitempty" msgpack:"term,omitempty"`
	Phrase *PhraseQuery `json:"phrase,omitempty" msgpack:"phrase,omitempty"`
	Bool   *BoolQuery   `json:"bool,omitempty" msgpack:"bool,omitempty"`
}

// TermQuery matches documents whose field equals Value.
type TermQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// PhraseQuery matches documents where any of Fields contains Query,
// ignoring case. An empty Fields list means every field.
type PhraseQuery struct {
	Fields []string `json:"fields,omitempty"`
	Query  string   `json:"query"`
}

// BoolQuery matches documents that match every query in Must.
type BoolQuery struct {
	Must []Query `json:"must"`
}

// Term builds a term query.
func Term(field, value string) *Query {
	return &Query{Term: &TermQuery{Field: field, Value: value}}
}

// Phrase builds a phrase query over fields.
func Phrase(query string, fields []string) *Query {
	return &Query{Phrase: &PhraseQuery{Fields: fields, Query: query}}
}

// And combines queries with boolean AND, skipping nil ones. It returns nil when
// nothing is left and the query itself when only one is.
func And(queries ...*Query) *Query {
	var must []Query
	for _, q := range queries {
		if q != nil {
			must = append(must, *q)
		}
	}
	switch len(must) {
	case 0:
		return nil
	case 1:
		return &must[0]
	default:
		return &Query{Bool: &BoolQuery{Must: must}}
	}
}

// Matches evaluates the query against flattened fields. A nil query matches everything.
func (q *Query) Matches(fields Fields) bool {
	if q == nil {
		return true
	}
	switch {
	case q.Term != nil:
		return anyValue(fields[q.Term.Field], func(s string) bool { return s == q.Term.Value })
	case q.Phrase != nil:
		return len(q.Phrase.MatchedFields(fields)) > 0
	case q.Bool != nil:
		for i := range q.Bool.Must {
			if !q.Bool.Must[i].Matches(fields) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Phrases returns every phrase query contained in q, depth first.
func (q *Query) Phrases() []*PhraseQuery {
	if q == nil {
		return nil
	}
	switch {
	case q.Phrase != nil:
		return []*PhraseQuery{q.Phrase}
	case q.Bool != nil:
		var out []*PhraseQuery
		for i := range q.Bool.Must {
			out = append(out, q.Bool.Must[i].Phrases()...)
		}
		return out
	default:
		return nil
	}
}

// MatchedFields returns, sorted, the fields whose value contains the phrase.
func (p *PhraseQuery) MatchedFields(fields Fields) []string {
	var names []string
	check := func(name string) {
		if anyValue(fields[name], func(s string) bool { return containsFold(s, p.Query) }) {
			names = append(names, name)
		}
	}
	if len(p.Fields) == 0 {
		for name := range fields {
			check(name)
		}
	} else {
		for _, name := range p.Fields {
			if _, ok := fields[name]; ok {
				check(name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func anyValue(v any, pred func(string) bool) bool {
	if v == nil {
		return false
	}
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if anyValue(item, pred) {
				return true
			}
		}
		return false
	}
	return pred(FieldString(v))
}

// FieldString is the string form of a field value used for matching and storage.
func FieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// FlattenFields turns a nested document source into dot-path fields. Arrays
// are kept as values.
func FlattenFields(source map[string]any) Fields {
	out := make(Fields, len(source))
	flattenInto(out, "", source)
	return out
}

func flattenInto(out Fields, prefix string, source map[string]any) {
	for k, v := range source {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, name, nested)
			continue
		}
		out[name] = v
	}
}
