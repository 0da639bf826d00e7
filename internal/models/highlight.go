package models

import (
	"strings"
	"unicode/utf8"
)

// ComputeHighlights returns, for every phrase in highlight, the fragments of
// the matching fields that contain the phrase. Fragments keep the original case.
func ComputeHighlights(fields Fields, highlight *Query) Highlights {
	out := Highlights{}
	for _, phrase := range highlight.Phrases() {
		if phrase.Query == "" {
			continue
		}
		for _, name := range phrase.MatchedFields(fields) {
			out[name] = append(out[name], fragments(fields[name], phrase.Query)...)
		}
	}
	return out
}

func fragments(v any, phrase string) []string {
	if list, ok := v.([]any); ok {
		var out []string
		for _, item := range list {
			out = append(out, fragments(item, phrase)...)
		}
		return out
	}

	text := FieldString(v)
	var out []string
	for offset := 0; offset < len(text); {
		start, end := indexFold(text[offset:], phrase)
		if start < 0 {
			break
		}
		out = append(out, text[offset+start:offset+end])
		offset += end
	}
	return out
}

// indexFold returns the byte bounds in text of the first case-insensitive match
// of phrase, or -1, -1. Bounds always refer to text itself, since case folding
// may change the byte length of a rune.
func indexFold(text, phrase string) (int, int) {
	width := utf8.RuneCountInString(phrase)
	if width == 0 {
		return -1, -1
	}
	for start := 0; start < len(text); {
		end := start
		for n := 0; n < width && end < len(text); n++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		if strings.EqualFold(text[start:end], phrase) {
			return start, end
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		start += size
	}
	return -1, -1
}

func containsFold(text, phrase string) bool {
	start, _ := indexFold(text, phrase)
	return start >= 0
}
