package docstore

import (
	"strings"

	"github.com/logview/backend/internal/models"
)

// whereBuilder accumulates SQL predicates over the documents table (alias d)
// and their positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}

// indices restricts to documents whose index matches a source pattern.
func (w *whereBuilder) indices(source *models.SourceConfiguration) {
	if source == nil {
		return
	}
	patterns := source.IndexPatterns()
	if len(patterns) == 0 {
		return
	}
	parts := make([]string, len(patterns))
	args := make([]any, len(patterns))
	for i, p := range patterns {
		parts[i] = "d.idx GLOB ?"
		args[i] = p
	}
	w.add("("+strings.Join(parts, " OR ")+")", args...)
}

func (w *whereBuilder) window(win *models.Window) {
	if win != nil {
		w.add("d.ts BETWEEN ? AND ?", win.Start, win.End)
	}
}

// after keeps keys strictly after (or from, when inclusive) k.
func (w *whereBuilder) after(k models.TimeKey, inclusive bool) {
	op := ">"
	if inclusive {
		op = ">="
	}
	w.add("(d.ts > ? OR (d.ts = ? AND d.seq "+op+" ?))", k.Time, k.Time, k.Tiebreaker)
}

// before keeps keys strictly before (or up to, when inclusive) k.
func (w *whereBuilder) before(k models.TimeKey, inclusive bool) {
	op := "<"
	if inclusive {
		op = "<="
	}
	w.add("(d.ts < ? OR (d.ts = ? AND d.seq "+op+" ?))", k.Time, k.Time, k.Tiebreaker)
}

func (w *whereBuilder) query(q *models.Query) {
	if q == nil {
		return
	}
	clause, args := querySQL(q)
	w.add(clause, args...)
}

// querySQL translates a query into an EXISTS predicate over the fields table.
func querySQL(q *models.Query) (string, []any) {
	switch {
	case q.Term != nil:
		return "EXISTS (SELECT 1 FROM fields f WHERE f.seq = d.seq AND f.name = ? AND f.value = ?)",
			[]any{q.Term.Field, q.Term.Value}
	case q.Phrase != nil:
		var args []any
		clause := "EXISTS (SELECT 1 FROM fields f WHERE f.seq = d.seq"
		if n := len(q.Phrase.Fields); n > 0 {
			clause += " AND f.name IN (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
			for _, name := range q.Phrase.Fields {
				args = append(args, name)
			}
		}
		clause += ` AND f.value ILIKE ? ESCAPE '\')`
		args = append(args, "%"+escapeLike(q.Phrase.Query)+"%")
		return clause, args
	case q.Bool != nil && len(q.Bool.Must) > 0:
		parts := make([]string, 0, len(q.Bool.Must))
		var args []any
		for i := range q.Bool.Must {
			clause, a := querySQL(&q.Bool.Must[i])
			parts = append(parts, clause)
			args = append(args, a...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", args
	default:
		return "TRUE", nil
	}
}
