package predicate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/parcelmap/listing-search/internal/core/listing"
)

// Record is anything a predicate can be evaluated against in memory.
// *listing.Listing implements it.
type Record interface {
	Value(f listing.Field) (any, bool)
}

// Predicate is a storage-level condition. The same value renders to SQL for
// the Postgres stores and evaluates in memory for the in-process store, so a
// compiled filter set means the same thing everywhere.
type Predicate interface {
	SQL(b *Builder) string
	Match(r Record) bool
	Columns() []Column
}

// Column binds a logical field to a physical SQL expression.
type Column struct {
	Field  listing.Field
	Expr   string
	Tables []string
	Unit   Unit
	// Integer marks an INTEGER column; fractional constants must not be
	// bound to it as-is.
	Integer bool
}

// Builder accumulates positional arguments while a statement is rendered.
type Builder struct {
	args []any
}

// Arg registers v and returns its placeholder.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Args returns the arguments registered so far, in placeholder order.
func (b *Builder) Args() []any {
	return b.args
}

// Render is a convenience for rendering a single predicate.
func Render(p Predicate) (string, []any) {
	var b Builder
	sql := p.SQL(&b)
	return sql, b.Args()
}

// Tables returns the distinct sub-tables a predicate reads, sorted.
func Tables(p Predicate) []string {
	seen := make(map[string]struct{})
	for _, col := range p.Columns() {
		for _, t := range col.Tables {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// And matches when every child matches. An empty And matches everything.
type And []Predicate

func (a And) SQL(b *Builder) string {
	if len(a) == 0 {
		return "TRUE"
	}
	if len(a) == 1 {
		return a[0].SQL(b)
	}
	parts := make([]string, len(a))
	for i, p := range a {
		parts[i] = p.SQL(b)
	}
	return "(" + strings.Join(parts, " AND ") + ")"
}

func (a And) Match(r Record) bool {
	for _, p := range a {
		if !p.Match(r) {
			return false
		}
	}
	return true
}

func (a And) Columns() []Column {
	var cols []Column
	for _, p := range a {
		cols = append(cols, p.Columns()...)
	}
	return cols
}

// Or matches when any child matches. An empty Or matches nothing, so callers
// never build one for an absent filter.
type Or []Predicate

func (o Or) SQL(b *Builder) string {
	if len(o) == 0 {
		return "FALSE"
	}
	if len(o) == 1 {
		return o[0].SQL(b)
	}
	parts := make([]string, len(o))
	for i, p := range o {
		parts[i] = p.SQL(b)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (o Or) Match(r Record) bool {
	for _, p := range o {
		if p.Match(r) {
			return true
		}
	}
	return false
}

func (o Or) Columns() []Column {
	var cols []Column
	for _, p := range o {
		cols = append(cols, p.Columns()...)
	}
	return cols
}

// True matches every row.
type True struct{}

func (True) SQL(*Builder) string { return "TRUE" }
func (True) Match(Record) bool { return true }
func (True) Columns() []Column { return nil }
