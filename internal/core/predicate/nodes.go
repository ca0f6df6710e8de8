package predicate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

// Cmp compares a column against a constant. Value is a decimal.Decimal,
// string or bool.
type Cmp struct {
	Col   Column
	Op    Op
	Value any
}

func (c Cmp) SQL(b *Builder) string {
	if d, ok := c.Value.(decimal.Decimal); ok && c.Col.Integer && !d.IsInteger() {
		return fmt.Sprintf("%s::numeric %s %s", c.Col.Expr, c.Op, b.Arg(c.Value))
	}
	return fmt.Sprintf("%s %s %s", c.Col.Expr, c.Op, b.Arg(c.Value))
}

func (c Cmp) Match(r Record) bool {
	got, ok := r.Value(c.Col.Field)
	if !ok {
		return false
	}
	switch want := c.Value.(type) {
	case decimal.Decimal:
		d, ok := toDecimal(got)
		if !ok {
			return false
		}
		if c.Col.Unit != UnitNone {
			d = Convert(d, UnitAcres, c.Col.Unit)
		}
		switch c.Op {
		case OpGte:
			return d.GreaterThanOrEqual(want)
		case OpLte:
			return d.LessThanOrEqual(want)
		default:
			return d.Equal(want)
		}
	case string:
		s, ok := got.(string)
		if !ok {
			return false
		}
		switch c.Op {
		case OpGte:
			return s >= want
		case OpLte:
			return s <= want
		default:
			return s == want
		}
	case bool:
		v, ok := got.(bool)
		return ok && c.Op == OpEq && v == want
	}
	return false
}

func (c Cmp) Columns() []Column { return []Column{c.Col} }

// In is set membership over string values.
type In struct {
	Col    Column
	Values []string
}

func (in In) SQL(b *Builder) string {
	return fmt.Sprintf("%s = ANY(%s)", in.Col.Expr, b.Arg(pq.Array(in.Values)))
}

func (in In) Match(r Record) bool {
	got, ok := r.Value(in.Col.Field)
	if !ok {
		return false
	}
	s, ok := got.(string)
	if !ok {
		return false
	}
	for _, v := range in.Values {
		if s == v {
			return true
		}
	}
	return false
}

func (in In) Columns() []Column { return []Column{in.Col} }

// ContainsText is a case-insensitive partial match. Needle must already be
// lower-cased.
type ContainsText struct {
	Col    Column
	Needle string
}

func (c ContainsText) SQL(b *Builder) string {
	return fmt.Sprintf("LOWER(%s) LIKE %s", c.Col.Expr, b.Arg("%"+escapeLike(c.Needle)+"%"))
}

func (c ContainsText) Match(r Record) bool {
	got, ok := r.Value(c.Col.Field)
	if !ok {
		return false
	}
	s, ok := got.(string)
	return ok && strings.Contains(strings.ToLower(s), c.Needle)
}

func (c ContainsText) Columns() []Column { return []Column{c.Col} }

// JSONArrayText matches one element of a multi-value column that is stored as
// JSON text rather than a real array type. It accepts both the exact
// single-element serialization and a quoted-substring hit inside a longer array.
type JSONArrayText struct {
	Col   Column
	Value string
}

func (j JSONArrayText) exact() string {
	b, _ := json.Marshal([]string{j.Value})
	return string(b)
}

func (j JSONArrayText) quoted() string {
	b, _ := json.Marshal(j.Value)
	return string(b)
}

func (j JSONArrayText) SQL(b *Builder) string {
	return fmt.Sprintf("(%s = %s OR %s LIKE %s)",
		j.Col.Expr, b.Arg(j.exact()),
		j.Col.Expr, b.Arg("%"+escapeLike(j.quoted())+"%"))
}

func (j JSONArrayText) Match(r Record) bool {
	got, ok := r.Value(j.Col.Field)
	if !ok {
		return false
	}
	s, ok := got.(string)
	if !ok {
		return false
	}
	return s == j.exact() || strings.Contains(s, j.quoted())
}

func (j JSONArrayText) Columns() []Column { return []Column{j.Col} }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Zero, false
}
