package filter

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Range is a numeric interval. An invalid bound is absent and does not constrain.
type Range struct {
	Min decimal.NullDecimal
	Max decimal.NullDecimal
}

// Bounded reports whether at least one side is set.
func (r Range) Bounded() bool {
	return r.Min.Valid || r.Max.Valid
}

// NumberChoice is a bedroom/bathroom style selection: a set of exact counts
// and/or an open lower bound ("4+").
type NumberChoice struct {
	Exact []decimal.Decimal
	Range Range
}

var numberCleaner = strings.NewReplacer(",", "", "$", "", " ", "")

// AsDecimal coerces JSON-ish numeric values. Strings may carry thousands
// separators or a leading dollar sign.
func AsDecimal(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat(float64(val)), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int32:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case decimal.Decimal:
		return val, true
	case string:
		s := numberCleaner.Replace(strings.TrimSpace(val))
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}

// AsRange reads a {min,max} object. A present bound that is not numeric makes
// the whole value malformed; both bounds absent means not applied.
func AsRange(v any) (Range, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Range{}, false
	}
	var r Range
	for _, side := range []string{"min", "max"} {
		raw, present := m[side]
		if !present || IsEmpty(raw) {
			continue
		}
		d, ok := AsDecimal(raw)
		if !ok {
			return Range{}, false
		}
		if side == "min" {
			r.Min = decimal.NewNullDecimal(d)
		} else {
			r.Max = decimal.NewNullDecimal(d)
		}
	}
	return r, r.Bounded()
}

// AsNumberChoice accepts 3, "3", "4+", [2,3], ["4+"] and {min,max}.
func AsNumberChoice(v any) (NumberChoice, bool) {
	if _, isMap := v.(map[string]any); isMap {
		r, ok := AsRange(v)
		return NumberChoice{Range: r}, ok
	}

	var items []any
	switch val := v.(type) {
	case []any:
		items = val
	default:
		items = []any{val}
	}

	var out NumberChoice
	for _, item := range items {
		if s, ok := item.(string); ok && strings.HasSuffix(strings.TrimSpace(s), "+") {
			d, ok := AsDecimal(strings.TrimSuffix(strings.TrimSpace(s), "+"))
			if !ok {
				return NumberChoice{}, false
			}
			if !out.Range.Min.Valid || d.LessThan(out.Range.Min.Decimal) {
				out.Range.Min = decimal.NewNullDecimal(d)
			}
			continue
		}
		if IsEmpty(item) {
			continue
		}
		d, ok := AsDecimal(item)
		if !ok {
			return NumberChoice{}, false
		}
		out.Exact = append(out.Exact, d)
	}
	return out, len(out.Exact) > 0 || out.Range.Bounded()
}

// AsStrings accepts a string or an array of strings/numbers. Blank items are dropped.
func AsStrings(v any) ([]string, bool) {
	var items []any
	switch val := v.(type) {
	case string:
		items = []any{val}
	case []string:
		for _, s := range val {
			items = append(items, s)
		}
	case []any:
		items = val
	case json.Number:
		items = []any{val}
	default:
		return nil, false
	}

	var out []string
	for _, item := range items {
		switch s := item.(type) {
		case string:
			if t := strings.TrimSpace(s); t != "" {
				out = append(out, t)
			}
		case json.Number:
			out = append(out, s.String())
		case nil:
		default:
			return nil, false
		}
	}
	return out, len(out) > 0
}

// AsBool accepts booleans, 0/1 and the usual truthy strings.
func AsBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		return err == nil && !d.IsZero(), err == nil
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes", "y", "on":
			return true, true
		case "false", "0", "no", "n", "off", "":
			return false, true
		}
	}
	return false, false
}
