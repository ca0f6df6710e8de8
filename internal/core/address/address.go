// Package address normalizes free-text street input and expands it into the
// spelling variants stored addresses are likely to use.
package address

import (
	"strings"
	"unicode"
)

// suffixes pairs the long and short forms of common street suffixes.
var suffixes = [][2]string{
	{"street", "st"},
	{"avenue", "ave"},
	{"boulevard", "blvd"},
	{"drive", "dr"},
	{"road", "rd"},
	{"lane", "ln"},
	{"court", "ct"},
	{"circle", "cir"},
	{"place", "pl"},
	{"terrace", "ter"},
	{"parkway", "pkwy"},
	{"highway", "hwy"},
	{"trail", "trl"},
	{"way", "wy"},
	{"square", "sq"},
	{"crossing", "xing"},
	{"cove", "cv"},
	{"point", "pt"},
	{"ridge", "rdg"},
	{"hollow", "holw"},
	{"loop", "lp"},
	{"expressway", "expy"},
}

var directionals = [][2]string{
	{"north", "n"},
	{"south", "s"},
	{"east", "e"},
	{"west", "w"},
	{"northeast", "ne"},
	{"northwest", "nw"},
	{"southeast", "se"},
	{"southwest", "sw"},
}

var (
	toShort = map[string]string{}
	toLong  = map[string]string{}
)

func init() {
	for _, table := range [][][2]string{suffixes, directionals} {
		for _, pair := range table {
			toShort[pair[0]] = pair[1]
			toLong[pair[1]] = pair[0]
		}
	}
}

// Normalize lower-cases s, replaces punctuation with spaces and collapses runs
// of whitespace. "Main St." becomes "main st".
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '\'':
			return -1
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// Canonical spells every suffix and directional in its long form.
func Canonical(s string) string {
	return rewrite(Normalize(s), toLong)
}

// Abbreviated spells every suffix and directional in its short form.
func Abbreviated(s string) string {
	return rewrite(Normalize(s), toShort)
}

func rewrite(normalized string, table map[string]string) string {
	words := strings.Fields(normalized)
	for i, w := range words {
		if repl, ok := table[w]; ok {
			words[i] = repl
		}
	}
	return strings.Join(words, " ")
}

// Variants returns the lower-cased partial-match needles for a street
// fragment: the normalized input, the raw input, the long and short spellings,
// and one variant per swappable word. Duplicates are dropped; order is stable.
func Variants(input string) []string {
	normalized := Normalize(input)
	if normalized == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	add(normalized)
	add(strings.ToLower(strings.TrimSpace(input)))
	add(Canonical(input))
	add(Abbreviated(input))

	words := strings.Fields(normalized)
	for i, w := range words {
		var swap string
		if short, ok := toShort[w]; ok {
			swap = short
		} else if long, ok := toLong[w]; ok {
			swap = long
		} else {
			continue
		}
		variant := append([]string(nil), words...)
		variant[i] = swap
		add(strings.Join(variant, " "))
	}
	return out
}

// Parsed is a "number + street name" address lookup.
type Parsed struct {
	Number string
	Street string
}

// Parse splits "123 Main St" into its house number and street name. It
// reports false when the input does not start with a house number or has no
// street after it.
func Parse(input string) (Parsed, bool) {
	fields := strings.Fields(Normalize(input))
	if len(fields) < 2 {
		return Parsed{}, false
	}
	number := fields[0]
	if !startsWithDigit(number) {
		return Parsed{}, false
	}
	return Parsed{Number: number, Street: strings.Join(fields[1:], " ")}, true
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}
