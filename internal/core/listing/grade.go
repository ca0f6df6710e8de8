package listing

import "strings"

// Grade is a letter school-quality grade, A+ best and F worst.
type Grade string

var gradeRanks = map[Grade]int{
	"A+": 12, "A": 11, "A-": 10,
	"B+": 9, "B": 8, "B-": 7,
	"C+": 6, "C": 5, "C-": 4,
	"D+": 3, "D": 2, "D-": 1,
	"F": 0,
}

// ParseGrade normalizes s ("b+", " A ") into a Grade.
func ParseGrade(s string) (Grade, bool) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := gradeRanks[g]
	return g, ok
}

// Rank orders grades; unknown grades rank below F.
func (g Grade) Rank() int {
	if r, ok := gradeRanks[g]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether g is graded and no worse than min.
func (g Grade) AtLeast(min Grade) bool {
	return g != "" && g.Rank() >= min.Rank()
}
