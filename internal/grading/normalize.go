// Package grading compares free-text answers against an exercise's accepted
// answers and keywords.
package grading

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes s for comparison. It decomposes to NFD, lowercases,
// removes combining marks from the decomposed form and collapses whitespace,
// so "Azúl " and "azul" compare equal. Normalize is idempotent.
func Normalize(s string) string {
	s = norm.NFD.String(s)
	s = strings.ToLower(s)
	s = stripMarks(s)
	return strings.Join(strings.Fields(s), " ")
}

// stripMarks removes nonspacing marks (Unicode category Mn).
func stripMarks(s string) string {
	out, _, err := transform.String(runes.Remove(runes.In(unicode.Mn)), s)
	if err != nil {
		return s
	}
	return out
}
