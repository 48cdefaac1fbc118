// Package parse holds the primitives shared by every institution extractor:
// whitespace cleanup, credit strings, course lists and classification.
package parse

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

func isBreakingSpace(r rune) bool {
	return r == '\r' || r == '\n' || r == ' ' || r == '\u00a0'
}

// NormalizeWhitespace replaces every run of carriage returns, line feeds,
// non-breaking spaces and spaces with a single space and trims the ends.
// Tabs and other characters are left alone.
func NormalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if isBreakingSpace(r) {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		b.WriteRune(r)
		inRun = false
	}
	return strings.Trim(b.String(), " ")
}

// CleanCell folds compatibility characters (full-width letters, ligatures,
// odd spaces) with NFKC before normalizing whitespace. Every cell read from a
// source document goes through here.
func CleanCell(s string) string {
	return NormalizeWhitespace(norm.NFKC.String(s))
}
