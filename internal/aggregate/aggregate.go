// Package aggregate collapses repeated equivalencies and totals a run.
package aggregate

import (
	"slices"
	"sort"
	"strings"

	"github.com/hyperifyio/transferindex/internal/model"
)

// Signature identifies an equivalency by its key, both course lists and its
// type. Credits are ignored: two rows that differ only in credits describe
// the same mapping.
func Signature(eq model.CourseEquivalency) string {
	var b strings.Builder
	b.WriteString(eq.KeyCourse.String())
	b.WriteString("|")
	writeCourses(&b, eq.Input)
	b.WriteString("|")
	writeCourses(&b, eq.Output)
	b.WriteString("|")
	b.WriteString(string(eq.Type))
	return b.String()
}

func writeCourses(b *strings.Builder, courses []model.Course) {
	for i, c := range courses {
		if i > 0 {
			b.WriteString("+")
		}
		b.WriteString(c.Key().String())
	}
}

// MergeAndNormalize drops repeated equivalencies, keeping the first
// occurrence and the original order. Publishers list some courses twice,
// once per catalog section.
func MergeAndNormalize(equivs []model.CourseEquivalency) []model.CourseEquivalency {
	seen := make(map[string]struct{}, len(equivs))
	out := make([]model.CourseEquivalency, 0, len(equivs))
	for _, e := range equivs {
		key := Signature(e)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Summary totals a run across institutions.
type Summary struct {
	Institutions  int                     `json:"institutions"`
	Equivalencies int                     `json:"equivalencies"`
	Unparseable   int                     `json:"unparseable"`
	ByType        map[model.EquivType]int `json:"byType"`
	// Suspect lists acronyms whose success rate fell below their threshold.
	Suspect []string `json:"suspect,omitempty"`
	// Failed lists acronyms whose extraction returned an error.
	Failed []string `json:"failed,omitempty"`
}

// Summarize totals the successful contexts. failed carries the acronyms of
// institutions that produced no context.
func Summarize(contexts []model.EquivalencyContext, failed []string) Summary {
	s := Summary{
		Institutions: len(contexts),
		ByType:       make(map[model.EquivType]int, len(model.EquivTypes)),
	}
	for _, t := range model.EquivTypes {
		s.ByType[t] = 0
	}
	for _, c := range contexts {
		s.Equivalencies += len(c.Equivalencies)
		s.Unparseable += c.Unparseable
		for t, n := range c.CountByType() {
			s.ByType[t] += n
		}
		if c.Suspect() {
			s.Suspect = append(s.Suspect, c.Institution.Acronym)
		}
	}
	sort.Strings(s.Suspect)
	if len(failed) > 0 {
		s.Failed = slices.Sorted(slices.Values(failed))
	}
	return s
}
