package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

// mapping describes how one institution reads a source/target cell pair.
type mapping struct {
	// marker is the generic-course suffix, "XX" unless the institution
	// numbers placeholders differently.
	marker    string
	sentinels parse.Sentinels
}

// resolve parses both sides of a row. Every input alternative becomes its own
// equivalency sharing the output. When the output itself has alternatives the
// first one is used. A sentinel in the target cell takes precedence over the
// classifier.
func (m mapping) resolve(inCourse, inCredits, outCourse, outCredits string) ([]model.CourseEquivalency, error) {
	inputs, err := parse.ParseCourseList(inCourse, inCredits)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	if typ, ok := m.sentinels.Match(outCourse); ok {
		return equivalencies(inputs, parse.SentinelOutput(typ), typ)
	}
	outputs, err := parse.ParseCourseList(outCourse, outCredits)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	typ, err := m.classify(outputs[0])
	if err != nil {
		return nil, err
	}
	return equivalencies(inputs, outputs[0], typ)
}

func (m mapping) classify(output []model.Course) (model.EquivType, error) {
	marker := m.marker
	if marker == "" {
		marker = parse.DefaultGenericMarker
	}
	return parse.DetermineEquivType(output, marker)
}

// reclassify recomputes the type after a supplement row changed the output.
// Sentinel types are left alone.
func (m mapping) reclassify(eq *model.CourseEquivalency) error {
	if eq.Type == model.None || eq.Type == model.Special || len(eq.Output) == 0 {
		return nil
	}
	typ, err := m.classify(eq.Output)
	if err != nil {
		return err
	}
	eq.Type = typ
	return nil
}

// dropPlaceholder clears a NONE or SPECIAL output before courses are granted
// to eq, so reclassify derives the type from those courses.
func dropPlaceholder(eq *model.CourseEquivalency) {
	if eq.Type == model.None || eq.Type == model.Special {
		eq.Output = nil
		eq.Type = model.Direct
	}
}

func equivalencies(inputs [][]model.Course, output []model.Course, typ model.EquivType) ([]model.CourseEquivalency, error) {
	out := make([]model.CourseEquivalency, 0, len(inputs))
	for _, in := range inputs {
		eq, err := model.NewEquivalency(in, slices.Clone(output), typ)
		if err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, nil
}

// sentinelRe builds an anchored, case-sensitive pattern for an upper-cased cell.
func sentinelRe(alternatives ...string) *regexp.Regexp {
	quoted := make([]string, len(alternatives))
	for i, a := range alternatives {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return regexp.MustCompile(`^(?:` + strings.Join(quoted, "|") + `)\b`)
}

var creditRe = regexp.MustCompile(`^[0-9]+(?:\s*-\s*[0-9]+)?(?:\s*,\s*[0-9]+(?:\s*-\s*[0-9]+)?)*$`)

// isCredit reports whether a cell looks like a credit value such as "3" or "1-5".
func isCredit(cell string) bool {
	return creditRe.MatchString(cell)
}

// firstCredit returns the first credit-like cell in cells[from:to], or "".
func firstCredit(cells []string, from, to int) string {
	if to > len(cells) {
		to = len(cells)
	}
	for i := max(from, 0); i < to; i++ {
		if isCredit(cells[i]) {
			return strings.ReplaceAll(cells[i], " ", "")
		}
	}
	return ""
}
