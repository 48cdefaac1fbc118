package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/hyperifyio/transferindex/internal/document"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

var (
	nvccSubjectRe = regexp.MustCompile(`^[A-Z]{2,4}$`)
	nvccNumberRe  = regexp.MustCompile(`^[0-9]{3}[A-Z]?$`)
	nvccCourseRe  = regexp.MustCompile(`^([A-Z]{2,4}) ?([0-9]{3}[A-Z]?)$`)
)

// targetCourse matches a course id at a four-year school, "BIOL 101" or
// "HIST 1XX". targetCourseList allows more ids after it, joined by &, +, /,
// a comma, "and" or "or".
const targetCourse = `[A-Z]{3,4} ?[0-9][0-9X]{2}[A-Z]?`

const targetCourseList = targetCourse + `(?:\s*(?:&|\+|,|/|(?i:and|or))\s*(?:[A-Z]{3,4} ?)?[0-9][0-9X]{2}[A-Z]?)*`

var errNoTarget = errors.New("no target course found in row")

func pdfBody(body []byte) ([][]string, error) {
	rows, err := document.PDFRows(body)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("no text rows")
	}
	return rows, nil
}

// nvccLead reads the source course a PDF row starts with, either split over
// two cells or in one, and returns the index of the first cell after it.
func nvccLead(cells []string) (course string, next int, ok bool) {
	if len(cells) >= 2 && nvccSubjectRe.MatchString(cells[0]) && nvccNumberRe.MatchString(cells[1]) {
		return cells[0] + " " + cells[1], 2, true
	}
	if len(cells) >= 1 {
		if m := nvccCourseRe.FindStringSubmatch(cells[0]); m != nil {
			return m[1] + " " + m[2], 1, true
		}
	}
	return "", 0, false
}

// match is a target found in cells[start:end].
type match struct {
	text       string
	start, end int
}

// rowAction is what a screen decides before a row is searched.
type rowAction int

const (
	rowExtract rowAction = iota
	rowSkip
	rowSpecial
)

// pdfTable is the row walk shared by the PDF institutions.
type pdfTable struct {
	inst    string
	mapping mapping
	// find locates the target course in cells[from:].
	find func(cells []string, from int) (match, bool)
	// screen may flag a row before it is searched. Optional.
	screen func(cells []string) rowAction
}

// locate tries find first and falls back to a sentinel cell.
func (t pdfTable) locate(cells []string, from int) (match, bool) {
	if m, ok := t.find(cells, from); ok {
		return m, true
	}
	for i := max(from, 0); i < len(cells); i++ {
		if _, ok := t.mapping.sentinels.Match(cells[i]); ok {
			return match{text: cells[i], start: i, end: i + 1}, true
		}
	}
	return match{}, false
}

// extract walks rows that start with a source course. When the target is
// not on the same line it is looked for on the following line, provided that
// line does not start a record of its own; such a line is consumed.
func (t pdfTable) extract(rows [][]string) Result {
	var res Result
	for i := 0; i < len(rows); i++ {
		cells := rows[i]
		in, next, ok := nvccLead(cells)
		if !ok {
			continue
		}
		raw := strings.Join(cells, " | ")

		action := rowExtract
		if t.screen != nil {
			action = t.screen(cells)
		}
		switch action {
		case rowSkip:
			skip(t.inst, i, "flagged unclear")
			continue
		case rowSpecial:
			eqs, err := specialRow(in, firstCredit(cells, next, len(cells)))
			if err != nil {
				res.fail(t.inst, i, raw, err)
				continue
			}
			res.add(eqs...)
			continue
		}

		m, found := t.locate(cells, next)
		tail := cells
		inCredits := ""
		if found {
			inCredits = firstCredit(cells, next, m.start)
		} else if i+1 < len(rows) {
			if _, _, lead := nvccLead(rows[i+1]); !lead {
				if m, found = t.locate(rows[i+1], 0); found {
					inCredits = firstCredit(cells, next, len(cells))
					tail = rows[i+1]
					raw += " // " + strings.Join(tail, " | ")
					i++
				}
			}
		}
		if !found {
			res.fail(t.inst, i, raw, errNoTarget)
			continue
		}
		outCredits := firstCredit(tail, m.end, len(tail))
		eqs, err := t.mapping.resolve(in, inCredits, m.text, outCredits)
		if err != nil {
			res.fail(t.inst, i, raw, err)
			continue
		}
		res.add(eqs...)
	}
	return res
}

// specialRow records a row flagged for department review as SPECIAL with
// no output.
func specialRow(in, inCredits string) ([]model.CourseEquivalency, error) {
	inputs, err := parse.ParseCourseList(in, inCredits)
	if err != nil {
		return nil, err
	}
	return equivalencies(inputs, []model.Course{}, model.Special)
}
