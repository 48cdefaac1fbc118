package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/transferindex/internal/document"
	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

const (
	gtURL        = "https://oscar.gatech.edu/pls/bprod/wwtraneq.P_TranEq_Course"
	gtTable      = "table.datadisplaytable"
	gtHeaderRows = 2

	gtConnector  = 0
	gtInCourse   = 1
	gtInCredits  = 2
	gtOutCourse  = 3
	gtOutCredits = 4

	gtAnd = "AND"
)

var gtInstitution = model.Institution{
	Acronym:               "GT",
	FullName:              "Georgia Institute of Technology",
	Location:              "Atlanta, GA",
	ParseSuccessThreshold: 0.9,
}

var gtMapping = mapping{
	sentinels: parse.Sentinels{
		{Pattern: sentinelRe("NOGT"), Type: model.None},
		{Pattern: sentinelRe("DEPT"), Type: model.Special},
	},
}

var errOrphanContinuation = errors.New("continuation row without a preceding equivalency")

type gt struct{}

func (gt) Institution() model.Institution { return gtInstitution }

func (gt) Source() fetch.Source {
	return fetch.Source{
		URL: gtURL,
		Form: url.Values{
			"state_in":  {"VA"},
			"sbgi_in":   {"004096"},
			"levl_in":   {"US"},
			"term_in":   {"202408"},
			"school_in": {"Northern Virginia Community College"},
		},
		Accept: []string{"text/html"},
	}
}

func (gt) ParseBody(body []byte) (*goquery.Document, error) { return htmlBody(body) }

// ParseEquivalencies reads one equivalency per row. A row whose connector
// column says "And" continues the row above: its source course joins the
// previous input and its target course joins the previous output, with
// credits summed when the same target course appears twice.
func (gt) ParseEquivalencies(doc *goquery.Document) (Result, error) {
	rows, err := tableRows(doc, gtTable, gtHeaderRows)
	if err != nil {
		return Result{}, err
	}
	var res Result
	var last []int
	for i, cells := range rows {
		if blank(cells...) {
			skip(gtInstitution.Acronym, i, "blank")
			continue
		}
		in := document.Cell(cells, gtInCourse)
		inCredits := document.Cell(cells, gtInCredits)
		out := document.Cell(cells, gtOutCourse)
		outCredits := document.Cell(cells, gtOutCredits)
		raw := in + " => " + out

		if strings.EqualFold(document.Cell(cells, gtConnector), gtAnd) {
			if len(last) == 0 {
				res.fail(gtInstitution.Acronym, i, raw, errOrphanContinuation)
				continue
			}
			if err := gtMerge(&res, last, in, inCredits, out, outCredits); err != nil {
				res.fail(gtInstitution.Acronym, i, raw, err)
			}
			continue
		}

		eqs, err := gtMapping.resolve(in, inCredits, out, outCredits)
		if err != nil {
			last = nil
			res.fail(gtInstitution.Acronym, i, raw, err)
			continue
		}
		last = last[:0]
		for j := range eqs {
			last = append(last, len(res.Equivalencies)+j)
		}
		res.add(eqs...)
	}
	return res, nil
}

// gtMerge applies a continuation row to the equivalencies at idx. Nothing is
// changed when either side fails to parse.
func gtMerge(res *Result, idx []int, in, inCredits, out, outCredits string) error {
	var inputs, outputs []model.Course
	var err error
	if in != "" {
		if inputs, err = parse.ParseCourses(in, inCredits); err != nil {
			return fmt.Errorf("input: %w", err)
		}
	}
	if _, sentinel := gtMapping.sentinels.Match(out); out != "" && !sentinel {
		if outputs, err = parse.ParseCourses(out, outCredits); err != nil {
			return fmt.Errorf("output: %w", err)
		}
	}
	if len(inputs) == 0 && len(outputs) == 0 {
		return fmt.Errorf("%w: empty continuation", parse.ErrNoCourse)
	}
	for _, k := range idx {
		eq := &res.Equivalencies[k]
		eq.Input = append(eq.Input, inputs...)
		if len(outputs) > 0 {
			dropPlaceholder(eq)
		}
		for _, c := range outputs {
			eq.Output = mergeCourse(eq.Output, c)
		}
		if err := gtMapping.reclassify(eq); err != nil {
			return err
		}
	}
	return nil
}

// mergeCourse adds c to courses, summing credits into an existing entry for
// the same course.
func mergeCourse(courses []model.Course, c model.Course) []model.Course {
	for i := range courses {
		if courses[i].Key() == c.Key() {
			courses[i].Credits = courses[i].Credits.Add(c.Credits)
			return courses
		}
	}
	return append(courses, c)
}
