package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/transferindex/internal/document"
	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

const (
	uvaURL        = "https://admission.virginia.edu/transfer-credit/vccs-equivalencies"
	uvaTable      = "table.equivalencies"
	uvaHeaderRows = 1

	uvaInCourse   = 0
	uvaInCredits  = 1
	uvaOutCourse  = 2
	uvaOutCredits = 3
)

var uvaInstitution = model.Institution{
	Acronym:               "UVA",
	FullName:              "University of Virginia",
	Location:              "Charlottesville, VA",
	ParseSuccessThreshold: 0.9,
}

// UVA numbers its placeholder courses like "HIST 1T".
var uvaMapping = mapping{
	marker: "T",
	sentinels: parse.Sentinels{
		{Pattern: sentinelRe("NO CREDIT"), Type: model.None},
	},
}

type uvaRowType int

const (
	uvaNormal uvaRowType = iota
	uvaEmpty
	uvaInputSupplement
	uvaOutputSupplement
	uvaUnknown
)

func (t uvaRowType) String() string {
	switch t {
	case uvaNormal:
		return "normal"
	case uvaEmpty:
		return "empty"
	case uvaInputSupplement:
		return "input-supplement"
	case uvaOutputSupplement:
		return "output-supplement"
	}
	return "unknown"
}

// classifyUVARow decides what a row means from which of the four mapped
// cells are filled. Credit cells without any course are not a layout UVA
// publishes.
func classifyUVARow(cells []string) uvaRowType {
	in := document.Cell(cells, uvaInCourse) != ""
	out := document.Cell(cells, uvaOutCourse) != ""
	switch {
	case in && out:
		return uvaNormal
	case in:
		return uvaInputSupplement
	case out:
		return uvaOutputSupplement
	case blank(document.Cell(cells, uvaInCredits), document.Cell(cells, uvaOutCredits)):
		return uvaEmpty
	}
	return uvaUnknown
}

type uva struct{}

func (uva) Institution() model.Institution { return uvaInstitution }

func (uva) Source() fetch.Source {
	return fetch.Source{URL: uvaURL, Accept: []string{"text/html"}}
}

func (uva) ParseBody(body []byte) (*goquery.Document, error) { return htmlBody(body) }

// ParseEquivalencies reads the table where an equivalency may span several
// rows: supplement rows add a required source course or an extra granted
// course to the equivalency above them.
func (uva) ParseEquivalencies(doc *goquery.Document) (Result, error) {
	rows, err := tableRows(doc, uvaTable, uvaHeaderRows)
	if err != nil {
		return Result{}, err
	}
	var res Result
	// equivalencies built by the last normal row, one per input alternative;
	// empty when it failed or a blank row followed
	var prev []int
	for i, cells := range rows {
		in := document.Cell(cells, uvaInCourse)
		inCredits := document.Cell(cells, uvaInCredits)
		out := document.Cell(cells, uvaOutCourse)
		outCredits := document.Cell(cells, uvaOutCredits)
		raw := in + " => " + out

		switch kind := classifyUVARow(cells); kind {
		case uvaEmpty:
			prev = nil
			skip(uvaInstitution.Acronym, i, kind.String())
		case uvaUnknown:
			return Result{}, fmt.Errorf("%w: row %d %q", ErrUnknownRow, i, cells)
		case uvaNormal:
			eqs, err := uvaMapping.resolve(in, inCredits, out, outCredits)
			if err != nil {
				prev = nil
				res.fail(uvaInstitution.Acronym, i, raw, err)
				continue
			}
			prev = prev[:0]
			for j := range eqs {
				prev = append(prev, len(res.Equivalencies)+j)
			}
			res.add(eqs...)
		case uvaInputSupplement, uvaOutputSupplement:
			if len(prev) == 0 {
				res.fail(uvaInstitution.Acronym, i, raw, fmt.Errorf("%s row without a preceding equivalency", kind))
				continue
			}
			if err := uvaSupplement(&res, prev, kind, in, inCredits, out, outCredits); err != nil {
				res.fail(uvaInstitution.Acronym, i, raw, err)
			}
		}
	}
	return res, nil
}

// uvaSupplement applies a supplement row to every equivalency at idx.
// Nothing is changed when the row fails to parse.
func uvaSupplement(res *Result, idx []int, kind uvaRowType, in, inCredits, out, outCredits string) error {
	if kind == uvaInputSupplement {
		courses, err := parse.ParseCourses(in, inCredits)
		if err != nil {
			return fmt.Errorf("input: %w", err)
		}
		for _, k := range idx {
			eq := &res.Equivalencies[k]
			eq.Input = append(eq.Input, courses...)
		}
		return nil
	}
	if _, ok := uvaMapping.sentinels.Match(out); ok {
		return fmt.Errorf("sentinel %q in a supplement row", out)
	}
	courses, err := parse.ParseCourses(out, outCredits)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	for _, k := range idx {
		eq := &res.Equivalencies[k]
		// a granted course replaces the no-credit placeholder
		dropPlaceholder(eq)
		eq.Output = append(eq.Output, courses...)
		if err := uvaMapping.reclassify(eq); err != nil {
			return err
		}
	}
	return nil
}
