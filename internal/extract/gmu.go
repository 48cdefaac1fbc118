package extract

import (
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/transferindex/internal/document"
	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

const (
	gmuURL        = "https://admissions.gmu.edu/transfer/transfercreditsearch.asp"
	gmuTable      = "table#vccs-equivalencies"
	gmuHeaderRows = 1

	gmuInCourse   = 0
	gmuInCredits  = 2
	gmuOutCourse  = 3
	gmuOutCredits = 5
)

var gmuInstitution = model.Institution{
	Acronym:               "GMU",
	FullName:              "George Mason University",
	Location:              "Fairfax, VA",
	ParseSuccessThreshold: 0.95,
}

var gmuMapping = mapping{
	sentinels: parse.Sentinels{
		{Pattern: sentinelRe("NO CREDIT"), Type: model.None},
		{Pattern: sentinelRe("LAB", "DEPT"), Type: model.Special},
	},
}

type gmu struct{}

func (gmu) Institution() model.Institution { return gmuInstitution }

func (gmu) Source() fetch.Source {
	return fetch.Source{
		URL: gmuURL,
		Form: url.Values{
			"state":  {"VA"},
			"school": {"VCCS"},
		},
		Accept: []string{"text/html", "application/xhtml+xml"},
	}
}

func (gmu) ParseBody(body []byte) (*goquery.Document, error) { return htmlBody(body) }

// ParseEquivalencies reads one equivalency per table row. Title columns are
// ignored.
func (gmu) ParseEquivalencies(doc *goquery.Document) (Result, error) {
	rows, err := tableRows(doc, gmuTable, gmuHeaderRows)
	if err != nil {
		return Result{}, err
	}
	var res Result
	for i, cells := range rows {
		in := document.Cell(cells, gmuInCourse)
		out := document.Cell(cells, gmuOutCourse)
		if blank(cells...) {
			skip(gmuInstitution.Acronym, i, "blank")
			continue
		}
		eqs, err := gmuMapping.resolve(in, document.Cell(cells, gmuInCredits), out, document.Cell(cells, gmuOutCredits))
		if err != nil {
			res.fail(gmuInstitution.Acronym, i, in+" => "+out, err)
			continue
		}
		res.add(eqs...)
	}
	return res, nil
}
