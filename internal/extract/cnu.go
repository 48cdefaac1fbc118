package extract

import (
	"regexp"

	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

const cnuURL = "https://cnu.edu/admission/transfer/_pdf/nvcc-transfer-guide.pdf"

var cnuInstitution = model.Institution{
	Acronym:               "CNU",
	FullName:              "Christopher Newport University",
	Location:              "Newport News, VA",
	ParseSuccessThreshold: 0.85,
}

// CNU cells sometimes carry a note after the course, as in "ACCT 201 (core)".
var cnuTargetRe = regexp.MustCompile(`^` + targetCourseList + `\b`)

var cnuMapping = mapping{
	sentinels: parse.Sentinels{
		{Pattern: sentinelRe("NT"), Type: model.None},
		{Pattern: sentinelRe("DEPT"), Type: model.Special},
	},
}

var cnuTable = pdfTable{
	inst:    cnuInstitution.Acronym,
	mapping: cnuMapping,
	find:    findCNUTarget,
}

type cnu struct{}

func (cnu) Institution() model.Institution { return cnuInstitution }

func (cnu) Source() fetch.Source {
	return fetch.Source{URL: cnuURL, Accept: []string{"application/pdf", "application/octet-stream"}}
}

func (cnu) ParseBody(body []byte) ([][]string, error) { return pdfBody(body) }

func (cnu) ParseEquivalencies(rows [][]string) (Result, error) {
	return cnuTable.extract(rows), nil
}

// findCNUTarget returns the first cell that starts with a CNU course id.
// Only the matched prefix is kept.
func findCNUTarget(cells []string, from int) (match, bool) {
	for i := max(from, 0); i < len(cells); i++ {
		if loc := cnuTargetRe.FindStringIndex(cells[i]); loc != nil {
			return match{text: cells[i][loc[0]:loc[1]], start: i, end: i + 1}, true
		}
	}
	return match{}, false
}
