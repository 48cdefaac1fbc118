package extract

import (
	"github.com/tidwall/gjson"

	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

const vcuURL = "https://spreadsheets.google.com/feeds/list/1Rb2CkYSZ2y2YTGtrYdg8mz6KbTrASwQiYTmLhy7pWKI/od6/public/values?alt=json"

var vcuInstitution = model.Institution{
	Acronym:               "VCU",
	FullName:              "Virginia Commonwealth University",
	Location:              "Richmond, VA",
	ParseSuccessThreshold: 0.95,
}

var vcuColumns = feedColumns{
	inCourse:   "vccscourse",
	inCredits:  "vccscredits",
	outCourse:  "vcucourse",
	outCredits: "vcucredits",
}

// VCU grants elective credit as "BIOL 1ELT".
var vcuMapping = mapping{
	marker: "ELT",
	sentinels: parse.Sentinels{
		{Pattern: sentinelRe("NO CREDIT", "NONE"), Type: model.None},
		{Pattern: sentinelRe("DEPT EVAL"), Type: model.Special},
	},
}

type vcu struct{}

func (vcu) Institution() model.Institution { return vcuInstitution }

func (vcu) Source() fetch.Source {
	return fetch.Source{URL: vcuURL, Accept: []string{"application/json", "text/plain"}}
}

func (vcu) ParseBody(body []byte) ([]gjson.Result, error) { return feedBody(body) }

func (vcu) ParseEquivalencies(entries []gjson.Result) (Result, error) {
	var res Result
	for i, entry := range entries {
		row := vcuColumns.read(entry)
		if row.blank() {
			skip(vcuInstitution.Acronym, i, "blank")
			continue
		}
		eqs, err := vcuMapping.resolve(row.inCourse, row.inCredits, row.outCourse, row.outCredits)
		if err != nil {
			res.fail(vcuInstitution.Acronym, i, row.raw(), err)
			continue
		}
		res.add(eqs...)
	}
	return res, nil
}
