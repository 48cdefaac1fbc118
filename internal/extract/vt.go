package extract

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

const vtURL = "https://spreadsheets.google.com/feeds/list/1cTqJ0oYZxDAUxyLSdYrCn7CEngk2ZJT9mIOmBLJEbuI/od6/public/values?alt=json"

var vtInstitution = model.Institution{
	Acronym:               "VT",
	FullName:              "Virginia Tech",
	Location:              "Blacksburg, VA",
	ParseSuccessThreshold: 0.9,
}

var vtColumns = feedColumns{
	inCourse:   "vccscourse",
	inCredits:  "vccscredits",
	outCourse:  "vtcourse",
	outCredits: "vtcredits",
}

var vtMapping = mapping{
	sentinels: parse.Sentinels{
		{Pattern: sentinelRe("NO CREDIT"), Type: model.None},
		{Pattern: sentinelRe("DEPT"), Type: model.Special},
	},
}

var (
	// a subject heading row such as "ACC" with no course number
	vtBareSubjectRe = regexp.MustCompile(`^[A-Z]{2,4}$`)
	// "See ENG 111" style rows point the reader at another entry
	vtReferralRe = regexp.MustCompile(`(?i)^see\b`)
)

type vt struct{}

func (vt) Institution() model.Institution { return vtInstitution }

func (vt) Source() fetch.Source {
	return fetch.Source{URL: vtURL, Accept: []string{"application/json", "text/plain"}}
}

func (vt) ParseBody(body []byte) ([]gjson.Result, error) { return feedBody(body) }

// ParseEquivalencies maps each entry through the shared mapping after the VT
// skip rules. Skipped entries are not counted as unparseable.
func (vt) ParseEquivalencies(entries []gjson.Result) (Result, error) {
	var res Result
	for i, entry := range entries {
		row := vtColumns.read(entry)
		if reason := vtSkipReason(row); reason != "" {
			skip(vtInstitution.Acronym, i, reason)
			continue
		}
		eqs, err := vtMapping.resolve(row.inCourse, row.inCredits, row.outCourse, row.outCredits)
		if err != nil {
			res.fail(vtInstitution.Acronym, i, row.raw(), err)
			continue
		}
		res.add(eqs...)
	}
	return res, nil
}

func vtSkipReason(row feedRow) string {
	switch {
	case row.inCredits == "":
		return "no credits"
	case vtBareSubjectRe.MatchString(strings.ToUpper(row.inCourse)):
		return "bare subject"
	case vtReferralRe.MatchString(row.outCourse), vtReferralRe.MatchString(row.inCourse):
		return "referral"
	}
	return ""
}
