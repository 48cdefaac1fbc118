package extract

import (
	"iter"
	"regexp"
	"strings"

	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
	"github.com/hyperifyio/transferindex/internal/parse"
)

const wmURL = "https://www.wm.edu/admission/undergraduateadmission/transfer/vccs-course-equivalencies.pdf"

var wmInstitution = model.Institution{
	Acronym:               "W&M",
	FullName:              "College of William & Mary",
	Location:              "Williamsburg, VA",
	ParseSuccessThreshold: 0.8,
}

var wmCourseRe = regexp.MustCompile(`^` + targetCourseList + `$`)

var wmMapping = mapping{
	sentinels: parse.Sentinels{
		{Pattern: sentinelRe("NO CREDIT", "NCR"), Type: model.None},
	},
}

var (
	// rows transferable only after department review
	wmSpecialMarkers = []string{"DEPT REVIEW", "SEE DEPT", "DEPARTMENT APPROVAL"}
	// rows whose outcome W&M has not settled
	wmUnclearMarkers = []string{"?", "TBD", "PENDING"}
)

var wmTable = pdfTable{
	inst:    wmInstitution.Acronym,
	mapping: wmMapping,
	find:    findWMTarget,
	screen:  screenWMRow,
}

type wm struct{}

func (wm) Institution() model.Institution { return wmInstitution }

func (wm) Source() fetch.Source {
	return fetch.Source{URL: wmURL, Accept: []string{"application/pdf", "application/octet-stream"}}
}

func (wm) ParseBody(body []byte) ([][]string, error) { return pdfBody(body) }

func (wm) ParseEquivalencies(rows [][]string) (Result, error) {
	return wmTable.extract(rows), nil
}

// screenWMRow looks for markers past the source course's credits, so a
// course title never flags a row.
func screenWMRow(cells []string) rowAction {
	line := strings.ToUpper(strings.Join(wmTargetCells(cells), " "))
	for _, s := range wmSpecialMarkers {
		if strings.Contains(line, s) {
			return rowSpecial
		}
	}
	for _, s := range wmUnclearMarkers {
		if strings.Contains(line, s) {
			return rowSkip
		}
	}
	return rowExtract
}

// wmTargetCells returns the cells after the source course's credits, or
// after the source course when the row has no credit cell.
func wmTargetCells(cells []string) []string {
	_, next, ok := nvccLead(cells)
	if !ok {
		return cells
	}
	for i := next; i < len(cells); i++ {
		if isCredit(cells[i]) {
			return cells[i+1:]
		}
	}
	return cells[next:]
}

// wmCandidates yields every cell from index from, then each adjacent pair
// joined directly, then each pair joined with a space. The W&M layout splits
// course ids over neighbouring cells ("BIO" "L 220", "BIOL" "220").
func wmCandidates(cells []string, from int) iter.Seq[match] {
	return func(yield func(match) bool) {
		for i := max(from, 0); i < len(cells); i++ {
			if !yield(match{text: cells[i], start: i, end: i + 1}) {
				return
			}
		}
		for _, sep := range []string{"", " "} {
			for i := max(from, 0); i+1 < len(cells); i++ {
				if !yield(match{text: cells[i] + sep + cells[i+1], start: i, end: i + 2}) {
					return
				}
			}
		}
	}
}

func findWMTarget(cells []string, from int) (match, bool) {
	for c := range wmCandidates(cells, from) {
		if wmCourseRe.MatchString(c.text) {
			return c, true
		}
	}
	return match{}, false
}
