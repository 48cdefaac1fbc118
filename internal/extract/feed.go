package extract

import (
	"github.com/tidwall/gjson"

	"github.com/hyperifyio/transferindex/internal/document"
)

// feedColumns names the spreadsheet columns of a JSON feed institution.
type feedColumns struct {
	inCourse, inCredits, outCourse, outCredits string
}

// feedRow is one entry of a spreadsheet feed, already cleaned.
type feedRow struct {
	inCourse, inCredits, outCourse, outCredits string
}

func (r feedRow) raw() string { return r.inCourse + " => " + r.outCourse }

func (r feedRow) blank() bool {
	return blank(r.inCourse, r.inCredits, r.outCourse, r.outCredits)
}

func feedBody(body []byte) ([]gjson.Result, error) {
	return document.FeedEntries(body, document.FeedEntriesPath)
}

func (c feedColumns) read(entry gjson.Result) feedRow {
	return feedRow{
		inCourse:   document.FeedField(entry, c.inCourse),
		inCredits:  document.FeedField(entry, c.inCredits),
		outCourse:  document.FeedField(entry, c.outCourse),
		outCredits: document.FeedField(entry, c.outCredits),
	}
}
