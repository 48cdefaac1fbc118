package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/transferindex/internal/document"
)

// htmlBody is the ParseBody shared by the HTML institutions.
func htmlBody(body []byte) (*goquery.Document, error) {
	return document.HTML(body)
}

// tableRows selects the first table matching selector and returns its cell
// texts with the first skip rows removed. A missing table is a structural
// failure.
func tableRows(doc *goquery.Document, selector string, skip int) ([][]string, error) {
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no %s", ErrStructure, selector)
	}
	var rows [][]string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i < skip {
			return
		}
		rows = append(rows, document.Cells(tr))
	})
	return rows, nil
}

func blank(cells ...string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
