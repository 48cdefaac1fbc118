package document

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/transferindex/internal/parse"
)

// HTML decodes body to UTF-8, honouring a <meta charset>, and parses it.
func HTML(body []byte) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return nil, fmt.Errorf("charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Cells returns the cleaned text of each td or th directly under row.
func Cells(row *goquery.Selection) []string {
	cells := row.ChildrenFiltered("td, th")
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, parse.CleanCell(c.Text()))
	})
	return out
}

// Cell returns cells[i] or "" when the row is short.
func Cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
