// Package document turns fetched bodies into something extractors can walk:
// a row matrix for PDFs, a DOM for HTML and entry lists for JSON feeds.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hyperifyio/transferindex/internal/parse"
)

// ErrNotPDF is returned when the body cannot be opened as a PDF.
var ErrNotPDF = errors.New("not a readable PDF")

// RowOptions controls how positioned glyphs become lines and cells.
type RowOptions struct {
	// LineTolerance is the largest baseline difference, in points, between
	// glyphs on the same line.
	LineTolerance float64
	// CellGap is the horizontal distance, in points, that starts a new cell.
	CellGap float64
	// FontSize is used to estimate glyph widths when the PDF omits them.
	FontSize float64
}

// DefaultRowOptions suit the narrow tables both PDF publishers use.
var DefaultRowOptions = RowOptions{LineTolerance: 2, CellGap: 12, FontSize: 8}

// run is one positioned piece of text on a line.
type run struct {
	X, Y, W, FontSize float64
	S                 string
}

// PDFRows is PDFRowsWith using DefaultRowOptions.
func PDFRows(body []byte) ([][]string, error) {
	return PDFRowsWith(body, DefaultRowOptions)
}

// PDFRowsWith reads every page top to bottom and returns one slice of cleaned,
// non-empty cells per text line. Lines with no text are dropped.
func PDFRowsWith(body []byte, opts RowOptions) (rows [][]string, err error) {
	defer func() {
		// the reader panics on some malformed streams
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		texts := page.Content().Text
		runs := make([]run, 0, len(texts))
		for _, t := range texts {
			runs = append(runs, run{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
		}
		for _, line := range groupLines(runs, opts) {
			if cells := groupCells(line, opts); len(cells) > 0 {
				rows = append(rows, cells)
			}
		}
	}
	return rows, nil
}

// groupLines splits runs into lines, top of the page first. PDF y grows
// upwards. Runs keep their drawing order within a line.
func groupLines(runs []run, opts RowOptions) [][]run {
	slices.SortStableFunc(runs, func(a, b run) int {
		switch {
		case a.Y > b.Y:
			return -1
		case a.Y < b.Y:
			return 1
		}
		return 0
	})
	var lines [][]run
	for i, r := range runs {
		if i == 0 || math.Abs(lines[len(lines)-1][0].Y-r.Y) > opts.LineTolerance {
			lines = append(lines, []run{r})
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], r)
	}
	return lines
}

// groupCells orders runs left to right and merges neighbours whose gap is
// smaller than opts.CellGap. Merged runs are joined with a space when they do
// not touch.
func groupCells(runs []run, opts RowOptions) []string {
	slices.SortStableFunc(runs, func(a, b run) int {
		switch {
		case a.X < b.X:
			return -1
		case a.X > b.X:
			return 1
		}
		return 0
	})
	var cells []string
	var cur strings.Builder
	end := 0.0
	flush := func() {
		if s := parse.CleanCell(cur.String()); s != "" {
			cells = append(cells, s)
		}
		cur.Reset()
	}
	for i, r := range runs {
		gap := r.X - end
		switch {
		case i == 0:
		case gap >= opts.CellGap:
			flush()
		case gap > 0.5:
			cur.WriteByte(' ')
		}
		cur.WriteString(r.S)
		if e := r.X + r.width(opts); i == 0 || e > end {
			end = e
		}
	}
	flush()
	return cells
}

func (r run) width(opts RowOptions) float64 {
	if r.W > 0 {
		return r.W
	}
	size := r.FontSize
	if size <= 0 {
		size = opts.FontSize
	}
	// average glyph width of the sans faces used in the tables
	return size * 0.5 * float64(len([]rune(r.S)))
}
