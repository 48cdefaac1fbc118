package report

import (
	"bufio"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders Markdown produced by Markdown into a PDF at outPath.
// Headings, bullets and pipe tables are laid out; everything else is written
// as paragraphs.
func WritePDF(markdown string, outPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		s := strings.TrimSpace(scanner.Text())
		switch {
		case s == "":
			pdf.Ln(3)
		case strings.HasPrefix(s, "#"):
			i := 0
			for i < len(s) && s[i] == '#' {
				i++
			}
			text := strings.TrimSpace(s[i:])
			if text == "" {
				continue
			}
			size := 16.0
			if i >= 2 {
				size = 12.0
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
		case strings.HasPrefix(s, "|"):
			cells := tableCells(s)
			if isRule(cells) {
				continue
			}
			w := 190.0 / float64(len(cells))
			for _, c := range cells {
				pdf.CellFormat(w, 6, tr(c), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		case strings.HasPrefix(s, "- "):
			pdf.MultiCell(0, 5, tr("• "+strings.ReplaceAll(s[2:], "**", "")), "", "L", false)
		default:
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}

func tableCells(row string) []string {
	row = strings.Trim(row, "|")
	row = strings.ReplaceAll(row, `\|`, "\x00")
	parts := strings.Split(row, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.ReplaceAll(p, "\x00", "|"))
	}
	return parts
}

// isRule reports whether cells form a header separator such as |---|---:|.
func isRule(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-:") != "" || c == "" {
			return false
		}
	}
	return true
}
