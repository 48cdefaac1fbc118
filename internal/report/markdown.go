// Package report renders an index run for people: Markdown, and a PDF made
// from that Markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/transferindex/internal/index"
	"github.com/hyperifyio/transferindex/internal/model"
)

// Markdown renders rep as a per-institution table followed by failures and
// totals by type.
func Markdown(rep *index.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transfer equivalency index\n\n")
	fmt.Fprintf(&b, "Run %s, started %s, took %s.\n\n",
		rep.RunID, rep.StartedAt.UTC().Format(time.RFC3339), rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))

	b.WriteString("## Institutions\n\n")
	if len(rep.Contexts) == 0 {
		b.WriteString("No institution produced results.\n\n")
	} else {
		b.WriteString("| Institution | Equivalencies | Unparseable | Success rate | Threshold | Status |\n")
		b.WriteString("|---|---:|---:|---:|---:|---|\n")
		for _, c := range rep.Contexts {
			status := "ok"
			if c.Suspect() {
				status = "suspect"
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s |\n",
				escapeCell(c.Institution.Acronym), len(c.Equivalencies), c.Unparseable,
				percent(c.ParseSuccessRate), percent(c.Institution.ParseSuccessThreshold), status)
		}
		b.WriteString("\n")
	}

	if len(rep.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, f := range rep.Failures {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Acronym, oneLine(f.Error))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Institutions: %d\n", rep.Summary.Institutions)
	fmt.Fprintf(&b, "- Equivalencies: %d\n", rep.Summary.Equivalencies)
	fmt.Fprintf(&b, "- Unparseable rows: %d\n", rep.Summary.Unparseable)
	for _, t := range model.EquivTypes {
		fmt.Fprintf(&b, "- %s: %d\n", t, rep.Summary.ByType[t])
	}
	return b.String()
}

func percent(f float64) string { return fmt.Sprintf("%.1f%%", f*100) }

func escapeCell(s string) string { return strings.ReplaceAll(s, "|", `\|`) }

func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }
