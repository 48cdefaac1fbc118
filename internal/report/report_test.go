package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/transferindex/internal/aggregate"
	"github.com/hyperifyio/transferindex/internal/index"
	"github.com/hyperifyio/transferindex/internal/model"
)

func testReport(t *testing.T) *index.Report {
	t.Helper()
	eq, err := model.NewEquivalency(
		[]model.Course{{Subject: "ENG", Number: "111", Credits: model.ExactCredits(3)}},
		[]model.Course{{Subject: "ENGL", Number: "1XX", Credits: model.ExactCredits(3)}},
		model.Generic)
	if err != nil {
		t.Fatal(err)
	}
	vt := model.Institution{Acronym: "VT", ParseSuccessThreshold: 0.9}
	wm := model.Institution{Acronym: "W&M", ParseSuccessThreshold: 0.8}
	contexts := []model.EquivalencyContext{
		model.NewContext(vt, []model.CourseEquivalency{eq}, 0),
		model.NewContext(wm, []model.CourseEquivalency{eq}, 3),
	}
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &index.Report{
		RunID:      uuid.MustParse("0d8c8a6e-5d6f-4b8a-8f39-1b9a3b4f2c10"),
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Contexts:   contexts,
		Failures:   []index.Failure{{Acronym: "GT", Error: "structure: table.datadisplaytable\nnot found"}},
		Summary:    aggregate.Summarize(contexts, []string{"GT"}),
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(testReport(t))
	for _, want := range []string{
		"Run 0d8c8a6e-5d6f-4b8a-8f39-1b9a3b4f2c10, started 2024-05-01T12:00:00Z, took 1.5s.",
		"| VT | 1 | 0 | 100.0% | 90.0% | ok |",
		"| W&M | 1 | 3 | 25.0% | 80.0% | suspect |",
		"- **GT**: structure: table.datadisplaytable not found",
		"- Equivalencies: 2",
		"- GENERIC: 2",
		"- NONE: 0",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdown_NoResults(t *testing.T) {
	rep := &index.Report{Summary: aggregate.Summarize(nil, nil)}
	md := Markdown(rep)
	if !strings.Contains(md, "No institution produced results.") {
		t.Fatalf("unexpected markdown:\n%s", md)
	}
	if strings.Contains(md, "## Failures") {
		t.Fatal("failures section without failures")
	}
}

func TestTableCells(t *testing.T) {
	got := tableCells(`| A\|B | 2 |`)
	if len(got) != 2 || got[0] != "A|B" || got[1] != "2" {
		t.Fatalf("cells: %q", got)
	}
	if !isRule(tableCells("|---|---:|")) {
		t.Fatal("separator not recognized")
	}
	if isRule(tableCells("| VT | 1 |")) {
		t.Fatal("data row taken for separator")
	}
}

func TestWritePDF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "report.pdf")
	if err := WritePDF(Markdown(testReport(t)), out); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", b[:min(len(b), 8)])
	}
}
