package extract

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/transferindex/internal/model"
)

func TestNVCCLead(t *testing.T) {
	c, next, ok := nvccLead([]string{"ACC", "211", "Accounting"})
	require.True(t, ok)
	assert.Equal(t, "ACC 211", c)
	assert.Equal(t, 2, next)

	c, next, ok = nvccLead([]string{"ENG 111", "Composition"})
	require.True(t, ok)
	assert.Equal(t, "ENG 111", c)
	assert.Equal(t, 1, next)

	for _, cells := range [][]string{
		{"NVCC", "Title"},
		{"Christopher Newport University"},
		{},
	} {
		_, _, ok := nvccLead(cells)
		assert.False(t, ok, "%q", cells)
	}
}

func TestCNU_Rows(t *testing.T) {
	rows := [][]string{
		{"Christopher Newport University Transfer Guide"},
		{"NVCC", "Title", "Cr", "CNU", "Cr"},
		{"ACC", "211", "Principles of Accounting I", "3", "ACCT 201", "3"},
		{"ENG 111", "College Composition I", "3", "ENGL 123 (core)", "3"},
		{"BIO", "101", "General Biology I", "4"},
		{"BIOL 107 & 108", "4"},
		{"HIS", "101", "History of Western Civilization", "3", "NT"},
		{"PED", "116", "Lifetime Fitness", "2", "DEPT"},
		{"MTH", "173", "Calculus with Analytic Geometry"},
		{"MTH", "174", "Calculus II", "4", "MATH 1XX", "4"},
	}
	res, err := cnu{}.ParseEquivalencies(rows)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 6)
	assert.Equal(t, 1, res.Unparseable)

	acc := res.Equivalencies[0]
	assert.Equal(t, []model.Course{course("ACC", "211", 3)}, acc.Input)
	assert.Equal(t, []model.Course{course("ACCT", "201", 3)}, acc.Output)

	assert.Equal(t, []model.Course{course("ENGL", "123", 3)}, res.Equivalencies[1].Output)

	bio := res.Equivalencies[2]
	assert.Equal(t, []model.Course{course("BIO", "101", 4)}, bio.Input)
	assert.Equal(t, []model.Course{course("BIOL", "107", 4), course("BIOL", "108", model.UnknownCredits)}, bio.Output)

	assert.Equal(t, model.None, res.Equivalencies[3].Type)
	assert.Equal(t, model.Special, res.Equivalencies[4].Type)
	assert.Equal(t, model.Generic, res.Equivalencies[5].Type)
	assert.Equal(t, "174", res.Equivalencies[5].KeyCourse.Number)
}

func TestWMCandidates_Order(t *testing.T) {
	cells := []string{"ENG", "111", "BIO", "L 101"}
	var got []string
	for c := range wmCandidates(cells, 2) {
		got = append(got, c.text)
	}
	assert.Equal(t, []string{"BIO", "L 101", "BIOL 101", "BIO L 101"}, got)

	// consumers may stop early and restart
	var first []string
	for c := range wmCandidates(cells, 0) {
		first = append(first, c.text)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"ENG", "111"}, first)
	assert.Len(t, slices.Collect(wmCandidates(cells, 0)), 4+3+3)
}

func TestWM_Rows(t *testing.T) {
	rows := [][]string{
		{"William & Mary VCCS Equivalencies"},
		{"BIO", "101", "General Biology", "4", "BIO", "L 101", "4"},
		{"ENG", "111", "Composition", "3", "WRIT", "101", "3"},
		{"ART", "101", "Art History", "3", "Dept review required"},
		{"MUS", "121", "Music Appreciation", "3", "TBD"},
		{"HIS", "101", "Western Civ", "3", "HIST 111", "3"},
		{"CHM", "111", "Chemistry", "4", "No credit"},
		{"PSY", "200", "Psychology", "3"},
		{"PSYC 201 & 202", "3"},
		{"PHI", "101", "Philosophy", "3", "elective"},
	}
	res, err := wm{}.ParseEquivalencies(rows)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 6)
	assert.Equal(t, 1, res.Unparseable)

	assert.Equal(t, []model.Course{course("BIOL", "101", 4)}, res.Equivalencies[0].Output)
	assert.Equal(t, []model.Course{course("WRIT", "101", 3)}, res.Equivalencies[1].Output)

	art := res.Equivalencies[2]
	assert.Equal(t, model.Special, art.Type)
	assert.Empty(t, art.Output)
	assert.Equal(t, []model.Course{course("ART", "101", 3)}, art.Input)

	assert.Equal(t, []model.Course{course("HIST", "111", 3)}, res.Equivalencies[3].Output)
	assert.Equal(t, model.None, res.Equivalencies[4].Type)
	// wrapped onto the next line
	assert.Equal(t, []model.Course{course("PSYC", "201", 3), course("PSYC", "202", model.UnknownCredits)}, res.Equivalencies[5].Output)
}

func TestScreenWMRow(t *testing.T) {
	assert.Equal(t, rowSpecial, screenWMRow([]string{"ART", "101", "see dept"}))
	assert.Equal(t, rowSkip, screenWMRow([]string{"MUS", "121", "HIST 1XX?"}))
	assert.Equal(t, rowExtract, screenWMRow([]string{"HIS", "101", "HIST 111"}))
	assert.Equal(t, rowExtract, screenWMRow([]string{"ACC", "211", "Principles of Accounting?", "3", "ACCT 201", "3"}))
	assert.Equal(t, rowSkip, screenWMRow([]string{"ACC", "212", "Principles of Accounting II", "3", "?"}))
	assert.Equal(t, rowSpecial, screenWMRow([]string{"SDV 100", "College Success", "1", "see dept"}))
}

func TestWM_MarkersInTitlesIgnored(t *testing.T) {
	rows := [][]string{
		{"ACC", "211", "Principles of Accounting?", "3", "ACCT 201", "3"},
		{"HLT", "110", "Concepts of Personal Health", "2", "KINE 110 / 111", "2"},
	}
	res, err := wm{}.ParseEquivalencies(rows)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 2)
	assert.Zero(t, res.Unparseable)
	assert.Equal(t, []model.Course{course("ACCT", "201", 3)}, res.Equivalencies[0].Output)
	assert.Equal(t, []model.Course{course("KINE", "110", 2), course("KINE", "111", model.UnknownCredits)}, res.Equivalencies[1].Output)
}
