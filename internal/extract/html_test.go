package extract

import (
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/transferindex/internal/document"
	"github.com/hyperifyio/transferindex/internal/model"
)

func parseHTML(t *testing.T, body []byte) *goquery.Document {
	t.Helper()
	doc, err := document.HTML(body)
	require.NoError(t, err)
	return doc
}

func TestGMU_RowKinds(t *testing.T) {
	doc := parseHTML(t, htmlTable(`id="vccs-equivalencies"`,
		[]string{"VCCS Course", "Title", "Credits", "Mason Course", "Title", "Credits"},
		[]string{"HIS 101", "Western Civ", "3", "HIST 1XX", "Elective", "3"},
		[]string{"PED 116", "Fitness", "2", "No Credit", "", ""},
		[]string{"BIO 101", "Biology", "4", "LAB", "", "4"},
		[]string{"", "", "", "", "", ""},
		[]string{"Intro!!", "Bad row", "3", "MATH 113", "", "4"},
	))
	res, err := gmu{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 3)
	assert.Equal(t, 1, res.Unparseable)

	assert.Equal(t, model.Generic, res.Equivalencies[0].Type)
	assert.Equal(t, model.None, res.Equivalencies[1].Type)
	assert.Equal(t, []model.Course{model.NoCreditCourse()}, res.Equivalencies[1].Output)
	assert.Equal(t, model.Special, res.Equivalencies[2].Type)
	assert.Empty(t, res.Equivalencies[2].Output)
}

func TestGMU_DisjunctiveInputSharesOutput(t *testing.T) {
	doc := parseHTML(t, htmlTable(`id="vccs-equivalencies"`,
		[]string{"header"},
		[]string{"ITE 115 or ITE 119", "", "3", "IT 104", "", "3"},
	))
	res, err := gmu{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 2)
	assert.Equal(t, "115", res.Equivalencies[0].KeyCourse.Number)
	assert.Equal(t, "119", res.Equivalencies[1].KeyCourse.Number)
	assert.Equal(t, res.Equivalencies[0].Output, res.Equivalencies[1].Output)
}

func TestGT_ContinuationRowsMerge(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="datadisplaytable"`,
		[]string{"Transfer equivalencies for Northern Virginia CC"},
		[]string{"", "Course", "Credits", "Georgia Tech", "Credits"},
		[]string{"", "CHM 111", "4", "CHEM 1211K", "3"},
		[]string{"And", "", "", "CHEM 1211K", "1"},
		[]string{"", "CHM 112", "4", "CHEM 1212K", "4"},
		[]string{"AND", "CHM 113", "1", "CHEM 1XXX", "1"},
		[]string{"", "ENG 111", "3", "NOGT", ""},
		[]string{"", "ART 101", "3", "DEPT", ""},
	))
	res, err := gt{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 4)
	assert.Zero(t, res.Unparseable)

	chem1 := res.Equivalencies[0]
	assert.Equal(t, []model.Course{course("CHM", "111", 4)}, chem1.Input)
	assert.Equal(t, []model.Course{course("CHEM", "1211K", 4)}, chem1.Output)
	assert.Equal(t, model.Direct, chem1.Type)

	chem2 := res.Equivalencies[1]
	assert.Equal(t, []model.Course{course("CHM", "112", 4), course("CHM", "113", 1)}, chem2.Input)
	assert.Equal(t, []model.Course{course("CHEM", "1212K", 4), course("CHEM", "1XXX", 1)}, chem2.Output)
	assert.Equal(t, model.Generic, chem2.Type, "merged generic course reclassifies")
	assert.Equal(t, model.KeyCourse{Subject: "CHM", Number: "112"}, chem2.KeyCourse)

	assert.Equal(t, model.None, res.Equivalencies[2].Type)
	assert.Equal(t, model.Special, res.Equivalencies[3].Type)
}

func TestGT_ContinuationReplacesSentinelOutput(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="datadisplaytable"`,
		[]string{"title"},
		[]string{"header"},
		[]string{"", "ENG 111", "3", "NOGT", ""},
		[]string{"And", "", "", "ENGL 1101", "3"},
		[]string{"", "ART 101", "3", "DEPT", ""},
		[]string{"And", "", "", "ART 1XXX", "3"},
		[]string{"", "PED 116", "2", "NOGT", ""},
		[]string{"And", "PED 117", "2", "", ""},
	))
	res, err := gt{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 3)
	assert.Zero(t, res.Unparseable)

	eng := res.Equivalencies[0]
	assert.Equal(t, []model.Course{course("ENGL", "1101", 3)}, eng.Output)
	assert.Equal(t, model.Direct, eng.Type)

	art := res.Equivalencies[1]
	assert.Equal(t, []model.Course{course("ART", "1XXX", 3)}, art.Output)
	assert.Equal(t, model.Generic, art.Type)

	// an input-only continuation keeps the no-credit record
	ped := res.Equivalencies[2]
	assert.Equal(t, []model.Course{course("PED", "116", 2), course("PED", "117", 2)}, ped.Input)
	assert.Equal(t, []model.Course{model.NoCreditCourse()}, ped.Output)
	assert.Equal(t, model.None, ped.Type)
}

func TestGT_OrphanAndEmptyContinuations(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="datadisplaytable"`,
		[]string{"title"},
		[]string{"header"},
		[]string{"And", "CHM 113", "1", "CHEM 1XXX", "1"},
		[]string{"", "MTH 173", "5", "MATH 1551", "4"},
		[]string{"And", "", "", "", ""},
		[]string{"", "MTH 174", "x", "MATH 1552", "4"},
		[]string{"And", "MTH 175", "3", "MATH 1553", "3"},
	))
	res, err := gt{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 1)
	// orphan, empty continuation, bad credits, and the continuation of the failed row
	assert.Equal(t, 4, res.Unparseable)
	assert.Equal(t, []model.Course{course("MATH", "1551", 4)}, res.Equivalencies[0].Output)
}

func TestMergeCourse_SumsUnknownCredits(t *testing.T) {
	out := mergeCourse([]model.Course{course("CHEM", "1211K", 3)}, course("CHEM", "1211K", model.UnknownCredits))
	require.Len(t, out, 1)
	assert.Equal(t, model.ExactCredits(model.UnknownCredits), out[0].Credits)

	out = mergeCourse(out, course("CHEM", "1212K", 4))
	assert.Len(t, out, 2)
}

func TestUVA_RowTypes(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="equivalencies"`,
		[]string{"VCCS", "Credits", "UVA", "Credits"},
		[]string{"ACC 211", "3", "COMM 2010", "3"},
		[]string{"ACC 212", "3", "", ""},
		[]string{"", "", "COMM 2020", "3"},
		[]string{"", "", "", ""},
		[]string{"ENG 111", "3", "ENWR 1T", "3"},
		[]string{"HIS 101", "3", "No Credit", ""},
	))
	res, err := uva{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 3)
	assert.Zero(t, res.Unparseable)

	acc := res.Equivalencies[0]
	assert.Equal(t, []model.Course{course("ACC", "211", 3), course("ACC", "212", 3)}, acc.Input)
	assert.Equal(t, []model.Course{course("COMM", "2010", 3), course("COMM", "2020", 3)}, acc.Output)
	assert.Equal(t, model.Direct, acc.Type)

	assert.Equal(t, model.Generic, res.Equivalencies[1].Type)
	assert.Equal(t, model.None, res.Equivalencies[2].Type)
}

func TestUVA_UnknownRowIsFatal(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="equivalencies"`,
		[]string{"header"},
		[]string{"ACC 211", "3", "COMM 2010", "3"},
		[]string{"", "3", "", "3"},
	))
	_, err := uva{}.ParseEquivalencies(doc)
	assert.ErrorIs(t, err, ErrUnknownRow)
}

func TestUVA_SupplementWithoutPrevious(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="equivalencies"`,
		[]string{"header"},
		[]string{"ACC 212", "3", "", ""},
		[]string{"ACC 211", "3", "COMM 2010", "3"},
	))
	res, err := uva{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	assert.Len(t, res.Equivalencies, 1)
	assert.Equal(t, 1, res.Unparseable)
}

func TestUVA_SupplementAppliesToEveryAlternative(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="equivalencies"`,
		[]string{"header"},
		[]string{"ITE 115 or ITE 119", "3", "CS 1010", "3"},
		[]string{"ITE 120", "3", "", ""},
		[]string{"", "", "CS 1020", "3"},
	))
	res, err := uva{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 2)
	assert.Zero(t, res.Unparseable)

	want := []model.Course{course("CS", "1010", 3), course("CS", "1020", 3)}
	assert.Equal(t, []model.Course{course("ITE", "115", 3), course("ITE", "120", 3)}, res.Equivalencies[0].Input)
	assert.Equal(t, want, res.Equivalencies[0].Output)
	assert.Equal(t, []model.Course{course("ITE", "119", model.UnknownCredits), course("ITE", "120", 3)}, res.Equivalencies[1].Input)
	assert.Equal(t, want, res.Equivalencies[1].Output)
}

func TestUVA_OutputSupplementReplacesNoCredit(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="equivalencies"`,
		[]string{"header"},
		[]string{"HIS 101", "3", "No Credit", ""},
		[]string{"", "", "HIST 1T", "3"},
	))
	res, err := uva{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 1)
	assert.Equal(t, []model.Course{course("HIST", "1T", 3)}, res.Equivalencies[0].Output)
	assert.Equal(t, model.Generic, res.Equivalencies[0].Type)
}

func TestUVA_BlankRowEndsRecord(t *testing.T) {
	doc := parseHTML(t, htmlTable(`class="equivalencies"`,
		[]string{"header"},
		[]string{"ACC 211", "3", "COMM 2010", "3"},
		[]string{"", "", "", ""},
		[]string{"ACC 212", "3", "", ""},
	))
	res, err := uva{}.ParseEquivalencies(doc)
	require.NoError(t, err)
	require.Len(t, res.Equivalencies, 1)
	assert.Equal(t, 1, res.Unparseable)
	assert.Equal(t, []model.Course{course("ACC", "211", 3)}, res.Equivalencies[0].Input)
}

func TestClassifyUVARow(t *testing.T) {
	cases := []struct {
		cells []string
		want  uvaRowType
	}{
		{[]string{"ACC 211", "3", "COMM 2010", "3"}, uvaNormal},
		{[]string{"", "", "", ""}, uvaEmpty},
		{[]string{}, uvaEmpty},
		{[]string{"ACC 212", "3", "", ""}, uvaInputSupplement},
		{[]string{"", "", "COMM 2020", ""}, uvaOutputSupplement},
		{[]string{"", "", "", "3"}, uvaUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyUVARow(tc.cells), "%q", tc.cells)
	}
}
