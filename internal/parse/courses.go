package parse

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/hyperifyio/transferindex/internal/model"
)

var (
	ErrNoCourse           = errors.New("no course found")
	ErrUnrecognizedToken  = errors.New("unrecognized course token")
	ErrMissingSubject     = errors.New("course number without a subject")
	ErrDanglingSubject    = errors.New("subject without a course number")
	ErrUnsupportedNesting = errors.New("unsupported and/or nesting")
)

var (
	separatorRe  = regexp.MustCompile(`(?i)\s*[,&+/]\s*|\s(?:and|or)\s`)
	orSplitRe    = regexp.MustCompile(`(?i)\sor\s`)
	hyphenatedRe = regexp.MustCompile(`^([A-Z]{2,5})-(.+)$`)
	gluedRe      = regexp.MustCompile(`^([A-Z]{2,4})([0-9]{2,4}[A-Z]*)$`)
	subjectRe    = regexp.MustCompile(`^[A-Z]{2,5}$`)
	numberRe     = regexp.MustCompile(`^[0-9A-Z#-]{2,5}$`)
	genericRe    = regexp.MustCompile(`^X{2,4}$`)
)

// ParseCourseList turns a course description such as "MTH 175 + 176" or
// "BIOL-152 and BIOZ-1XX or BIOL-1XX" into alternatives. The outer slice is
// joined by "or", the inner slices by "and". Credit values from creditsStr
// are assigned to courses in the order they appear; courses beyond the end
// of the credit list get unknown credits.
//
// Only one level of mixing is understood: "X and Y or Z" becomes [X Y] and
// [X Z]. Anything deeper returns ErrUnsupportedNesting.
func ParseCourseList(courseStr, creditsStr string) ([][]model.Course, error) {
	credits, err := InterpretCredits(creditsStr)
	if err != nil {
		return nil, err
	}
	s := NormalizeWhitespace(courseStr)
	lower := strings.ToLower(s)
	hasAnd := strings.Contains(lower, " and ")
	hasOr := strings.Contains(lower, " or ")

	sc := &courseScanner{credits: &creditCursor{values: credits}}
	if hasAnd && hasOr {
		return sc.mixed(s)
	}
	courses, err := sc.scan(s)
	if err != nil {
		return nil, err
	}
	if hasOr {
		alts := make([][]model.Course, 0, len(courses))
		for _, c := range courses {
			alts = append(alts, []model.Course{c})
		}
		return alts, nil
	}
	return [][]model.Course{courses}, nil
}

// ParseCourses is ParseCourseList for callers that expect a single
// conjunctive list, such as a table cell that never contains "or".
func ParseCourses(courseStr, creditsStr string) ([]model.Course, error) {
	alts, err := ParseCourseList(courseStr, creditsStr)
	if err != nil {
		return nil, err
	}
	if len(alts) != 1 {
		return nil, fmt.Errorf("%w: %q has %d alternatives", ErrUnsupportedNesting, courseStr, len(alts))
	}
	return alts[0], nil
}

type courseScanner struct {
	credits *creditCursor
	// subject carries over between halves of a mixed list
	subject string
}

func (sc *courseScanner) mixed(s string) ([][]model.Course, error) {
	halves := orSplitRe.Split(s, -1)
	if len(halves) != 2 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNesting, s)
	}
	first, err := sc.scan(halves[0])
	if err != nil {
		return nil, err
	}
	second, err := sc.scan(halves[1])
	if err != nil {
		return nil, err
	}
	if len(second) != 1 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNesting, s)
	}
	base := first[:len(first)-1]
	branchA := append(slices.Clone(base), first[len(first)-1])
	branchB := append(slices.Clone(base), second[0])
	return [][]model.Course{branchA, branchB}, nil
}

// scan walks the tokens of s left to right. Alphabetic tokens set the current
// subject; numeric tokens become courses under it.
func (sc *courseScanner) scan(s string) ([]model.Course, error) {
	var courses []model.Course
	pending := false
	for _, tok := range tokenize(s) {
		switch {
		case genericRe.MatchString(tok) && sc.subject != "":
			// "ENGL XXX": all-X numbers look like subjects
		case subjectRe.MatchString(tok):
			sc.subject = tok
			pending = true
			continue
		case !isCourseNumber(tok):
			return nil, fmt.Errorf("%w: %q in %q", ErrUnrecognizedToken, tok, s)
		}
		if sc.subject == "" {
			return nil, fmt.Errorf("%w: %q in %q", ErrMissingSubject, tok, s)
		}
		courses = append(courses, model.Course{
			Subject: sc.subject,
			Number:  tok,
			Credits: sc.credits.take(),
		})
		pending = false
	}
	if pending {
		return nil, fmt.Errorf("%w: %q", ErrDanglingSubject, s)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoCourse, s)
	}
	return courses, nil
}

// tokenize splits on the list separators and pulls apart "BIOL-152" and
// "CHEM1025" into subject and number tokens.
func tokenize(s string) []string {
	s = separatorRe.ReplaceAllString(strings.ToUpper(s), " ")
	var out []string
	for _, field := range strings.Fields(s) {
		field = strings.Trim(field, "().;:")
		if field == "" {
			continue
		}
		if m := hyphenatedRe.FindStringSubmatch(field); m != nil {
			out = append(out, m[1], m[2])
			continue
		}
		if m := gluedRe.FindStringSubmatch(field); m != nil {
			out = append(out, m[1], m[2])
			continue
		}
		out = append(out, field)
	}
	return out
}

func isCourseNumber(tok string) bool {
	return numberRe.MatchString(tok) && strings.ContainsAny(tok, "0123456789")
}
