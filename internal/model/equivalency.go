// Package model holds the canonical transfer equivalency schema that every
// institution extractor produces.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned when an equivalency is built without any input course.
var ErrEmptyInput = errors.New("equivalency input must contain at least one course")

// Course is one class offering at one institution.
type Course struct {
	Subject string  `json:"subject"`
	Number  string  `json:"number"`
	Credits Credits `json:"credits"`
}

// Key projects the course onto its identity.
func (c Course) Key() KeyCourse {
	return KeyCourse{Subject: c.Subject, Number: c.Number}
}

func (c Course) String() string {
	return c.Subject + " " + c.Number
}

// KeyCourse is the subject and number of a course, used for lookups.
type KeyCourse struct {
	Subject string `json:"subject"`
	Number  string `json:"number"`
}

func (k KeyCourse) String() string {
	return k.Subject + " " + k.Number
}

// NoCreditCourse is the output placeholder of an equivalency that does not transfer.
func NoCreditCourse() Course {
	return Course{Subject: "NONE", Number: "000", Credits: ExactCredits(0)}
}

// EquivType classifies how a set of courses transfers.
type EquivType string

const (
	Direct  EquivType = "DIRECT"
	Generic EquivType = "GENERIC"
	Special EquivType = "SPECIAL"
	None    EquivType = "NONE"
)

// EquivTypes lists every type in reporting order.
var EquivTypes = []EquivType{Direct, Generic, Special, None}

// ParseEquivType accepts any casing of a known type name.
func ParseEquivType(s string) (EquivType, error) {
	t := EquivType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EquivTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown equivalency type %q", s)
}

// CourseEquivalency states that completing Input at the source institution
// satisfies Output at the target institution.
type CourseEquivalency struct {
	KeyCourse KeyCourse `json:"keyCourse"`
	Input     []Course  `json:"input"`
	Output    []Course  `json:"output"`
	Type      EquivType `json:"type"`
}

// NewEquivalency builds an equivalency keyed by the first input course.
func NewEquivalency(input, output []Course, typ EquivType) (CourseEquivalency, error) {
	if len(input) == 0 {
		return CourseEquivalency{}, ErrEmptyInput
	}
	return CourseEquivalency{
		KeyCourse: input[0].Key(),
		Input:     input,
		Output:    output,
		Type:      typ,
	}, nil
}

// Institution is the static description of a target university.
type Institution struct {
	Acronym  string `json:"acronym"`
	FullName string `json:"fullName"`
	Location string `json:"location"`
	// ParseSuccessThreshold is the lowest ParseSuccessRate considered trustworthy.
	ParseSuccessThreshold float64 `json:"parseSuccessThreshold"`
}

// EquivalencyContext is the output of one institution's extraction.
type EquivalencyContext struct {
	Institution      Institution         `json:"institution"`
	Equivalencies    []CourseEquivalency `json:"equivalencies"`
	Unparseable      int                 `json:"unparseable"`
	ParseSuccessRate float64             `json:"parseSuccessRate"`
}

// NewContext computes the parse success rate as parsed/(parsed+unparseable).
// A run that produced nothing at all has a rate of zero.
func NewContext(inst Institution, equivs []CourseEquivalency, unparseable int) EquivalencyContext {
	parsed := len(equivs)
	rate := 0.0
	if total := parsed + unparseable; total > 0 {
		rate = float64(parsed) / float64(total)
	}
	return EquivalencyContext{
		Institution:      inst,
		Equivalencies:    equivs,
		Unparseable:      unparseable,
		ParseSuccessRate: rate,
	}
}

// Suspect reports whether the success rate fell below the institution's threshold.
func (c EquivalencyContext) Suspect() bool {
	return c.ParseSuccessRate < c.Institution.ParseSuccessThreshold
}

// CountByType tallies the equivalencies per type.
func (c EquivalencyContext) CountByType() map[EquivType]int {
	counts := make(map[EquivType]int, len(EquivTypes))
	for _, e := range c.Equivalencies {
		counts[e.Type]++
	}
	return counts
}
