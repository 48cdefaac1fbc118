package parse

import (
	"errors"
	"regexp"
	"strings"

	"github.com/hyperifyio/transferindex/internal/model"
)

// DefaultGenericMarker is the suffix most institutions use for placeholder
// course numbers, as in "HIST 1XX".
const DefaultGenericMarker = "XX"

// ErrNoCourses is returned when there is nothing to classify.
var ErrNoCourses = errors.New("cannot classify an empty course list")

// DetermineEquivType returns Generic when any course number ends with marker
// and Direct otherwise. The comparison is case-sensitive.
func DetermineEquivType(courses []model.Course, marker string) (model.EquivType, error) {
	if len(courses) == 0 {
		return "", ErrNoCourses
	}
	for _, c := range courses {
		if strings.HasSuffix(c.Number, marker) {
			return model.Generic, nil
		}
	}
	return model.Direct, nil
}

// Classify is DetermineEquivType with DefaultGenericMarker.
func Classify(courses []model.Course) (model.EquivType, error) {
	return DetermineEquivType(courses, DefaultGenericMarker)
}

// Sentinel maps a recognizable target cell, such as "NOGT" or "DEPT", to the
// type it stands for.
type Sentinel struct {
	Pattern *regexp.Regexp
	Type    model.EquivType
}

// Sentinels are checked in order against a cleaned, upper-cased cell.
type Sentinels []Sentinel

// Match returns the type of the first matching sentinel.
func (s Sentinels) Match(cell string) (model.EquivType, bool) {
	cell = strings.ToUpper(CleanCell(cell))
	for _, sn := range s {
		if sn.Pattern.MatchString(cell) {
			return sn.Type, true
		}
	}
	return "", false
}

// SentinelOutput is the output course list recorded for a sentinel type.
func SentinelOutput(t model.EquivType) []model.Course {
	if t == model.None {
		return []model.Course{model.NoCreditCourse()}
	}
	return []model.Course{}
}
