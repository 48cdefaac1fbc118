package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// UnknownCredits marks a course whose credit value was not published.
	UnknownCredits = -1
	// UnclearCredits marks a course whose credit value must be confirmed with the institution.
	UnclearCredits = -2
)

// Credits is either a single value (Min == Max) or a non-degenerate range
// (Min < Max). Use ExactCredits and CreditRange to construct values so that a
// range with equal bounds is never represented.
type Credits struct {
	Min int
	Max int
}

// ExactCredits returns a single credit value.
func ExactCredits(n int) Credits {
	return Credits{Min: n, Max: n}
}

// CreditRange returns the range between a and b in either order. Equal bounds
// collapse to a single value.
func CreditRange(a, b int) Credits {
	if a > b {
		a, b = b, a
	}
	return Credits{Min: a, Max: b}
}

// IsRange reports whether c spans more than one value.
func (c Credits) IsRange() bool { return c.Min != c.Max }

// Known reports whether c carries a real credit count rather than a marker.
func (c Credits) Known() bool { return c.Min >= 0 }

// Add sums two credit values. Unclear wins over unknown, and either marker
// poisons the sum.
func (c Credits) Add(o Credits) Credits {
	switch {
	case c.Min == UnclearCredits || o.Min == UnclearCredits:
		return ExactCredits(UnclearCredits)
	case !c.Known() || !o.Known():
		return ExactCredits(UnknownCredits)
	}
	return CreditRange(c.Min+o.Min, c.Max+o.Max)
}

func (c Credits) String() string {
	if c.IsRange() {
		return fmt.Sprintf("%d-%d", c.Min, c.Max)
	}
	return strconv.Itoa(c.Min)
}

type creditRangeJSON struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// MarshalJSON encodes a single value as a number and a range as {"min","max"}.
func (c Credits) MarshalJSON() ([]byte, error) {
	if c.IsRange() {
		return json.Marshal(creditRangeJSON{Min: c.Min, Max: c.Max})
	}
	return json.Marshal(c.Min)
}

func (c *Credits) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*c = ExactCredits(n)
		return nil
	}
	var r creditRangeJSON
	if err := json.Unmarshal(b, &r); err != nil {
		return fmt.Errorf("credits: %w", err)
	}
	*c = CreditRange(r.Min, r.Max)
	return nil
}
