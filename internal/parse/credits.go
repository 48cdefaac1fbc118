package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperifyio/transferindex/internal/model"
)

// ErrMalformedCredits is returned when a credit segment is not an integer or range.
var ErrMalformedCredits = errors.New("malformed credits")

// InterpretCredits parses a comma-separated list of credit values such as
// "3", "3-4" or "3,1-5,4". The output keeps the order of the segments so
// callers can pair it positionally with a course list. An empty string yields
// an empty list.
func InterpretCredits(raw string) ([]model.Credits, error) {
	raw = NormalizeWhitespace(raw)
	if raw == "" {
		return []model.Credits{}, nil
	}
	segments := strings.Split(raw, ",")
	out := make([]model.Credits, 0, len(segments))
	for _, seg := range segments {
		c, err := interpretSegment(strings.TrimSpace(seg))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func interpretSegment(seg string) (model.Credits, error) {
	// a leading '-' is a sign, not a range separator
	if i := strings.Index(seg, "-"); i > 0 {
		lo, err := atoiSegment(seg[:i], seg)
		if err != nil {
			return model.Credits{}, err
		}
		hi, err := atoiSegment(seg[i+1:], seg)
		if err != nil {
			return model.Credits{}, err
		}
		return model.CreditRange(lo, hi), nil
	}
	n, err := atoiSegment(seg, seg)
	if err != nil {
		return model.Credits{}, err
	}
	return model.ExactCredits(n), nil
}

func atoiSegment(s, seg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedCredits, seg)
	}
	return n, nil
}

// creditCursor hands out credit values in order and falls back to unknown
// once the list runs out.
type creditCursor struct {
	values []model.Credits
	next   int
}

func (c *creditCursor) take() model.Credits {
	if c.next >= len(c.values) {
		return model.ExactCredits(model.UnknownCredits)
	}
	v := c.values[c.next]
	c.next++
	return v
}
