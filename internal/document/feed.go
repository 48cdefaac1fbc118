package document

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/hyperifyio/transferindex/internal/parse"
)

var (
	ErrNotJSON        = errors.New("body is not valid JSON")
	ErrMissingSection = errors.New("expected section not found")
)

// FeedEntriesPath is where spreadsheet exports keep their rows.
const FeedEntriesPath = "feed.entry"

// FeedEntries returns the array found at path.
func FeedEntries(body []byte, path string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrNotJSON
	}
	r := gjson.GetBytes(body, path)
	if !r.Exists() || !r.IsArray() {
		return nil, fmt.Errorf("%w: %s", ErrMissingSection, path)
	}
	return r.Array(), nil
}

// FeedField reads spreadsheet column name ("gsx$<name>.$t") from an entry.
// Missing columns read as "".
func FeedField(entry gjson.Result, name string) string {
	return parse.CleanCell(entry.Get("gsx$" + name + ".$t").String())
}
