package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
)

// withURL overrides the published location of a parser's source.
type withURL[T any] struct {
	Parser[T]
	url string
}

func (w withURL[T]) Source() fetch.Source {
	src := w.Parser.Source()
	src.URL = w.url
	return src
}

func runner[T any](p Parser[T], f fetch.Fetcher, urls map[string]string) Extractor {
	if u := urls[p.Institution().Acronym]; u != "" {
		p = withURL[T]{Parser: p, url: u}
	}
	return &Runner[T]{Parser: p, Fetcher: f}
}

// All returns one extractor per supported institution. urls optionally
// replaces the source URL of an institution, keyed by acronym.
func All(f fetch.Fetcher, urls map[string]string) []Extractor {
	return []Extractor{
		runner[[][]string](cnu{}, f, urls),
		runner[*goquery.Document](gmu{}, f, urls),
		runner[*goquery.Document](gt{}, f, urls),
		runner[*goquery.Document](uva{}, f, urls),
		runner[[]gjson.Result](vcu{}, f, urls),
		runner[[]gjson.Result](vt{}, f, urls),
		runner[[][]string](wm{}, f, urls),
	}
}

// Institutions lists the metadata of every supported institution.
func Institutions() []model.Institution {
	all := All(nil, nil)
	out := make([]model.Institution, 0, len(all))
	for _, e := range all {
		out = append(out, e.Institution())
	}
	return out
}

// ByAcronym keeps the extractors named in acronyms, compared
// case-insensitively. An empty list keeps everything. Unknown names are an
// error.
func ByAcronym(all []Extractor, acronyms []string) ([]Extractor, error) {
	if len(acronyms) == 0 {
		return all, nil
	}
	var out []Extractor
	for _, a := range acronyms {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		found := false
		for _, e := range all {
			if strings.EqualFold(e.Institution().Acronym, a) {
				out = append(out, e)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown institution %q", a)
		}
	}
	return out, nil
}
