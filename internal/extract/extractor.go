// Package extract turns each institution's published transfer table into
// course equivalencies.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/model"
)

var (
	// ErrStructure marks a source whose expected table or section is gone.
	// It fails the institution, never a single row.
	ErrStructure = errors.New("source structure not found")
	// ErrUnknownRow is returned for a UVA row that fits no known layout.
	ErrUnknownRow = errors.New("unknown row layout")
)

// Extractor produces the equivalencies for one institution.
type Extractor interface {
	Institution() model.Institution
	FindAll(ctx context.Context) (model.EquivalencyContext, error)
}

// Parser supplies the parts of an extractor that differ per institution.
// T is the intermediate form the body is converted to.
type Parser[T any] interface {
	Institution() model.Institution
	Source() fetch.Source
	ParseBody(body []byte) (T, error)
	ParseEquivalencies(doc T) (Result, error)
}

// Runner implements Extractor on top of a Parser: fetch, convert, extract.
type Runner[T any] struct {
	Parser  Parser[T]
	Fetcher fetch.Fetcher
}

func (r *Runner[T]) Institution() model.Institution { return r.Parser.Institution() }

// FindAll fetches the institution's source and extracts every equivalency.
func (r *Runner[T]) FindAll(ctx context.Context) (model.EquivalencyContext, error) {
	inst := r.Parser.Institution()
	logger := log.With().Str("inst", inst.Acronym).Logger()

	body, err := r.Fetcher.Fetch(ctx, r.Parser.Source(), inst.Acronym)
	if err != nil {
		return model.EquivalencyContext{}, fmt.Errorf("fetch %s: %w", inst.Acronym, err)
	}
	logger.Debug().Int("bytes", len(body)).Msg("fetched")

	doc, err := r.Parser.ParseBody(body)
	if err != nil {
		return model.EquivalencyContext{}, fmt.Errorf("%s: %w: %w", inst.Acronym, ErrStructure, err)
	}
	res, err := r.Parser.ParseEquivalencies(doc)
	if err != nil {
		return model.EquivalencyContext{}, fmt.Errorf("%s: %w", inst.Acronym, err)
	}
	out := model.NewContext(inst, res.Equivalencies, res.Unparseable)
	ev := logger.Info()
	if out.Suspect() {
		ev = logger.Warn()
	}
	ev.Int("equivalencies", len(out.Equivalencies)).
		Int("unparseable", out.Unparseable).
		Float64("rate", out.ParseSuccessRate).
		Msg("extracted")
	return out, nil
}

// Result is what ParseEquivalencies hands back to the runner.
type Result struct {
	Equivalencies []model.CourseEquivalency
	Unparseable   int
}

func (r *Result) add(eqs ...model.CourseEquivalency) {
	r.Equivalencies = append(r.Equivalencies, eqs...)
}

// fail counts a row that could not be interpreted.
func (r *Result) fail(inst string, row int, raw string, err error) {
	r.Unparseable++
	log.Debug().Str("inst", inst).Int("row", row).Str("raw", raw).Err(err).Msg("unparseable row")
}

// skip logs a row that is intentionally ignored. It is not counted.
func skip(inst string, row int, reason string) {
	log.Debug().Str("inst", inst).Int("row", row).Str("reason", reason).Msg("skipped row")
}
