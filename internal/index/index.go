// Package index runs the institution extractors concurrently and gathers
// their output into one report.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/transferindex/internal/aggregate"
	"github.com/hyperifyio/transferindex/internal/extract"
	"github.com/hyperifyio/transferindex/internal/model"
)

// InstitutionError is the failure of a single institution. Siblings are
// unaffected by it.
type InstitutionError struct {
	Acronym string
	Err     error
}

func (e *InstitutionError) Error() string { return e.Acronym + ": " + e.Err.Error() }
func (e *InstitutionError) Unwrap() error { return e.Err }

// Failure is the serializable form of an InstitutionError.
type Failure struct {
	Acronym string `json:"acronym"`
	Error   string `json:"error"`
}

// Report is the outcome of one run.
type Report struct {
	RunID      uuid.UUID                  `json:"runId"`
	StartedAt  time.Time                  `json:"startedAt"`
	FinishedAt time.Time                  `json:"finishedAt"`
	Contexts   []model.EquivalencyContext `json:"contexts"`
	Failures   []Failure                  `json:"failures,omitempty"`
	Summary    aggregate.Summary          `json:"summary"`
}

// Indexer fans out over Extractors.
type Indexer struct {
	Extractors []extract.Extractor
	// MaxConcurrent bounds parallel extractions. Zero means one per extractor.
	MaxConcurrent int
	// KeepDuplicates disables dropping repeated equivalencies.
	KeepDuplicates bool
}

// Run extracts every institution and waits for all of them. Contexts keep
// the extractor order. A failing institution never cancels the others; its
// error is joined into the returned error, which is nil only when every
// institution succeeded. The report is returned either way.
func (ix *Indexer) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	logger := log.With().Str("run_id", rep.RunID.String()).Logger()
	logger.Info().Int("institutions", len(ix.Extractors)).Msg("index run started")

	contexts := make([]*model.EquivalencyContext, len(ix.Extractors))
	errs := make([]error, len(ix.Extractors))

	// no WithContext: a sibling failure must not cancel the rest
	var g errgroup.Group
	if ix.MaxConcurrent > 0 {
		g.SetLimit(ix.MaxConcurrent)
	}
	for i, e := range ix.Extractors {
		g.Go(func() error {
			c, err := findAll(ctx, e)
			if err != nil {
				errs[i] = &InstitutionError{Acronym: e.Institution().Acronym, Err: err}
				return nil
			}
			contexts[i] = &c
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	for i, c := range contexts {
		if errs[i] != nil {
			var ie *InstitutionError
			errors.As(errs[i], &ie)
			failed = append(failed, ie.Acronym)
			rep.Failures = append(rep.Failures, Failure{Acronym: ie.Acronym, Error: ie.Err.Error()})
			logger.Error().Err(ie.Err).Str("inst", ie.Acronym).Msg("institution failed")
			continue
		}
		if !ix.KeepDuplicates {
			c.Equivalencies = aggregate.MergeAndNormalize(c.Equivalencies)
		}
		rep.Contexts = append(rep.Contexts, *c)
	}
	rep.FinishedAt = time.Now().UTC()
	rep.Summary = aggregate.Summarize(rep.Contexts, failed)
	logger.Info().
		Int("equivalencies", rep.Summary.Equivalencies).
		Int("unparseable", rep.Summary.Unparseable).
		Strs("suspect", rep.Summary.Suspect).
		Strs("failed", failed).
		Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("index run finished")
	return rep, errors.Join(errs...)
}

// findAll isolates a panicking extractor to its own institution.
func findAll(ctx context.Context, e extract.Extractor) (c model.EquivalencyContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.FindAll(ctx)
}
