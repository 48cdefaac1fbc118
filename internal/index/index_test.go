package index

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/transferindex/internal/extract"
	"github.com/hyperifyio/transferindex/internal/model"
)

type fakeExtractor struct {
	inst   model.Institution
	equivs []model.CourseEquivalency
	bad    int
	err    error
	panics bool
	delay  time.Duration

	inFlight, peak *int32
}

func (f *fakeExtractor) Institution() model.Institution { return f.inst }

func (f *fakeExtractor) FindAll(ctx context.Context) (model.EquivalencyContext, error) {
	if f.inFlight != nil {
		n := atomic.AddInt32(f.inFlight, 1)
		defer atomic.AddInt32(f.inFlight, -1)
		for {
			p := atomic.LoadInt32(f.peak)
			if n <= p || atomic.CompareAndSwapInt32(f.peak, p, n) {
				break
			}
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.EquivalencyContext{}, ctx.Err()
		}
	}
	if f.panics {
		panic("index out of range")
	}
	if f.err != nil {
		return model.EquivalencyContext{}, f.err
	}
	return model.NewContext(f.inst, f.equivs, f.bad), nil
}

func equiv(t *testing.T, subject, number string) model.CourseEquivalency {
	t.Helper()
	in := []model.Course{{Subject: subject, Number: number, Credits: model.ExactCredits(3)}}
	out := []model.Course{{Subject: subject + "X", Number: number, Credits: model.ExactCredits(3)}}
	e, err := model.NewEquivalency(in, out, model.Direct)
	require.NoError(t, err)
	return e
}

func inst(acronym string) model.Institution {
	return model.Institution{Acronym: acronym, ParseSuccessThreshold: 0.9}
}

func TestRun_AllSucceed(t *testing.T) {
	ix := &Indexer{Extractors: []extract.Extractor{
		&fakeExtractor{inst: inst("GMU"), equivs: []model.CourseEquivalency{equiv(t, "ACC", "211")}, delay: 20 * time.Millisecond},
		&fakeExtractor{inst: inst("VT"), equivs: []model.CourseEquivalency{equiv(t, "ENG", "111"), equiv(t, "ENG", "112")}},
	}}
	rep, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rep.RunID)
	require.Len(t, rep.Contexts, 2)
	assert.Equal(t, "GMU", rep.Contexts[0].Institution.Acronym, "extractor order is kept")
	assert.Equal(t, 3, rep.Summary.Equivalencies)
	assert.Empty(t, rep.Failures)
	assert.False(t, rep.FinishedAt.Before(rep.StartedAt))
}

func TestRun_FailureIsIsolated(t *testing.T) {
	boom := errors.New("table#vccs-equivalencies not found")
	ix := &Indexer{Extractors: []extract.Extractor{
		&fakeExtractor{inst: inst("GMU"), err: boom},
		&fakeExtractor{inst: inst("GT"), panics: true},
		&fakeExtractor{inst: inst("VT"), equivs: []model.CourseEquivalency{equiv(t, "ENG", "111")}, delay: 30 * time.Millisecond},
	}}
	rep, err := ix.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var ie *InstitutionError
	require.ErrorAs(t, err, &ie)

	require.Len(t, rep.Contexts, 1)
	assert.Equal(t, "VT", rep.Contexts[0].Institution.Acronym)
	assert.Equal(t, []string{"GMU", "GT"}, rep.Summary.Failed)
	require.Len(t, rep.Failures, 2)
	assert.Contains(t, rep.Failures[1].Error, "panic")
}

func TestRun_DropsDuplicates(t *testing.T) {
	e := equiv(t, "ACC", "211")
	fx := &fakeExtractor{inst: inst("CNU"), equivs: []model.CourseEquivalency{e, e}}
	rep, err := (&Indexer{Extractors: []extract.Extractor{fx}}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.Contexts[0].Equivalencies, 1)
	assert.Equal(t, 1.0, rep.Contexts[0].ParseSuccessRate)

	rep, err = (&Indexer{Extractors: []extract.Extractor{fx}, KeepDuplicates: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.Contexts[0].Equivalencies, 2)
}

func TestRun_MaxConcurrent(t *testing.T) {
	var inFlight, peak int32
	var exs []extract.Extractor
	for _, a := range []string{"CNU", "GMU", "GT", "UVA", "VCU", "VT", "W&M"} {
		exs = append(exs, &fakeExtractor{inst: inst(a), delay: 30 * time.Millisecond, inFlight: &inFlight, peak: &peak})
	}
	rep, err := (&Indexer{Extractors: exs, MaxConcurrent: 2}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.Contexts, 7)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRun_SuspectInstitution(t *testing.T) {
	fx := &fakeExtractor{inst: inst("W&M"), equivs: []model.CourseEquivalency{equiv(t, "BIO", "101")}, bad: 9}
	rep, err := (&Indexer{Extractors: []extract.Extractor{fx}}).Run(context.Background())
	require.NoError(t, err, "a low success rate is a warning, not an error")
	assert.Equal(t, []string{"W&M"}, rep.Summary.Suspect)
	assert.InDelta(t, 0.1, rep.Contexts[0].ParseSuccessRate, 1e-9)
}
