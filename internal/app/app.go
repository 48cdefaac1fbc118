// Package app wires configuration, fetching, extraction and the sinks into a
// single run.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/transferindex/internal/cache"
	"github.com/hyperifyio/transferindex/internal/extract"
	"github.com/hyperifyio/transferindex/internal/fetch"
	"github.com/hyperifyio/transferindex/internal/index"
	"github.com/hyperifyio/transferindex/internal/report"
	"github.com/hyperifyio/transferindex/internal/robots"
	"github.com/hyperifyio/transferindex/internal/store"
)

type App struct {
	cfg        Config
	extractors []extract.Extractor
	db         *store.Postgres
}

// ErrSink is returned when the run finished but an output could not be written.
var ErrSink = errors.New("output failed")

// New prepares the cache, the extractors and the database connection.
// Extractors may be supplied by the caller; nil builds the configured set.
func New(ctx context.Context, cfg Config, extractors []extract.Extractor) (*App, error) {
	a := &App{cfg: cfg}

	var sources *cache.Store
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				return nil, fmt.Errorf("clear cache: %w", err)
			}
		}
		if cfg.CachePurgeAfter > 0 {
			n, err := cache.PurgeByAge(cfg.CacheDir, cfg.CachePurgeAfter)
			if err != nil {
				log.Warn().Err(err).Msg("cache purge failed; continuing")
			} else if n > 0 {
				log.Info().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		sources = &cache.Store{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}

	if extractors == nil {
		httpClient := newHTTPClient(cfg.Timeout)
		f := &fetch.Client{
			HTTPClient:        httpClient,
			UserAgent:         cfg.UserAgent,
			MaxAttempts:       3,
			PerRequestTimeout: cfg.Timeout,
			RetryBackoff:      time.Second,
			Cache:             sources,
			MaxAge:            cfg.CacheMaxAge,
			CacheOnly:         cfg.CacheOnly,
			BypassCache:       cfg.Refresh,
			MaxConcurrent:     cfg.Concurrency,
		}
		if !cfg.IgnoreRobots {
			f.Gate = &robots.Checker{
				HTTPClient:  httpClient,
				Cache:       sources,
				UserAgent:   cfg.UserAgent,
				EntryExpiry: time.Hour,
			}
		}
		extractors = extract.All(f, cfg.Sources)
	}
	selected, err := extract.ByAcronym(extractors, cfg.Institutions)
	if err != nil {
		return nil, err
	}
	a.extractors = selected

	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if cfg.Migrate {
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, err
			}
		}
		a.db = db
	}
	return a, nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// Run indexes the selected institutions and writes every configured output.
// Outputs are written even when some institutions failed. The returned error
// joins institution failures (*index.InstitutionError) and ErrSink failures.
func (a *App) Run(ctx context.Context) (*index.Report, error) {
	ix := &index.Indexer{
		Extractors:     a.extractors,
		MaxConcurrent:  a.cfg.Concurrency,
		KeepDuplicates: a.cfg.KeepDuplicates,
	}
	rep, runErr := ix.Run(ctx)
	return rep, errors.Join(runErr, a.writeOutputs(ctx, rep))
}

func (a *App) writeOutputs(ctx context.Context, rep *index.Report) error {
	var errs []error
	if p := a.cfg.OutputPath; p != "" {
		sum, err := store.WriteJSON(p, rep)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: json: %w", ErrSink, err))
		} else {
			log.Info().Str("path", p).Str("sha256", sum).Msg("wrote equivalencies")
		}
	}
	if a.cfg.ReportPath != "" || a.cfg.ReportPDFPath != "" {
		md := report.Markdown(rep)
		if p := a.cfg.ReportPath; p != "" {
			if err := writeFile(p, []byte(md)); err != nil {
				errs = append(errs, fmt.Errorf("%w: report: %w", ErrSink, err))
			} else {
				log.Info().Str("path", p).Msg("wrote report")
			}
		}
		if p := a.cfg.ReportPDFPath; p != "" {
			if err := report.WritePDF(md, p); err != nil {
				errs = append(errs, fmt.Errorf("%w: pdf report: %w", ErrSink, err))
			} else {
				log.Info().Str("path", p).Msg("wrote pdf report")
			}
		}
	}
	if a.db != nil {
		if err := a.db.SaveRun(ctx, rep); err != nil {
			errs = append(errs, fmt.Errorf("%w: database: %w", ErrSink, err))
		} else {
			log.Info().Str("run_id", rep.RunID.String()).Msg("saved run to database")
		}
	}
	return errors.Join(errs...)
}

func writeFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}
