package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/transferindex/internal/aggregate"
	"github.com/hyperifyio/transferindex/internal/index"
	"github.com/hyperifyio/transferindex/internal/model"
)

//go:embed schema.sql
var schema string

const insertRun = `INSERT INTO index_runs (id, started_at, finished_at, institutions, equivalencies, unparseable, failed) VALUES ($1, $2, $3, $4, $5, $6, $7)`

const upsertInstitution = `INSERT INTO institutions (acronym, full_name, location, parse_success_threshold) VALUES ($1, $2, $3, $4) ON CONFLICT (acronym) DO UPDATE SET full_name=EXCLUDED.full_name, location=EXCLUDED.location, parse_success_threshold=EXCLUDED.parse_success_threshold`

const insertInstitutionRun = `INSERT INTO institution_runs (run_id, institution, equivalencies, unparseable, parse_success_rate, suspect) VALUES ($1, $2, $3, $4, $5, $6)`

const upsertEquivalency = `INSERT INTO equivalencies (institution, key_subject, key_number, signature, type, input, output, last_run_id) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (institution, key_subject, key_number, signature) DO UPDATE SET type=EXCLUDED.type, input=EXCLUDED.input, output=EXCLUDED.output, last_run_id=EXCLUDED.last_run_id, updated_at=now()`

// Postgres persists runs and upserts their equivalencies.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Open connects to the database at url.
func Open(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() { p.Pool.Close() }

// Migrate creates the tables when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// equivalencyRow is one upsert into the equivalencies table.
type equivalencyRow struct {
	Institution string
	KeySubject  string
	KeyNumber   string
	Signature   string
	Type        string
	Input       string
	Output      string
}

func equivalencyRows(acronym string, equivs []model.CourseEquivalency) ([]equivalencyRow, error) {
	rows := make([]equivalencyRow, 0, len(equivs))
	for _, eq := range equivs {
		in, err := json.Marshal(eq.Input)
		if err != nil {
			return nil, fmt.Errorf("%s %s input: %w", acronym, eq.KeyCourse, err)
		}
		out, err := json.Marshal(eq.Output)
		if err != nil {
			return nil, fmt.Errorf("%s %s output: %w", acronym, eq.KeyCourse, err)
		}
		rows = append(rows, equivalencyRow{
			Institution: acronym,
			KeySubject:  eq.KeyCourse.Subject,
			KeyNumber:   eq.KeyCourse.Number,
			Signature:   aggregate.Signature(eq),
			Type:        string(eq.Type),
			Input:       string(in),
			Output:      string(out),
		})
	}
	return rows, nil
}

func execCallback(pgconn.CommandTag) error { return nil }

// SaveRun records rep in a single transaction: the run row, then per
// institution its metadata, its counts and one batch of equivalency upserts.
func (p *Postgres) SaveRun(ctx context.Context, rep *index.Report) error {
	runID := rep.RunID.String()
	failed := rep.Summary.Failed
	if failed == nil {
		failed = []string{}
	}
	return pgx.BeginFunc(ctx, p.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertRun, runID, rep.StartedAt, rep.FinishedAt,
			rep.Summary.Institutions, rep.Summary.Equivalencies, rep.Summary.Unparseable, failed); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, c := range rep.Contexts {
			if err := saveContext(ctx, tx, runID, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func saveContext(ctx context.Context, tx pgx.Tx, runID string, c model.EquivalencyContext) error {
	inst := c.Institution
	rows, err := equivalencyRows(inst.Acronym, c.Equivalencies)
	if err != nil {
		return err
	}

	batch := pgx.Batch{}
	batch.Queue(upsertInstitution, inst.Acronym, inst.FullName, inst.Location, inst.ParseSuccessThreshold).Exec(execCallback)
	batch.Queue(insertInstitutionRun, runID, inst.Acronym, len(c.Equivalencies), c.Unparseable, c.ParseSuccessRate, c.Suspect()).Exec(execCallback)
	for _, r := range rows {
		batch.Queue(upsertEquivalency, r.Institution, r.KeySubject, r.KeyNumber, r.Signature, r.Type, r.Input, r.Output, runID).Exec(execCallback)
	}
	if err := tx.SendBatch(ctx, &batch).Close(); err != nil {
		return fmt.Errorf("save %s: %w", inst.Acronym, err)
	}
	log.Debug().Str("inst", inst.Acronym).Int("rows", len(rows)).Msg("equivalencies saved")
	return nil
}
