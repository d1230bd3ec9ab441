package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// PostgresJobRepo stores jobs as JSONB documents with the state mirrored into
// its own column so transition guards run inside the database.
type PostgresJobRepo struct {
	DB *sql.DB
}

// NewPostgresJobRepo wraps an open database handle (pgx stdlib driver).
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{DB: db}
}

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
  id         TEXT PRIMARY KEY,
  state      TEXT NOT NULL,
  doc        JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at);
`

// EnsureSchema creates the jobs table if it does not exist.
func (r *PostgresJobRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, jobsSchema); err != nil {
		return fmt.Errorf("ensure jobs schema: %w", err)
	}
	return nil
}

// Create stores a new job.
func (r *PostgresJobRepo) Create(ctx context.Context, job *model.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encoding job")
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO jobs (id, state, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, job.ID, job.State, doc, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperrors.Newf(apperrors.ErrCodeConflict, "job %s already exists", job.ID)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "insert job")
	}
	return nil
}

// GetByID returns the job or a not_found error.
func (r *PostgresJobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var doc []byte
	err := r.DB.QueryRowContext(ctx, `SELECT doc FROM jobs WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "select job")
	}
	return decodeJob(doc)
}

// List returns all jobs, oldest first.
func (r *PostgresJobRepo) List(ctx context.Context) ([]*model.Job, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT doc FROM jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "list jobs")
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "scan job")
		}
		job, err := decodeJob(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "list jobs")
	}
	return out, nil
}

// UpdateConfig applies upd to a job still in CREATED.
func (r *PostgresJobRepo) UpdateConfig(ctx context.Context, id string, upd *model.JobUpdate) (*model.Job, error) {
	return r.mutate(ctx, id, func(job *model.Job) error {
		if job.State != model.StateCreated {
			return apperrors.InvalidStatef("job %s is %s, only CREATED jobs can be updated", id, job.State)
		}
		if err := upd.Apply(job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// MarkRunning transitions CREATED -> RUNNING and records the start time.
func (r *PostgresJobRepo) MarkRunning(ctx context.Context, id string) (*model.Job, error) {
	return r.mutate(ctx, id, func(job *model.Job) error {
		if job.State != model.StateCreated {
			return apperrors.InvalidStatef("job %s is %s, only CREATED jobs can be started", id, job.State)
		}
		now := time.Now().UTC()
		job.State = model.StateRunning
		job.StartedAt = &now
		job.UpdatedAt = now
		return nil
	})
}

// AppendLog appends one entry to the job's log with a single in-database
// JSONB concatenation, keeping writers from clobbering each other.
func (r *PostgresJobRepo) AppendLog(ctx context.Context, id string, entry model.LogEntry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encoding log entry")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET doc = jsonb_set(doc, '{log}', COALESCE(doc->'log', '[]'::jsonb) || $2::jsonb),
		    updated_at = $3
		WHERE id = $1
	`, id, encoded, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "append job log")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFoundf("job %s not found", id)
	}
	return nil
}

// Finish transitions the job to a terminal state and attaches the result.
func (r *PostgresJobRepo) Finish(ctx context.Context, id string, fin model.JobFinish) (*model.Job, error) {
	return r.mutate(ctx, id, func(job *model.Job) error {
		if err := checkFinishTransition(job.State, fin.State); err != nil {
			return err
		}
		applyFinish(job, fin)
		return nil
	})
}

// mutate runs a guarded read-modify-write of one job document under a row
// lock so state and result always change as one unit.
func (r *PostgresJobRepo) mutate(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	var doc []byte
	err = tx.QueryRowContext(ctx, `SELECT doc FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "select job")
	}
	job, err := decodeJob(doc)
	if err != nil {
		return nil, err
	}
	if err := fn(job); err != nil {
		return nil, err
	}
	updated, err := json.Marshal(job)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encoding job")
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET state = $2, doc = $3, updated_at = $4 WHERE id = $1
	`, id, job.State, updated, job.UpdatedAt); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "update job")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "commit tx")
	}
	return job, nil
}

func decodeJob(doc []byte) (*model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decoding job")
	}
	return &job, nil
}
