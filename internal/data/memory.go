// Package data provides the job store implementations behind the
// core.JobRepository port: in-memory (default), Postgres, and Redis.
package data

import (
	"context"
	"sync"
	"time"

	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// MemoryJobRepo is the default job store. All reads return deep copies so
// concurrent readers never observe executor mutations in flight.
type MemoryJobRepo struct {
	mu    sync.RWMutex
	jobs  map[string]*model.Job
	order []string
}

// NewMemoryJobRepo creates an empty in-memory job store.
func NewMemoryJobRepo() *MemoryJobRepo {
	return &MemoryJobRepo{jobs: make(map[string]*model.Job)}
}

// Create stores a new job.
func (r *MemoryJobRepo) Create(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return apperrors.Newf(apperrors.ErrCodeConflict, "job %s already exists", job.ID)
	}
	r.jobs[job.ID] = job.Clone()
	r.order = append(r.order, job.ID)
	return nil
}

// GetByID returns a copy of the job or a not_found error.
func (r *MemoryJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return job.Clone(), nil
}

// List returns copies of all known jobs, oldest first.
func (r *MemoryJobRepo) List(_ context.Context) ([]*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.jobs[id].Clone())
	}
	return out, nil
}

// UpdateConfig applies upd to a job still in CREATED.
func (r *MemoryJobRepo) UpdateConfig(_ context.Context, id string, upd *model.JobUpdate) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if job.State != model.StateCreated {
		return nil, apperrors.InvalidStatef("job %s is %s, only CREATED jobs can be updated", id, job.State)
	}
	updated := job.Clone()
	if err := upd.Apply(updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()
	r.jobs[id] = updated
	return updated.Clone(), nil
}

// MarkRunning transitions CREATED -> RUNNING and records the start time.
func (r *MemoryJobRepo) MarkRunning(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if job.State != model.StateCreated {
		return nil, apperrors.InvalidStatef("job %s is %s, only CREATED jobs can be started", id, job.State)
	}
	now := time.Now().UTC()
	job.State = model.StateRunning
	job.StartedAt = &now
	job.UpdatedAt = now
	return job.Clone(), nil
}

// AppendLog appends one entry to the job's log.
func (r *MemoryJobRepo) AppendLog(_ context.Context, id string, entry model.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return apperrors.NotFoundf("job %s not found", id)
	}
	job.Log = append(job.Log, entry)
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Finish transitions the job to a terminal state and attaches the result as
// one atomic unit.
func (r *MemoryJobRepo) Finish(_ context.Context, id string, fin model.JobFinish) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err := checkFinishTransition(job.State, fin.State); err != nil {
		return nil, err
	}
	applyFinish(job, fin)
	return job.Clone(), nil
}

// checkFinishTransition enforces the terminal edges of the state machine:
// RUNNING -> DONE|FAILED|CANCELLED and CREATED -> CANCELLED.
func checkFinishTransition(current, target model.State) error {
	if !target.Terminal() {
		return apperrors.InvalidStatef("%s is not a terminal state", target)
	}
	switch current {
	case model.StateRunning:
		return nil
	case model.StateCreated:
		if target == model.StateCancelled {
			return nil
		}
		return apperrors.InvalidStatef("cannot finish a CREATED job as %s", target)
	default:
		return apperrors.InvalidStatef("job already terminal (%s)", current)
	}
}

func applyFinish(job *model.Job, fin model.JobFinish) {
	ended := fin.EndedAt
	if ended.IsZero() {
		ended = time.Now().UTC()
	}
	job.State = fin.State
	job.Repos = fin.Repos
	job.RawResult = fin.RawResult
	job.EndedAt = &ended
	if job.StartedAt != nil {
		secs := ended.Sub(*job.StartedAt).Seconds()
		job.ExecutionSeconds = &secs
	}
	job.UpdatedAt = ended
}
