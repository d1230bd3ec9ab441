// Package service implements the externally visible job operations on top of
// the store and the executor.
package service

import (
	"context"
	"log/slog"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// Launcher is the slice of the executor the service depends on.
type Launcher interface {
	Launch(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
}

// JobService exposes the job operations: create, start, cancel, update, and
// query with optional debug log visibility.
type JobService struct {
	repo   core.JobRepository
	exec   Launcher
	logger *slog.Logger
}

// NewJobService creates a JobService.
func NewJobService(repo core.JobRepository, exec Launcher, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{repo: repo, exec: exec, logger: logger}
}

// Create validates the request and stores a new job in state CREATED.
// Validation failures never reach the executor.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := model.NewJob(req)
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "job created",
		"job_id", job.ID, "platform", job.Platform, "mode", job.Mode)
	return job, nil
}

// Start launches the job's asynchronous execution and returns once the
// RUNNING transition is recorded.
func (s *JobService) Start(ctx context.Context, id string) (*model.Job, error) {
	if !model.UUIDValid(id) {
		return nil, apperrors.ValidationField("jobId", "malformed job id")
	}
	if err := s.exec.Launch(ctx, id); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "job started", "job_id", id)
	return s.repo.GetByID(ctx, id)
}

// Cancel requests cancellation of a CREATED or RUNNING job.
func (s *JobService) Cancel(ctx context.Context, id string) (*model.Job, error) {
	if !model.UUIDValid(id) {
		return nil, apperrors.ValidationField("jobId", "malformed job id")
	}
	if err := s.exec.Cancel(ctx, id); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "job cancellation requested", "job_id", id)
	return s.repo.GetByID(ctx, id)
}

// Update applies a configuration change to a job still in CREATED.
func (s *JobService) Update(ctx context.Context, id string, upd *model.JobUpdate) (*model.Job, error) {
	if !model.UUIDValid(id) {
		return nil, apperrors.ValidationField("jobId", "malformed job id")
	}
	if upd == nil {
		return nil, apperrors.Validation("job update is required")
	}
	return s.repo.UpdateConfig(ctx, id, upd)
}

// Get returns jobs with their current state, log, and result. With a job id
// it returns that job or an empty slice when unknown; without one it returns
// every job oldest first. DEBUG log lines are stripped unless includeDebug.
func (s *JobService) Get(ctx context.Context, jobID string, includeDebug bool) ([]*model.Job, error) {
	var jobs []*model.Job
	if jobID != "" {
		job, err := s.repo.GetByID(ctx, jobID)
		if apperrors.IsNotFound(err) {
			return []*model.Job{}, nil
		}
		if err != nil {
			return nil, err
		}
		jobs = []*model.Job{job}
	} else {
		var err error
		jobs, err = s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
	}
	if !includeDebug {
		for _, job := range jobs {
			job.Log = stripDebug(job.Log)
		}
	}
	return jobs, nil
}

func stripDebug(log []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, 0, len(log))
	for _, e := range log {
		if e.Level == model.LogDebug {
			continue
		}
		out = append(out, e)
	}
	return out
}
