// Package runner executes fetch jobs asynchronously: starting a job returns
// immediately and the run is observable only through the job's state and log.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
	obserrors "github.com/repofetch/repofetch/internal/observability/errors"
)

// Executor owns the RUNNING phase of the job state machine. Each launched job
// runs in its own goroutine with a cancellable context; cancellation is
// cooperative and observed at the fetcher's suspension points.
type Executor struct {
	repo     core.JobRepository
	resolver core.FetcherResolver
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an executor over the given store and platform resolver.
func New(repo core.JobRepository, resolver core.FetcherResolver, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
}

// Launch transitions the job to RUNNING and starts its execution goroutine.
// Returns synchronously once the transition is recorded.
func (e *Executor) Launch(ctx context.Context, id string) error {
	job, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	fetcher, err := e.resolver.Resolve(job.Platform)
	if err != nil {
		return err
	}
	job, err = e.repo.MarkRunning(ctx, id)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.running[id] = cancel
	e.mu.Unlock()

	e.wg.Add(1)
	go e.execute(runCtx, job, fetcher)
	return nil
}

// Cancel requests cancellation. A CREATED job transitions directly to
// CANCELLED with no network activity; a RUNNING job is flagged and lands in
// CANCELLED at its next suspension point. Terminal jobs cannot be cancelled.
func (e *Executor) Cancel(ctx context.Context, id string) error {
	job, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch job.State {
	case model.StateCreated:
		_, err := e.repo.Finish(ctx, id, model.JobFinish{State: model.StateCancelled})
		return err
	case model.StateRunning:
		e.mu.Lock()
		cancel, ok := e.running[id]
		e.mu.Unlock()
		if !ok {
			// not owned by this executor, force the terminal transition
			_, err := e.repo.Finish(ctx, id, model.JobFinish{State: model.StateCancelled})
			return err
		}
		if err := e.repo.AppendLog(ctx, id, model.NewLogEntry(model.LogInfo, "cancellation requested")); err != nil {
			return err
		}
		cancel()
		return nil
	default:
		return apperrors.InvalidStatef("job %s is already %s", id, job.State)
	}
}

// Wait blocks until every launched job has finished. For shutdown and tests.
func (e *Executor) Wait() {
	e.wg.Wait()
}

func (e *Executor) execute(ctx context.Context, job *model.Job, fetcher core.Fetcher) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		delete(e.running, job.ID)
		e.mu.Unlock()
	}()

	jobLog := e.jobLogger(job.ID)

	fin := model.JobFinish{State: model.StateDone}
	var runErr error
	if job.Mode == model.ModeExpert {
		fin.RawResult, runErr = fetcher.FetchRaw(ctx, job.RawQuery, jobLog)
	} else {
		fields := model.FlattenFields(job.Fields)
		fin.Repos, runErr = fetcher.Fetch(ctx, *job.Settings, fields, jobLog)
	}

	switch {
	case runErr == nil:
	case ctx.Err() != nil || errors.Is(runErr, context.Canceled):
		// cancelled mid-flight: partial data is discarded, only the log survives
		jobLog(model.LogInfo, "job cancelled")
		fin = model.JobFinish{State: model.StateCancelled}
	default:
		jobLog(model.LogError, "job failed: "+runErr.Error())
		fin = model.JobFinish{State: model.StateFailed}
	}

	if _, err := e.repo.Finish(context.Background(), job.ID, fin); err != nil {
		e.logger.Error("finishing job",
			"job_id", job.ID,
			"target_state", fin.State,
			"error", err,
			"error_class", obserrors.Classify(err))
		return
	}
	if runErr != nil && fin.State == model.StateFailed {
		e.logger.Warn("job failed",
			"job_id", job.ID,
			"error", runErr,
			"error_class", obserrors.Classify(runErr))
	}
}

// jobLogger adapts the job's append-only log to the core.JobLogger callback
// handed into fetchers. Entries are written through the repository so
// concurrent readers observe them while the job is still RUNNING.
func (e *Executor) jobLogger(id string) core.JobLogger {
	return func(level model.LogLevel, message string) {
		if err := e.repo.AppendLog(context.Background(), id, model.NewLogEntry(level, message)); err != nil {
			e.logger.Warn("appending job log", "job_id", id, "error", err)
		}
		e.logger.Debug("job log", "job_id", id, "level", level, "message", message)
	}
}
