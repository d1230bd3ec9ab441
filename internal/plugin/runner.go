package plugin

import (
	"context"
	"log/slog"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// Runner executes registered analyzers over completed jobs. Analyzer panics
// and errors are isolated into structured failures; a plugin can never take
// down the process or corrupt a job.
type Runner struct {
	registry *Registry
	repo     core.JobRepository
	export   core.ExportSink
	logger   *slog.Logger
}

// NewRunner creates a plugin runner.
func NewRunner(registry *Registry, repo core.JobRepository, export core.ExportSink, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, repo: repo, export: export, logger: logger}
}

// Run executes the named plugin against a DONE assistant-mode job. Expert
// jobs carry only an opaque raw payload and have no analyzable data.
func (r *Runner) Run(ctx context.Context, jobID, pluginID string, localExport bool) (result *model.PluginResult, err error) {
	job, err := r.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.State != model.StateDone {
		return nil, apperrors.Newf(apperrors.ErrCodeJobNotReady, "job %s is %s, plugins require a DONE job", jobID, job.State)
	}
	if job.Mode != model.ModeAssistant {
		return nil, apperrors.Newf(apperrors.ErrCodeJobNotReady, "job %s carries a raw result, plugins require normalized data", jobID)
	}
	analyzer, err := r.registry.Get(pluginID)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("plugin panicked", "plugin", pluginID, "job_id", jobID, "panic", rec)
			result = nil
			err = apperrors.Newf(apperrors.ErrCodePlugin, "plugin %q panicked: %v", pluginID, rec)
		}
	}()

	result, runErr := analyzer(job, r.export, localExport)
	if runErr != nil {
		return nil, apperrors.Wrapf(runErr, apperrors.ErrCodePlugin, "plugin %q failed", pluginID)
	}
	return result, nil
}
