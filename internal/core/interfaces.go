// Package core defines the ports between the fetch engine's services and its
// adapters (platform fetchers, job stores, plugins).
package core

import (
	"context"
	"encoding/json"

	"github.com/repofetch/repofetch/internal/domain/model"
)

// JobLogger appends one line to a running job's log. Implementations must
// preserve append order; lines are visible to concurrent readers while the
// job is still RUNNING.
type JobLogger func(level model.LogLevel, message string)

// Nop is a JobLogger that discards everything.
func Nop(model.LogLevel, string) {}

// Fetcher is the capability interface every platform adapter implements.
type Fetcher interface {
	// Fetch builds platform-native requests from the settings and flattened
	// field paths, executes them, and normalizes the responses into canonical
	// records in platform result order. Transport failures are classified
	// (authentication, rate_limited, transient) and returned to the caller;
	// per-repository extraction failures degrade the affected field to unset.
	Fetch(ctx context.Context, settings model.FetchSettings, fields []string, log JobLogger) ([]model.RepoData, error)

	// FetchRaw forwards rawQuery verbatim to the platform's GraphQL endpoint
	// and returns the decoded response body unmodified. REST-only platforms
	// return an unsupported_operation error.
	FetchRaw(ctx context.Context, rawQuery string, log JobLogger) (json.RawMessage, error)
}

// FetcherResolver maps a platform identifier to its adapter.
type FetcherResolver interface {
	Resolve(platform model.Platform) (Fetcher, error)
}

// JobRepository stores jobs and enforces state transition guards so that
// state and result are always updated as one atomic unit.
type JobRepository interface {
	// Create stores a new job. The job must be in state CREATED.
	Create(ctx context.Context, job *model.Job) error

	// GetByID returns a copy of the job or a not_found error.
	GetByID(ctx context.Context, id string) (*model.Job, error)

	// List returns copies of all known jobs, oldest first.
	List(ctx context.Context) ([]*model.Job, error)

	// UpdateConfig applies upd to a job still in CREATED; any other state is
	// an invalid_state error.
	UpdateConfig(ctx context.Context, id string, upd *model.JobUpdate) (*model.Job, error)

	// MarkRunning transitions CREATED -> RUNNING and records the start time.
	// Any other current state is an invalid_state error.
	MarkRunning(ctx context.Context, id string) (*model.Job, error)

	// AppendLog appends one entry to the job's log.
	AppendLog(ctx context.Context, id string, entry model.LogEntry) error

	// Finish transitions the job to a terminal state and attaches the result
	// atomically. Allowed transitions: RUNNING -> DONE|FAILED|CANCELLED and
	// CREATED -> CANCELLED.
	Finish(ctx context.Context, id string, fin model.JobFinish) (*model.Job, error)
}

// Analyzer is a plugin function run over a completed job's normalized data.
// local selects local file paths over served-file URLs for exported artifacts.
type Analyzer func(job *model.Job, export ExportSink, local bool) (*model.PluginResult, error)

// ExportSink is handed to analyzers for writing artifact files.
type ExportSink interface {
	// WriteCSV writes one CSV file and returns a local path (local=true) or a
	// served-file URL.
	WriteCSV(name string, header []string, rows [][]string, local bool) (string, error)
}

// RawPayload wraps an opaque platform response for expert mode jobs.
type RawPayload = json.RawMessage
