// Package model defines the core data types and structures used throughout
// the repofetch job system.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/repofetch/repofetch/internal/errors"
)

// Platform identifies a supported Git hosting platform.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Platform string

// Mode represents how a fetch job builds its platform requests.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Mode string

// State represents the current state of a fetch job.
type State string

// LogLevel classifies a job log line.
type LogLevel string

const (
	// PlatformGitHub fetches through GitHub's GraphQL search API.
	PlatformGitHub Platform = "GITHUB"
	// PlatformGitLab fetches through GitLab's GraphQL projects API.
	PlatformGitLab Platform = "GITLAB"
	// PlatformBitbucket fetches through Bitbucket's paginated REST API.
	PlatformBitbucket Platform = "BITBUCKET"

	// ModeAssistant builds platform queries from settings and a requested field tree.
	ModeAssistant Mode = "ASSISTANT"
	// ModeExpert forwards a caller-supplied raw query verbatim, skipping translation.
	ModeExpert Mode = "EXPERT"

	// StateCreated indicates a job has been created but not started.
	StateCreated State = "CREATED"
	// StateRunning indicates a job is currently executing.
	StateRunning State = "RUNNING"
	// StateDone indicates a job finished successfully with its result attached.
	StateDone State = "DONE"
	// StateFailed indicates a job terminated with an unrecoverable error.
	StateFailed State = "FAILED"
	// StateCancelled indicates a job was cancelled before or during execution.
	StateCancelled State = "CANCELLED"

	// LogDebug marks verbose log lines hidden unless debug output is requested.
	LogDebug LogLevel = "DEBUG"
	// LogInfo marks informational progress lines.
	LogInfo LogLevel = "INFO"
	// LogWarning marks recoverable anomalies (token rotated, retry attempted).
	LogWarning LogLevel = "WARNING"
	// LogError marks failures recorded before a terminal transition.
	LogError LogLevel = "ERROR"
)

// Valid returns true if the Platform is one of the registered identifiers.
func (p Platform) Valid() bool {
	return p == PlatformGitHub || p == PlatformGitLab || p == PlatformBitbucket
}

// UnmarshalText implements encoding.TextUnmarshaler for Platform to allow
// case-insensitive parsing from env and request payloads.
func (p *Platform) UnmarshalText(text []byte) error {
	v := Platform(strings.ToUpper(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid platform: %q", string(text))
	}
	*p = v
	return nil
}

// Valid returns true if the Mode is a known job mode.
func (m Mode) Valid() bool {
	return m == ModeAssistant || m == ModeExpert
}

// UnmarshalText implements encoding.TextUnmarshaler for Mode.
func (m *Mode) UnmarshalText(text []byte) error {
	v := Mode(strings.ToUpper(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid mode: %q", string(text))
	}
	*m = v
	return nil
}

// Valid returns true if the State is a known job state.
func (s State) Valid() bool {
	switch s {
	case StateCreated, StateRunning, StateDone, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true for states with no outgoing transitions.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// FetchSettings bound a fetch: how many repositories, how many merge requests
// per repository, and the platform filters to apply.
type FetchSettings struct {
	RepoCount           int    `json:"repo_count"`
	MaxMRs              int    `json:"max_mrs"`
	SearchTerm          string `json:"search_term"`
	ProgrammingLanguage string `json:"programming_language"`
}

// Validate checks the settings bounds.
func (s *FetchSettings) Validate() error {
	if s.RepoCount <= 0 {
		return apperrors.ValidationField("repo_count", "repo count must be positive")
	}
	if s.MaxMRs < 0 {
		return apperrors.ValidationField("max_mrs", "max merge requests must be >= 0")
	}
	return nil
}

// LogEntry is a single timestamped job log line. Entries are append-only and
// never reordered.
type LogEntry struct {
	At      time.Time `json:"at"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
}

// NewLogEntry builds a log entry stamped with the current time.
func NewLogEntry(level LogLevel, message string) LogEntry {
	return LogEntry{At: time.Now().UTC(), Level: level, Message: message}
}

// Job represents a fetch job with its configuration, state, log, and result.
// Mode strictly determines which configuration is populated: ASSISTANT jobs
// carry Settings and Fields, EXPERT jobs carry RawQuery, never both.
type Job struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Platform Platform `json:"platform"`
	Mode     Mode     `json:"mode"`
	State    State    `json:"state"`

	Settings *FetchSettings `json:"settings,omitempty"`
	Fields   []FieldRequest `json:"requested_fields,omitempty"`
	RawQuery string         `json:"raw_query,omitempty"`

	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	ExecutionSeconds *float64   `json:"execution_seconds,omitempty"`

	Log []LogEntry `json:"log"`

	Repos     []RepoData      `json:"repo_data,omitempty"`
	RawResult json.RawMessage `json:"raw_result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateJobRequest represents a request to create a new fetch job.
type CreateJobRequest struct {
	Name     string         `json:"name"`
	Platform Platform       `json:"platform"`
	Mode     Mode           `json:"mode"`
	Settings *FetchSettings `json:"settings,omitempty"`
	Fields   []FieldRequest `json:"requested_fields,omitempty"`
	RawQuery string         `json:"raw_query,omitempty"`
}

// Validate validates the CreateJobRequest fields, including the mode/payload
// exclusivity rules and the requested field tree.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.ValidationField("name", "name is required")
	}
	if !r.Platform.Valid() {
		return apperrors.ValidationField("platform", "invalid platform")
	}
	if !r.Mode.Valid() {
		return apperrors.ValidationField("mode", "invalid mode")
	}

	switch r.Mode {
	case ModeAssistant:
		if strings.TrimSpace(r.RawQuery) != "" {
			return apperrors.Validation("assistant mode does not accept a raw query")
		}
		if r.Settings == nil || len(r.Fields) == 0 {
			return apperrors.Validation("assistant mode requires settings and requested fields")
		}
		if err := r.Settings.Validate(); err != nil {
			return err
		}
		if err := ValidateFields(r.Fields); err != nil {
			return err
		}
	case ModeExpert:
		if r.Settings != nil || len(r.Fields) > 0 {
			return apperrors.Validation("expert mode does not accept settings or requested fields")
		}
		if strings.TrimSpace(r.RawQuery) == "" {
			return apperrors.Validation("expert mode requires a raw query")
		}
	}
	return nil
}

// NewJob builds a Job in state CREATED from a validated create request.
func NewJob(req *CreateJobRequest) *Job {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Platform:  req.Platform,
		Mode:      req.Mode,
		State:     StateCreated,
		Log:       []LogEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Mode == ModeAssistant {
		settings := *req.Settings
		job.Settings = &settings
		job.Fields = cloneFields(req.Fields)
	} else {
		job.RawQuery = req.RawQuery
	}
	return job
}

// JobUpdate carries optional replacement values for a CREATED job. Nil fields
// are left untouched.
type JobUpdate struct {
	Name     *string        `json:"name,omitempty"`
	Settings *FetchSettings `json:"settings,omitempty"`
	Fields   []FieldRequest `json:"requested_fields,omitempty"`
	RawQuery *string        `json:"raw_query,omitempty"`
}

// Apply merges the update into the job and re-validates the resulting
// configuration against the job's mode.
func (u *JobUpdate) Apply(job *Job) error {
	if u.Name != nil {
		if strings.TrimSpace(*u.Name) == "" {
			return apperrors.ValidationField("name", "name must not be empty")
		}
		job.Name = *u.Name
	}
	switch job.Mode {
	case ModeAssistant:
		if u.RawQuery != nil {
			return apperrors.Validation("assistant mode does not accept a raw query")
		}
		if u.Settings != nil {
			if err := u.Settings.Validate(); err != nil {
				return err
			}
			settings := *u.Settings
			job.Settings = &settings
		}
		if len(u.Fields) > 0 {
			if err := ValidateFields(u.Fields); err != nil {
				return err
			}
			job.Fields = cloneFields(u.Fields)
		}
	case ModeExpert:
		if u.Settings != nil || len(u.Fields) > 0 {
			return apperrors.Validation("expert mode does not accept settings or requested fields")
		}
		if u.RawQuery != nil {
			if strings.TrimSpace(*u.RawQuery) == "" {
				return apperrors.ValidationField("raw_query", "raw query must not be empty")
			}
			job.RawQuery = *u.RawQuery
		}
	}
	return nil
}

// JobFinish carries the terminal state and result of a job execution. State
// and result are applied as one atomic unit by the repository.
type JobFinish struct {
	State     State
	Repos     []RepoData
	RawResult json.RawMessage
	EndedAt   time.Time
}

// Clone returns a deep copy of the job so concurrent readers never observe
// executor mutations in flight.
func (j *Job) Clone() *Job {
	out := *j
	if j.Settings != nil {
		settings := *j.Settings
		out.Settings = &settings
	}
	out.Fields = cloneFields(j.Fields)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.EndedAt != nil {
		t := *j.EndedAt
		out.EndedAt = &t
	}
	if j.ExecutionSeconds != nil {
		v := *j.ExecutionSeconds
		out.ExecutionSeconds = &v
	}
	out.Log = make([]LogEntry, len(j.Log))
	copy(out.Log, j.Log)
	if j.Repos != nil {
		out.Repos = make([]RepoData, len(j.Repos))
		for i := range j.Repos {
			out.Repos[i] = *j.Repos[i].Clone()
		}
	}
	if j.RawResult != nil {
		out.RawResult = make(json.RawMessage, len(j.RawResult))
		copy(out.RawResult, j.RawResult)
	}
	return &out
}

// UUIDValid reports whether id parses as a job identifier.
func UUIDValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
