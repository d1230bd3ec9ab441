// Package httpx provides HTTP handlers and routing for the fetch engine API.
package httpx

import (
	"errors"
	"net/http"

	"github.com/repofetch/repofetch/internal/domain/model"
	"github.com/repofetch/repofetch/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc *service.JobService
}

// CreateJob handles HTTP requests to create a new fetch job.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// GetJobs handles HTTP requests to inspect jobs. Without a jobId query
// parameter every job is returned; with one, at most that job. An unknown id
// yields an empty list, not an error.
func (h *JobHandlers) GetJobs(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	includeDebug := r.URL.Query().Get("includeDebug") == "true"

	jobs, err := h.Svc.Get(r.Context(), jobID, includeDebug)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// StartJob handles HTTP requests to launch a created job.
func (h *JobHandlers) StartJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	job, err := h.Svc.Start(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// CancelJob handles HTTP requests to cancel a created or running job.
func (h *JobHandlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	job, err := h.Svc.Cancel(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// UpdateJob handles HTTP requests to reconfigure a job that has not started.
func (h *JobHandlers) UpdateJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	var upd model.JobUpdate
	if !DecodeJSON(w, r, &upd) {
		return
	}

	job, err := h.Svc.Update(r.Context(), jobID, &upd)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
