package httpx

import (
	"errors"
	"net/http"

	"github.com/repofetch/repofetch/internal/export"
	apperrors "github.com/repofetch/repofetch/internal/errors"
	"github.com/repofetch/repofetch/internal/service"
)

// ExportHandlers provides HTTP handlers for CSV export of job results.
type ExportHandlers struct {
	Svc      *service.JobService
	Exporter *export.Exporter
}

// ExportJob handles HTTP requests to export a DONE job's repository data as
// CSV. local=true returns the file path on the server instead of a
// served-file URL.
func (h *ExportHandlers) ExportJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}
	local := r.URL.Query().Get("local") == "true"

	jobs, err := h.Svc.Get(r.Context(), jobID, true)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if len(jobs) == 0 {
		WriteAppError(w, apperrors.NotFoundf("job %s not found", jobID))
		return
	}

	location, err := h.Exporter.WriteJobData(jobs[0], local)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"location": location})
}
