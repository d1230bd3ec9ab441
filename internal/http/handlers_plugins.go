package httpx

import (
	"errors"
	"net/http"

	"github.com/repofetch/repofetch/internal/plugin"
)

// PluginHandlers provides HTTP handlers for analyzer plugins.
type PluginHandlers struct {
	Runner   *plugin.Runner
	Registry *plugin.Registry
}

// ListPlugins handles HTTP requests to enumerate registered plugins.
func (h *PluginHandlers) ListPlugins(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]string{"plugins": h.Registry.Names()})
}

// ExecutePlugin handles HTTP requests to run a plugin over a completed job.
// local=true returns file paths on the server instead of served-file URLs.
func (h *PluginHandlers) ExecutePlugin(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	pluginID := r.PathValue("plugin")
	if jobID == "" || pluginID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id and plugin name are required")},
		)
		return
	}
	local := r.URL.Query().Get("local") == "true"

	result, err := h.Runner.Run(r.Context(), jobID, pluginID, local)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
