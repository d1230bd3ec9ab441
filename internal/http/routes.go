package httpx

import (
	"net/http"

	"github.com/repofetch/repofetch/internal/export"
	"github.com/repofetch/repofetch/internal/plugin"
	"github.com/repofetch/repofetch/internal/service"
)

// RouterServices holds the services the HTTP router wires handlers to.
type RouterServices struct {
	Jobs           *service.JobService
	PluginRunner   *plugin.Runner
	PluginRegistry *plugin.Registry
	Exporter       *export.Exporter
	// ExportDir, when set, is served read-only under /files for exported CSVs.
	ExportDir string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	jobHandlers := &JobHandlers{Svc: services.Jobs}
	registerJobRoutes(mux, jobHandlers)

	if services.PluginRunner != nil && services.PluginRegistry != nil {
		pluginHandlers := &PluginHandlers{Runner: services.PluginRunner, Registry: services.PluginRegistry}
		registerPluginRoutes(mux, pluginHandlers)
	}

	if services.Exporter != nil {
		exportHandlers := &ExportHandlers{Svc: services.Jobs, Exporter: services.Exporter}
		mux.HandleFunc("POST /api/jobs/{id}/export", exportHandlers.ExportJob)
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.ExportDir != "" {
		mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(services.ExportDir))))
	}

	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/jobs", h.CreateJob)
	mux.HandleFunc("GET /api/jobs", h.GetJobs)
	mux.HandleFunc("PUT /api/jobs/{id}", h.UpdateJob)
	mux.HandleFunc("POST /api/jobs/{id}/start", h.StartJob)
	mux.HandleFunc("POST /api/jobs/{id}/cancel", h.CancelJob)
}

func registerPluginRoutes(mux *http.ServeMux, h *PluginHandlers) {
	mux.HandleFunc("GET /api/plugins", h.ListPlugins)
	mux.HandleFunc("POST /api/jobs/{id}/plugins/{plugin}", h.ExecutePlugin)
}
