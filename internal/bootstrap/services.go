package bootstrap

import (
	"log/slog"

	"github.com/repofetch/repofetch/config"
	"github.com/repofetch/repofetch/internal/adapters/runner"
	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/export"
	"github.com/repofetch/repofetch/internal/plugin"
	"github.com/repofetch/repofetch/internal/service"
)

// ServiceContainer holds the assembled application services.
type ServiceContainer struct {
	Jobs           *service.JobService
	Executor       *runner.Executor
	PluginRegistry *plugin.Registry
	PluginRunner   *plugin.Runner
	Exporter       *export.Exporter
}

// ServiceDeps contains the dependencies services are built from.
type ServiceDeps struct {
	Config *config.AppConfig
	Repo   core.JobRepository
	Logger *slog.Logger
}

// NewServices assembles the executor, job service, exporter, and plugin
// runtime. Built-in plugins are registered here.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	factory := BuildFetchers(deps.Config)
	exec := runner.New(deps.Repo, factory, deps.Logger)
	jobs := service.NewJobService(deps.Repo, exec, deps.Logger)

	exporter := export.NewExporter(deps.Config.Export.Path, deps.Config.Export.BaseURL)

	registry := plugin.NewRegistry()
	if err := registry.Register(plugin.LanguageMetricsID, plugin.LanguageMetricsAnalyzer); err != nil {
		return nil, err
	}
	pluginRunner := plugin.NewRunner(registry, deps.Repo, exporter, deps.Logger)

	return &ServiceContainer{
		Jobs:           jobs,
		Executor:       exec,
		PluginRegistry: registry,
		PluginRunner:   pluginRunner,
		Exporter:       exporter,
	}, nil
}
