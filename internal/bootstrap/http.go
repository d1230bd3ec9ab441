package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/repofetch/repofetch/config"
	httpx "github.com/repofetch/repofetch/internal/http"
)

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *config.AppConfig, services *ServiceContainer, logger *slog.Logger) *http.Server {
	router := httpx.NewRouter(httpx.RouterServices{
		Jobs:           services.Jobs,
		PluginRunner:   services.PluginRunner,
		PluginRegistry: services.PluginRegistry,
		Exporter:       services.Exporter,
		ExportDir:      cfg.Export.Path,
	})

	// Order: Recover -> Logging -> Router
	handler := httpx.Recover(logger)(httpx.Logging(logger)(router))

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownHTTPServer gracefully shuts down the HTTP server and waits for
// in-flight jobs to settle.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, services *ServiceContainer, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if services != nil && services.Executor != nil {
		services.Executor.Wait()
	}

	logger.Info("HTTP server stopped")
	return nil
}
