package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/testgrid/internal/action"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/store"
)

// routes returns the handler of the health check server.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /reports/{id}", a.reportHandler)
	mux.HandleFunc("GET /reports/{id}/render", a.renderHandler)
	return mux
}

// healthHandler reports liveness along with a few engine counters.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	m := a.bus.Metrics()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"active_runs":   a.runner.Active(),
		"plugins":       len(a.registry.List()),
		"plugin_errors": len(a.registry.Errors()),
		"events": map[string]int64{
			"published": m.Published,
			"delivered": m.Delivered,
			"dropped":   m.Dropped,
		},
	})
}

func (a *App) reportHandler(w http.ResponseWriter, r *http.Request) {
	rep, err := a.store.Reports().FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// renderHandler renders a report. The format query parameter selects the
// plugin; every other parameter is passed as an option.
func (a *App) renderHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "html"
	}
	cfg := action.Config{}
	for k := range q {
		if k != "format" {
			cfg[k] = q.Get(k)
		}
	}

	out, err := a.Render(r.Context(), r.PathValue("id"), format, cfg)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Data)
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var notFound *action.PluginNotFoundError
	var invalid *action.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
	default:
		a.logger.Error("Request failed.", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// healthCheckServer starts the health check HTTP server when a port is
// configured. The listener is bound before returning.
func (a *App) healthCheckServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring health check server.")
	if a.config.HealthcheckPort <= 0 {
		logger.Warn("Health check server not started: disabled")
		return nil
	}

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("health check server: %w", err)
	}
	a.httpServer = &http.Server{
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeHealthCheckServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Closing health check server...")

	if a.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}

	logger.Debug("Health check server shut down gracefully.")
	return nil
}
