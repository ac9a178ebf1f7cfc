package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/specialistvlad/testgrid/internal/campaign"
	"github.com/specialistvlad/testgrid/internal/ctxlog"
	"github.com/specialistvlad/testgrid/internal/events"
	"github.com/specialistvlad/testgrid/internal/events/mqtt"
	"github.com/specialistvlad/testgrid/internal/events/socketio"
	"github.com/specialistvlad/testgrid/internal/hcl_adapter"
	"github.com/specialistvlad/testgrid/internal/inmemorystore"
	"github.com/specialistvlad/testgrid/internal/pool"
	"github.com/specialistvlad/testgrid/internal/registry"
	"github.com/specialistvlad/testgrid/internal/sqlitestore"
	"github.com/specialistvlad/testgrid/internal/store"
	"github.com/specialistvlad/testgrid/internal/workspace"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx    context.Context
	outW   io.Writer
	logger *slog.Logger
	config *Config

	registry *registry.Registry
	store    store.Store
	bus      *events.Bus
	outcomes *outcomes
	pool     *pool.Pool
	runner   *campaign.Runner
	loader   *hcl_adapter.Loader

	httpServer *http.Server
	// closers release event sink resources, in order, after the bus is closed.
	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// An empty module list selects the built-in catalog. On error everything
// opened so far is released.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, modules ...registry.Module) (app *App, err error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	app = &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   cfg,
		outcomes: newOutcomes(),
		loader:   hcl_adapter.NewLoader(),
	}
	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
			app = nil
		}
	}()

	if len(modules) == 0 {
		modules = coreModules
	}
	app.registry = registry.New(modules...)
	if err := app.registry.Discover(ctx); err != nil {
		return nil, err
	}

	if app.store, err = openStore(ctx, cfg); err != nil {
		return nil, err
	}
	logger.Debug("Store opened.", "driver", cfg.StoreDriver)

	sinks, err := app.openSinks(ctx)
	if err != nil {
		return nil, err
	}
	app.bus = events.NewBus(0, sinks...)

	opts := campaign.Options{
		Store:   app.store,
		Plugins: app.registry,
		Reports: app.registry,
		Sink:    events.SinkFunc(app.emit),
	}
	if cfg.WorkspaceRoot != "" {
		ws, err := workspace.NewLocal(cfg.WorkspaceRoot)
		if err != nil {
			return nil, err
		}
		opts.Workspace = ws
		logger.Debug("Workspace configured.", "root", ws.Root())
	}
	app.pool = pool.New(ctx, cfg.Workers, cfg.QueueSize)
	opts.Pool = app.pool
	app.runner = campaign.New(opts)

	logger.Debug("Application initialized.", "workers", cfg.Workers, "queue", cfg.QueueSize)
	return app, nil
}

func openStore(ctx context.Context, cfg *Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case StoreSQLite:
		return sqlitestore.Open(ctx, cfg.StoreDSN)
	case StoreMemory, "":
		return inmemorystore.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openSinks builds the event sinks selected by the configuration.
func (a *App) openSinks(ctx context.Context) ([]events.Sink, error) {
	cfg := a.config
	sinks := []events.Sink{events.LogSink{Level: slog.LevelDebug}}

	if cfg.Console {
		sinks = append(sinks, events.NewConsoleSink(a.outW, cfg.NoColor))
	}
	if cfg.TraceFile != "" {
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		sinks = append(sinks, events.NewTraceWriter(f))
	}
	if cfg.SocketIOURL != "" {
		s, err := socketio.Dial(ctx, socketio.Options{URL: cfg.SocketIOURL})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		sinks = append(sinks, s)
	}
	if cfg.MQTTBroker != "" {
		c, err := mqtt.Connect(ctx, mqtt.Options{Broker: cfg.MQTTBroker, TopicPrefix: cfg.MQTTTopicPrefix})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		sinks = append(sinks, mqtt.NewSink(c, cfg.MQTTTopicPrefix))
	}
	return sinks, nil
}

// emit records outcomes synchronously before handing the event to the bus.
func (a *App) emit(ctx context.Context, e events.Event) {
	a.outcomes.Emit(ctx, e)
	a.bus.Emit(ctx, e)
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Store returns the application's store.
func (a *App) Store() store.Store {
	return a.store
}

// Runner returns the campaign runner.
func (a *App) Runner() *campaign.Runner {
	return a.runner
}

// Close waits for running campaigns, stops the servers and releases
// every resource. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		ctx = ctxlog.WithLogger(ctx, a.logger)
		logger := a.logger
		logger.Debug("Closing application...")

		var errs []error
		if a.runner != nil {
			if err := a.runner.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown runner: %w", err))
			}
		}
		if err := a.closeHealthCheckServer(ctx); err != nil {
			errs = append(errs, err)
		}
		if a.bus != nil {
			a.bus.Close()
			m := a.bus.Metrics()
			logger.Debug("Event bus closed.", "published", m.Published, "delivered", m.Delivered, "dropped", m.Dropped)
		}
		for _, c := range a.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store: %w", err))
			}
		}
		a.closeErr = errors.Join(errs...)
		logger.Debug("Application closed.")
	})
	return a.closeErr
}
