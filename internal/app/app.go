// Package app wires configuration, logging, metrics, the UI synchronization
// context, the simulated fleet and the preflight view model into a runnable
// simulation.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dshills/missioncontrol/internal/concurrent"
	"github.com/dshills/missioncontrol/internal/config"
	"github.com/dshills/missioncontrol/internal/config/watcher"
	"github.com/dshills/missioncontrol/internal/drone"
	"github.com/dshills/missioncontrol/internal/logging"
	"github.com/dshills/missioncontrol/internal/measure"
	"github.com/dshills/missioncontrol/internal/metrics"
	"github.com/dshills/missioncontrol/internal/preflight"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses defaults
	// and the environment only.
	ConfigPath string

	// Watch reloads the configuration file when it changes.
	Watch bool

	// Duration overrides simulation.duration when positive.
	Duration time.Duration

	// Logger replaces the logger built from the configuration.
	Logger *zap.Logger

	// Registry receives the metrics. A new registry is created when nil.
	Registry *prometheus.Registry

	// ConfigOptions are passed to the configuration manager.
	ConfigOptions []config.Option
}

// Application owns every component of a simulation run.
type Application struct {
	mu sync.Mutex

	opts     Options
	configs  *config.Manager
	logger   *logging.Logger
	registry *prometheus.Registry

	dispatchMetrics *metrics.Dispatch
	pathMetrics     *metrics.Paths

	ui      *concurrent.Affinity
	style   *measure.Style
	scope   *drone.FlightScope
	drones  []*drone.Drone
	catalog preflight.Catalog
	vm      *preflight.ViewModel
	watcher *watcher.Watcher

	running atomic.Bool
	closed  bool
}

// New loads the configuration and builds every component.
func New(ctx context.Context, opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := app.bootstrap(ctx); err != nil {
		app.teardown(context.Background())
		return nil, err
	}
	return app, nil
}

// bootstrap initializes components in dependency order.
func (app *Application) bootstrap(ctx context.Context) error {
	// 1. Configuration
	app.configs = config.NewManager(app.opts.ConfigPath, app.opts.ConfigOptions...)
	if err := app.configs.Load(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	cfg := app.configs.Config()

	// 2. Logging
	if app.opts.Logger != nil {
		app.logger = logging.Wrap(app.opts.Logger)
	} else {
		l, err := logging.New(cfg.Log.Level, cfg.Log.Development)
		if err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		app.logger = l
	}

	// 3. Metrics
	app.registry = app.opts.Registry
	if app.registry == nil {
		app.registry = prometheus.NewRegistry()
	}
	app.dispatchMetrics = metrics.NewDispatch(app.registry)
	app.pathMetrics = metrics.NewPaths(app.registry)

	// 4. UI synchronization context
	mode, _ := concurrent.ParseMode(cfg.Dispatch.Mode)
	app.ui = concurrent.NewAffinity(
		concurrent.WithName("ui"),
		concurrent.WithMode(mode),
		concurrent.WithQueueSize(cfg.Dispatch.QueueSize),
		concurrent.WithLogger(app.logger.Logger),
		concurrent.WithMetrics(app.dispatchMetrics),
		concurrent.WithErrorHandler(func(err error) {
			app.logger.Warn("ui task failed", zap.Error(err))
		}),
	)
	if err := app.ui.Start(); err != nil {
		return &InitError{Component: "ui context", Err: err}
	}

	// 5. Fleet
	system, _ := measure.ParseSystem(cfg.Display.Units)
	app.style = measure.NewStyle(system)

	scope, err := drone.NewFlightScope(app.ui)
	if err != nil {
		return &InitError{Component: "flight scope", Err: err}
	}
	app.scope = scope

	droneOpts := []drone.Option{
		drone.WithSynchronizationContext(app.ui),
		drone.WithStyle(app.style),
	}
	if cfg.Access.FailFast {
		droneOpts = append(droneOpts, drone.WithFailFast())
	}
	for i := 0; i < cfg.Simulation.Drones; i++ {
		// Drones report their platform once connected.
		d, err := drone.New(nil, append(droneOpts, drone.WithSerial(fmt.Sprintf("MC-%03d", i+1)))...)
		if err != nil {
			return &InitError{Component: "drone", Err: err}
		}
		app.drones = append(app.drones, d)
		app.scope.Add(d)
	}

	// 6. Preflight view model
	if app.catalog, err = preflight.LoadCatalog(cfg.Simulation.Checklists); err != nil {
		return &InitError{Component: "checklist catalog", Err: err}
	}
	app.vm, err = preflight.NewViewModel(ctx, app.scope, app.catalog,
		preflight.WithLogger(app.logger.Logger),
		preflight.WithMetrics(app.pathMetrics))
	if err != nil {
		return &InitError{Component: "preflight view model", Err: err}
	}

	// 7. Live reload
	if app.opts.Watch {
		if err := app.startWatcher(); err != nil {
			return &InitError{Component: "config watcher", Err: err}
		}
	}

	app.logger.Info("mission control ready",
		zap.Int("drones", len(app.drones)),
		zap.String("dispatch", mode.String()),
		zap.Bool("failFast", cfg.Access.FailFast),
		zap.String("units", system.String()))
	return nil
}

// Config returns the current configuration.
func (app *Application) Config() *config.Config { return app.configs.Config() }

// Logger returns the application logger.
func (app *Application) Logger() *zap.Logger { return app.logger.Logger }

// Registry returns the metrics registry.
func (app *Application) Registry() *prometheus.Registry { return app.registry }

// Scope returns the flight scope.
func (app *Application) Scope() *drone.FlightScope { return app.scope }

// Drones returns the simulated drones.
func (app *Application) Drones() []*drone.Drone { return append([]*drone.Drone(nil), app.drones...) }

// ViewModel returns the preflight view model.
func (app *Application) ViewModel() *preflight.ViewModel { return app.vm }

// Style returns the display style shared by all quantity properties.
func (app *Application) Style() *measure.Style { return app.style }

// UI returns the UI synchronization context.
func (app *Application) UI() *concurrent.Affinity { return app.ui }

// Shutdown releases every component. Queued UI tasks run before the UI
// context stops, unless ctx ends first.
func (app *Application) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return nil
	}
	app.closed = true
	app.mu.Unlock()

	err := app.teardown(ctx)
	app.logger.Info("mission control stopped")
	_ = app.logger.Sync()
	return err
}

func (app *Application) teardown(ctx context.Context) error {
	var errs []error
	if app.watcher != nil {
		errs = append(errs, app.watcher.Close())
	}
	if app.vm != nil {
		app.vm.Close()
	}
	if app.scope != nil {
		app.scope.Close()
	}
	for _, d := range app.drones {
		d.Dispose()
	}
	if app.ui != nil && app.ui.IsRunning() {
		errs = append(errs, app.ui.Stop(ctx))
	}
	return errors.Join(errs...)
}
