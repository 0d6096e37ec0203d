package app

import (
	"go.uber.org/zap"

	"github.com/dshills/missioncontrol/internal/config/watcher"
	"github.com/dshills/missioncontrol/internal/measure"
)

func (app *Application) startWatcher() error {
	if app.configs.Path() == "" {
		app.logger.Warn("config watch requested without a config file")
		return nil
	}

	w, err := watcher.New(watcher.WithLogger(app.logger.Logger))
	if err != nil {
		return err
	}
	w.OnChange(func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove {
			app.logger.Warn("config file removed, keeping current settings", zap.String("path", ev.Path))
			return
		}
		_, _ = app.Reload()
	})
	if err := w.Watch(app.configs.Path()); err != nil {
		_ = w.Close()
		return err
	}
	app.watcher = w
	return nil
}

// Reload re-reads the configuration and applies the settings that can
// change at runtime: log.level and display.units. Other changes take effect
// on the next start.
func (app *Application) Reload() ([]string, error) {
	changed, err := app.configs.Reload()
	if err != nil {
		app.logger.Warn("config reload failed", zap.Error(err))
		return nil, err
	}

	cfg := app.configs.Config()
	for _, path := range changed {
		switch path {
		case "log.level":
			if err := app.logger.SetLevel(cfg.Log.Level); err != nil {
				app.logger.Warn("log level not changed", zap.Error(err))
			}
		case "display.units":
			if sys, ok := measure.ParseSystem(cfg.Display.Units); ok {
				app.style.SetSystem(sys)
			}
		default:
			app.logger.Info("setting changes on restart", zap.String("setting", path))
			continue
		}
		app.logger.Info("setting reloaded", zap.String("setting", path))
	}
	return changed, nil
}
