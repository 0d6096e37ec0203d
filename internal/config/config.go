package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/missioncontrol/internal/config/layer"
	"github.com/dshills/missioncontrol/internal/config/loader"
)

// Dispatch modes.
const (
	DispatchBlocking      = "blocking"
	DispatchFireAndForget = "fire-and-forget"
)

// Config is the decoded configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Access     AccessConfig     `yaml:"access"`
	Simulation SimulationConfig `yaml:"simulation"`
	Display    DisplayConfig    `yaml:"display"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DispatchConfig configures the UI synchronization context.
type DispatchConfig struct {
	Mode      string `yaml:"mode"`
	QueueSize int    `yaml:"queueSize"`
}

// AccessConfig configures access controllers.
type AccessConfig struct {
	FailFast bool `yaml:"failFast"`
}

// SimulationConfig configures the simulated fleet.
type SimulationConfig struct {
	Drones     int           `yaml:"drones"`
	Interval   time.Duration `yaml:"interval"`
	Duration   time.Duration `yaml:"duration"`
	Checklists string        `yaml:"checklists"`
}

// DisplayConfig configures how quantities are shown.
type DisplayConfig struct {
	Units string `yaml:"units"`
}

// Defaults returns the built-in settings as a nested map.
func Defaults() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":       "info",
			"development": false,
		},
		"dispatch": map[string]any{
			"mode":      DispatchBlocking,
			"queueSize": 1024,
		},
		"access": map[string]any{
			"failFast": false,
		},
		"simulation": map[string]any{
			"drones":     3,
			"interval":   "200ms",
			"duration":   "5s",
			"checklists": "",
		},
		"display": map[string]any{
			"units": "metric",
		},
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, path, msg string) {
		if !ok {
			errs = append(errs, &ValidationError{Path: path, Message: msg})
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, &ValidationError{Path: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)})
	}
	check(c.Dispatch.Mode == DispatchBlocking || c.Dispatch.Mode == DispatchFireAndForget,
		"dispatch.mode", fmt.Sprintf("unknown mode %q", c.Dispatch.Mode))
	check(c.Dispatch.QueueSize > 0, "dispatch.queueSize", "must be positive")
	check(c.Simulation.Drones > 0, "simulation.drones", "must be positive")
	check(c.Simulation.Interval > 0, "simulation.interval", "must be positive")
	check(c.Simulation.Duration >= 0, "simulation.duration", "must not be negative")
	check(c.Display.Units == "metric" || c.Display.Units == "imperial",
		"display.units", fmt.Sprintf("unknown system %q", c.Display.Units))

	return errors.Join(errs...)
}

// Decode converts a merged settings map into a Config and validates it.
func Decode(data map[string]any) (*Config, error) {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads defaults, the file at path and the environment. An empty path
// skips the file layer.
func Load(path string) (*Config, error) {
	m := NewManager(path)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m.Config(), nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithFileSystem reads the config file from fsys.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(m *Manager) {
		m.fs = fsys
	}
}

// WithEnv replaces the environment source.
func WithEnv(env loader.Loader) Option {
	return func(m *Manager) {
		m.env = env
	}
}

// Manager owns the layer stack and the current Config.
type Manager struct {
	path string
	fs   loader.FileSystem
	env  loader.Loader

	mu     sync.RWMutex
	stack  *layer.Stack
	config *Config
}

// NewManager creates a manager for the file at path.
func NewManager(path string, opts ...Option) *Manager {
	m := &Manager{
		path:  path,
		fs:    loader.OSFS{},
		env:   loader.NewEnvLoader(loader.DefaultEnvPrefix),
		stack: layer.NewStack(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the config file path.
func (m *Manager) Path() string {
	return m.path
}

// Load builds every layer. An explicitly named file must exist.
func (m *Manager) Load() error {
	if m.path != "" {
		if _, err := m.fs.Stat(m.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, m.path)
			}
			return fmt.Errorf("checking config file: %w", err)
		}
	}

	m.stack.Set(layer.NewLayer("defaults", layer.SourceDefault, Defaults()))
	_, err := m.Reload()
	return err
}

// Reload re-reads the file and environment layers. On error the previous
// Config stays in effect. It returns the dotted paths that changed.
func (m *Manager) Reload() ([]string, error) {
	if m.path != "" {
		l, err := loader.ForFile(m.fs, m.path)
		if err != nil {
			return nil, err
		}
		data, err := l.Load()
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		m.stack.Set(layer.NewLayer("file", layer.SourceFile, data))
	}

	envData, err := m.env.Load()
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	m.stack.Set(layer.NewLayer("env", layer.SourceEnv, envData))

	merged := m.stack.Merged()
	cfg, err := Decode(merged)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []string
	if m.config != nil {
		changed = layer.DiffMaps(toMap(m.config), toMap(cfg))
	}
	m.config = cfg
	return changed, nil
}

// Config returns the current configuration.
func (m *Manager) Config() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Origin returns the source that supplies the value at path.
func (m *Manager) Origin(path string) layer.Source {
	if l, ok := m.stack.Origin(path); ok {
		return l.Source
	}
	return layer.SourceDefault
}

// toMap renders cfg back into a settings map for diffing.
func toMap(cfg *Config) map[string]any {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
