package loader

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFile(t *testing.T) {
	fsys := fstest.MapFS{}

	l, err := ForFile(fsys, "mc.toml")
	require.NoError(t, err)
	assert.IsType(t, &TOMLLoader{}, l)

	l, err = ForFile(fsys, "mc.YML")
	require.NoError(t, err)
	assert.IsType(t, &YAMLLoader{}, l)

	_, err = ForFile(fsys, "mc.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTOMLLoader_Load(t *testing.T) {
	fsys := fstest.MapFS{
		"mc.toml": {Data: []byte(`
[log]
level = "debug"

[simulation]
drones = 5
interval = "50ms"
`)},
	}

	l, err := ForFile(fsys, "mc.toml")
	require.NoError(t, err)
	data, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", data["log"].(map[string]any)["level"])
	sim := data["simulation"].(map[string]any)
	assert.EqualValues(t, 5, sim["drones"])
	assert.Equal(t, "50ms", sim["interval"])
}

func TestTOMLLoader_MissingFile(t *testing.T) {
	l, err := ForFile(fstest.MapFS{}, "absent.toml")
	require.NoError(t, err)

	data, err := l.Load()
	assert.NoError(t, err)
	assert.Nil(t, data)
}

func TestTOMLLoader_ParseError(t *testing.T) {
	l := &TOMLLoader{}
	_, err := l.LoadFromReader(strings.NewReader("[log\nlevel = 1"))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "<reader>", perr.Path)
	assert.Greater(t, perr.Line, 0)
	assert.Contains(t, perr.Error(), "line")
}

func TestYAMLLoader_Load(t *testing.T) {
	fsys := fstest.MapFS{
		"mc.yaml": {Data: []byte("dispatch:\n  mode: fire-and-forget\n  queueSize: 16\nlabels:\n  1: one\n")},
	}

	l, err := ForFile(fsys, "mc.yaml")
	require.NoError(t, err)
	data, err := l.Load()
	require.NoError(t, err)

	d := data["dispatch"].(map[string]any)
	assert.Equal(t, "fire-and-forget", d["mode"])
	assert.EqualValues(t, 16, d["queueSize"])

	labels, ok := data["labels"].(map[string]any)
	require.True(t, ok, "non-string keys are normalized")
	assert.Equal(t, "one", labels["1"])
}

func TestYAMLLoader_ParseError(t *testing.T) {
	l := &YAMLLoader{}
	_, err := l.LoadFromReader(strings.NewReader("log: [unclosed"))
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestEnvLoader(t *testing.T) {
	l := NewEnvLoader(DefaultEnvPrefix)
	l.environ = func() []string {
		return []string{
			"MISSIONCONTROL_LOG_LEVEL=warn",
			"MISSIONCONTROL_DISPATCH_QUEUE_SIZE=64",
			"MISSIONCONTROL_ACCESS_FAIL_FAST=true",
			"MISSIONCONTROL_SIMULATION_INTERVAL=1s",
			"MISSIONCONTROL_SIMULATION_DRONES=1",
			"MISSIONCONTROL_BROKEN",
			"OTHER_LOG_LEVEL=debug",
			"PATH=/usr/bin",
		}
	}

	data, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"log":        map[string]any{"level": "warn"},
		"dispatch":   map[string]any{"queueSize": int64(64)},
		"access":     map[string]any{"failFast": true},
		"simulation": map[string]any{"interval": "1s", "drones": int64(1)},
	}, data)
}

func TestEnvLoader_AddMapping(t *testing.T) {
	l := NewEnvLoader("MC_")
	l.AddMapping("MC_UNITS", "display.units")
	l.environ = func() []string { return []string{"MC_UNITS=imperial"} }

	data, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"display": map[string]any{"units": "imperial"}}, data)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"off", false},
		{"1", int64(1)},
		{"-3", int64(-3)},
		{"2.5", 2.5},
		{"250ms", "250ms"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), "parseValue(%q)", tt.in)
	}
}
