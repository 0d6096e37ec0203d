package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "missioncontrol version: dev")
	assert.Contains(t, out, "Go version:")
}

func TestCheckConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mc.toml")
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\ndrones = 7\n"), 0o600))

	out, err := execute(t, "check-config", "--config", path)
	require.NoError(t, err)
	assert.Regexp(t, `simulation\.drones\s+7\s+\(file\)`, out)
	assert.Regexp(t, `dispatch\.mode\s+blocking\s+\(default\)`, out)
}

func TestCheckConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dispatch:\n  mode: sometimes\n"), 0o600))

	_, err := execute(t, "check-config", "-c", path)
	assert.ErrorContains(t, err, "dispatch.mode")
}

func TestSimulate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mc.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"error\"\n[simulation]\ninterval = \"5ms\"\n"), 0o600))

	out, err := execute(t, "simulate", "--config", path, "--duration", "60ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulated 3 drones")
	assert.Contains(t, out, "snapshots verified:")
}

func TestSimulate_RejectsArgs(t *testing.T) {
	_, err := execute(t, "simulate", "extra")
	assert.Error(t, err)
}
