package runtimeinit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenshots/src/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv(config.ConfigPathEnvVar, path)
	t.Setenv(config.EnvPathEnvVar, filepath.Join(dir, "missing.env"))
	return path
}

func TestBootstrapLoadsConfigAndSetsUpLogging(t *testing.T) {
	path := writeConfig(t, "enable_file_logging = true\ncapture_dir = \"/tmp/shots\"\n")

	var gotEnable bool
	var gotDir string
	cfg, err := Bootstrap(Options{
		SetupLogging: func(enable bool, dir string) { gotEnable, gotDir = enable, dir },
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shots", cfg.CaptureDir)
	assert.True(t, gotEnable)
	assert.Equal(t, filepath.Dir(path), gotDir)
}

func TestBootstrapMalformedConfig(t *testing.T) {
	writeConfig(t, "capture_dir = [\n")
	_, err := Bootstrap(Options{})
	require.Error(t, err)
}

func TestLogDirFallsBackToCache(t *testing.T) {
	dir := LogDir(&config.Config{})
	if cache, err := os.UserCacheDir(); err == nil {
		assert.Equal(t, filepath.Join(cache, "screenshots"), dir)
	}
}

func TestNewCaptureCLI(t *testing.T) {
	cfg := &config.Config{CaptureDir: t.TempDir(), CleanupWorkers: 2, PanKey: 49}
	cli, pool := NewCaptureCLI(cfg, nil)
	require.NotNil(t, cli)
	defer pool.Close()
	assert.False(t, cli.Busy())
}
