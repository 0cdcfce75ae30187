package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Index.WorkerCount, cfg.Index.WorkerCount)
	assert.Equal(t, d.Index.Extensions, cfg.Index.Extensions)
	assert.Equal(t, d.Watcher.DebounceWindow, cfg.Watcher.DebounceWindow)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	yaml := `index:
  worker_count: 4
  extensions: [".coffee", ".cson"]
watcher:
  debounce_window: 1s
log:
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Index.WorkerCount)
	assert.Equal(t, []string{".coffee", ".cson"}, cfg.Index.Extensions)
	assert.Equal(t, time.Second, cfg.Watcher.DebounceWindow)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvWins(t *testing.T) {
	root := t.TempDir()
	t.Setenv("COFFEEIDX_INDEX_WORKER_COUNT", "7")
	t.Setenv("COFFEEIDX_LOG_LEVEL", "debug")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Index.WorkerCount)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	root := t.TempDir()
	t.Setenv("COFFEEIDX_INDEX_WORKER_COUNT", "0")

	_, err := Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker_count")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Index.Dir = ""
	cfg.Index.Extensions = nil
	cfg.Log.Format = "xml"

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoIndexDir)
	assert.ErrorIs(t, err, ErrNoExtensions)
	assert.Contains(t, err.Error(), "log.format")
}

func TestIndexPath_StablePerRoot(t *testing.T) {
	cfg := Default()
	cfg.Index.Dir = "/var/idx"

	a := cfg.IndexPath("/src/app")
	b := cfg.IndexPath("/src/app/")
	c := cfg.IndexPath("/src/other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "/var/idx", filepath.Dir(a))
	assert.Contains(t, filepath.Base(a), "app-")
}
