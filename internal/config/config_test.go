package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return t.TempDir()
}

func TestLoadDefaults(t *testing.T) {
	root := isolate(t)

	cfg, err := Load(root)
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want, cfg)
	assert.Empty(t, cfg.Path)
}

func TestLoadFileKeepsDefaultsForMissingFields(t *testing.T) {
	root := isolate(t)
	path := filepath.Join(root, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{
  "output": {"dir": "typings"},
  "sources": {"exclude": ["api/models/legacy/**"]},
  "analysis": {"maxParallelFiles": 3, "cache": {"enabled": false}}
}`), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "typings", cfg.Output.Dir)
	assert.True(t, cfg.Output.WriteJSConfig)
	assert.Equal(t, "api/models/**/*.js", cfg.Sources.Models)
	assert.Equal(t, []string{"api/models/legacy/**"}, cfg.Sources.Exclude)
	assert.Equal(t, ">= 1.0.0", cfg.Hooks.SailsRange)
	assert.Equal(t, 3, cfg.Parallelism())
	assert.False(t, cfg.Analysis.Cache.Enabled)
	assert.Equal(t, ".gabagool_cache", cfg.Analysis.Cache.Dir)
}

func TestLoadHiddenFile(t *testing.T) {
	root := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "."+FileName), []byte(`{"hooks": {"enabled": false}}`), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.False(t, cfg.Hooks.Enabled)
}

func TestEnvironmentOverrides(t *testing.T) {
	root := isolate(t)
	t.Setenv("GABAGOOL_OUTPUT_DIR", "generated")
	t.Setenv("GABAGOOL_ANALYSIS_TIMING", "true")

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "generated", cfg.Output.Dir)
	assert.True(t, cfg.Analysis.Timing)
}

func TestLoadFileMalformed(t *testing.T) {
	root := isolate(t)
	path := filepath.Join(root, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"output": `), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestSaveRoundTrip(t *testing.T) {
	root := isolate(t)
	cfg := DefaultConfig()
	cfg.Output.Dir = "out"
	cfg.Sources.Exclude = []string{"api/models/Old.js"}
	path := filepath.Join(root, FileName)
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	loaded.Path = ""
	assert.Equal(t, cfg, loaded)
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/srv/app", ".types"), cfg.OutputDir("/srv/app"))
	cfg.Analysis.Cache.Dir = "/var/cache/gabagool"
	assert.Equal(t, "/var/cache/gabagool", cfg.CacheDir("/srv/app"))
	assert.Positive(t, cfg.Parallelism())
}

func TestSearchPathsOrder(t *testing.T) {
	root := isolate(t)
	paths := SearchPaths(root)
	require.Len(t, paths, 5)
	assert.Equal(t, filepath.Join(root, FileName), paths[2])
	assert.Equal(t, filepath.Join(root, "."+FileName), paths[3])
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".config", "gabagool", "config.json"), paths[4])
}
