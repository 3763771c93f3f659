package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(10*1024*1024), cfg.MaxEntryBytes)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxTotalBytes)
	assert.Equal(t, 1000, cfg.MaxReplaceIterations)
	assert.Equal(t, 200, cfg.ContextWindow)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxTotalBytes)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docpatch.yaml")
	content := `max_entry_bytes: 1048576
max_total_bytes: 2097152
context_window: 80
planner:
  model: test-model
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(1048576), cfg.MaxEntryBytes)
	assert.Equal(t, int64(2097152), cfg.MaxTotalBytes)
	assert.Equal(t, 80, cfg.ContextWindow)
	assert.Equal(t, "test-model", cfg.Planner.Model)
	// unset fields still get defaults
	assert.Equal(t, 1000, cfg.MaxReplaceIterations)
}

func TestLoadRejectsInvertedLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docpatch.yaml")
	content := `max_entry_bytes: 100
max_total_bytes: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")

	cfg := Default()
	cfg.ContextWindow = 321
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 321, loaded.ContextWindow)
}
