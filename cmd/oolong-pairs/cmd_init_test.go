package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oolongbench/oolong-pairs/internal/config"
)

func TestInitCommandWritesDefaults(t *testing.T) {
	dir := t.TempDir()

	cmd := newRootCommand()
	cmd.SetArgs([]string{"init", dir})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(dir, ".oolong.yaml"))
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "truncation", cfg.Run.Strategy)
	assert.Equal(t, "direct", cfg.Run.Mode)
	assert.Equal(t, config.DefaultModel, cfg.Run.Model)
	assert.NotEmpty(t, cfg.Dataset.Path)
}

func TestInitCommandRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".oolong.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("run:\n  strategy: chunking\n"), 0644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"init", dir})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// The original file is untouched.
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunking")
}

func TestInitCommandForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".oolong.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("run:\n  strategy: chunking\n"), 0644))

	cmd := newRootCommand()
	cmd.SetArgs([]string{"init", dir, "--force"})
	require.NoError(t, cmd.Execute())

	var cfg config.Config
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "truncation", cfg.Run.Strategy)
}
