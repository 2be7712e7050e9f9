package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/lymphview/pkg/engine"
	"github.com/taigrr/lymphview/pkg/scene"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "data", cfg.Assets.Base)
	assert.Equal(t, "scene.glb", cfg.Assets.Paths.Scene)
	assert.Equal(t, 30, cfg.Render.FPS)
	assert.Equal(t, 0.85, cfg.Interaction.ZoomIn)
	assert.Equal(t, 1.18, cfg.Interaction.ZoomOut)
	assert.Equal(t, "norm", cfg.Heatmap.Mode)
	assert.True(t, cfg.Heatmap.DisplaySites)
	assert.Equal(t, "info", cfg.Logging.Level)

	opts := cfg.EngineOptions()
	assert.Equal(t, engine.DefaultOptions().Paths, opts.Paths)
	assert.Equal(t, scene.White, opts.Background)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lymphview.yaml")
	yamlContent := `
assets:
  base: https://example.org/app/data
  paths:
    scene: body.glb
render:
  fps: 20
  background: "#102030"
interaction:
  zoom_in: 0.5
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path, Overrides{FPS: 12, LogFile: "/tmp/lv.log"})
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/app/data", cfg.Assets.Base)
	assert.Equal(t, "body.glb", cfg.Assets.Paths.Scene)
	// Unset keys keep their defaults.
	assert.Equal(t, "human_mesh.glb", cfg.Assets.Paths.HeatmapMesh)
	assert.Equal(t, 1.18, cfg.Interaction.ZoomOut)

	assert.Equal(t, 12, cfg.Render.FPS)
	assert.Equal(t, 0.5, cfg.Interaction.ZoomIn)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/lv.log", cfg.Logging.LogFile)

	assert.Equal(t, scene.Hex(0x102030), cfg.EngineOptions().Background)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("render: [unclosed"), 0o644))

	_, err := Load(filepath.Join(dir, "missing.yaml"), Overrides{})
	assert.Error(t, err)

	_, err = Load(bad, Overrides{})
	assert.Error(t, err)

	_, err = Load("", Overrides{Mode: "heat"})
	assert.ErrorContains(t, err, "heatmap.mode")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"fps", func(c *Config) { c.Render.FPS = 0 }},
		{"background", func(c *Config) { c.Render.Background = "white" }},
		{"zoom in", func(c *Config) { c.Interaction.ZoomIn = 1.2 }},
		{"zoom out", func(c *Config) { c.Interaction.ZoomOut = 0.9 }},
		{"drag", func(c *Config) { c.Interaction.DragThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Render.FPS = 45
	cfg.Assets.Paths.DiscretePoints = "sites.json"
	require.NoError(t, Save(cfg, path))

	got, err := Load(path, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#FF0000")
	require.NoError(t, err)
	assert.Equal(t, scene.Red, c)

	c, err = ParseColor("000000")
	require.NoError(t, err)
	assert.Equal(t, scene.Black, c)

	c, err = ParseColor(" #f00 ")
	require.NoError(t, err)
	assert.Equal(t, scene.Red, c)

	c, err = ParseColor("#1a1A2e")
	require.NoError(t, err)
	assert.Equal(t, scene.Hex(0x1A1A2E), c)

	_, err = ParseColor("#12345")
	assert.Error(t, err)
	_, err = ParseColor("#GGGGGG")
	assert.Error(t, err)
}
