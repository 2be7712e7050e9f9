// Package config handles viewer configuration loading.
package config

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/taigrr/lymphview/pkg/assets"
	"github.com/taigrr/lymphview/pkg/engine"
	"github.com/taigrr/lymphview/pkg/scene"
)

// Config holds all viewer settings.
type Config struct {
	Assets      AssetsConfig      `yaml:"assets"`
	Render      RenderConfig      `yaml:"render"`
	Interaction InteractionConfig `yaml:"interaction"`
	Heatmap     HeatmapConfig     `yaml:"heatmap"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AssetsConfig locates the datasets.
type AssetsConfig struct {
	Base  string       `yaml:"base"` // Directory or http(s) URL
	Paths assets.Paths `yaml:"paths"`
	// SkinOverlay draws the selection model over the heatmap.
	SkinOverlay bool `yaml:"skin_overlay"`
}

// RenderConfig holds frame settings.
type RenderConfig struct {
	FPS        int    `yaml:"fps"`
	Background string `yaml:"background"` // #RRGGBB
}

// InteractionConfig holds pointer and zoom constants.
type InteractionConfig struct {
	DragThreshold float64 `yaml:"drag_threshold"`
	ZoomIn        float64 `yaml:"zoom_in"`
	ZoomOut       float64 `yaml:"zoom_out"`
}

// HeatmapConfig holds the initial heatmap selection.
type HeatmapConfig struct {
	Mode         string `yaml:"mode"`
	DisplaySites bool   `yaml:"display_sites"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the stock settings.
func Default() *Config {
	opts := engine.DefaultOptions()
	return &Config{
		Assets: AssetsConfig{
			Base:        opts.AssetBase,
			Paths:       opts.Paths,
			SkinOverlay: true,
		},
		Render: RenderConfig{
			FPS:        opts.FPS,
			Background: "#ffffff",
		},
		Interaction: InteractionConfig{
			DragThreshold: opts.DragThreshold,
			ZoomIn:        opts.ZoomInFactor,
			ZoomOut:       opts.ZoomOutFactor,
		},
		Heatmap: HeatmapConfig{
			Mode:         engine.ModeNormalized.String(),
			DisplaySites: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Render.FPS <= 0 || c.Render.FPS > 240 {
		return fmt.Errorf("render.fps must be in 1..240, got %d", c.Render.FPS)
	}
	if _, err := ParseColor(c.Render.Background); err != nil {
		return fmt.Errorf("render.background: %w", err)
	}
	if c.Interaction.ZoomIn <= 0 || c.Interaction.ZoomIn >= 1 {
		return fmt.Errorf("interaction.zoom_in must be in (0, 1), got %v", c.Interaction.ZoomIn)
	}
	if c.Interaction.ZoomOut <= 1 {
		return fmt.Errorf("interaction.zoom_out must be above 1, got %v", c.Interaction.ZoomOut)
	}
	if c.Interaction.DragThreshold < 0 {
		return fmt.Errorf("interaction.drag_threshold must not be negative, got %v", c.Interaction.DragThreshold)
	}
	if _, err := engine.ParseDataMode(c.Heatmap.Mode); err != nil {
		return fmt.Errorf("heatmap.mode: %w", err)
	}
	return nil
}

// EngineOptions converts the settings for the engines. The config must
// be valid.
func (c *Config) EngineOptions() engine.Options {
	bg, _ := ParseColor(c.Render.Background)
	return engine.Options{
		Paths:         c.Assets.Paths,
		AssetBase:     c.Assets.Base,
		FPS:           c.Render.FPS,
		DragThreshold: c.Interaction.DragThreshold,
		ZoomInFactor:  c.Interaction.ZoomIn,
		ZoomOutFactor: c.Interaction.ZoomOut,
		Background:    bg,
	}
}

// ParseColor reads a hex colour such as #1a1a2e or #f00. The leading # is
// optional.
func ParseColor(s string) (scene.Color, error) {
	h := strings.TrimSpace(s)
	if !strings.HasPrefix(h, "#") {
		h = "#" + h
	}
	c, err := colorful.Hex(h)
	if err != nil {
		return scene.Color{}, fmt.Errorf("color %q is not #RRGGBB or #RGB: %w", s, err)
	}
	r, g, b := c.RGB255()
	return scene.Hex(uint32(r)<<16 | uint32(g)<<8 | uint32(b)), nil
}
