// Package config handles loading and saving atlasview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/atlasview/config.yaml
//
// The file holds engine tuning only; viewport state is never persisted
// across sessions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/atlasview/pkg/geom"
	"github.com/vanderheijden86/atlasview/pkg/layout"
)

// CameraConfig tunes camera motion.
type CameraConfig struct {
	MinScale         float64 `yaml:"min_scale,omitempty"`
	MaxScale         float64 `yaml:"max_scale,omitempty"`
	WheelSensitivity float64 `yaml:"wheel_sensitivity,omitempty"`
	Friction         float64 `yaml:"friction,omitempty"`
	CoastMinVelocity float64 `yaml:"coast_min_velocity,omitempty"` // px/ms
	AnimationMs      int     `yaml:"animation_ms,omitempty"`
}

// AnimationDuration returns the focus/recenter animation length.
func (c CameraConfig) AnimationDuration() time.Duration {
	return time.Duration(c.AnimationMs) * time.Millisecond
}

// LayoutConfig tunes cluster expansion and explosion-mode relaxation.
type LayoutConfig struct {
	SpiralRadius           float64 `yaml:"spiral_radius,omitempty"`
	ItemRadius             float64 `yaml:"item_radius,omitempty"`
	ClusterRadius          float64 `yaml:"cluster_radius,omitempty"`
	RelaxIterations        int     `yaml:"relax_iterations,omitempty"`
	RelaxMinDistance       float64 `yaml:"relax_min_distance,omitempty"`
	NoiseRingRadius        float64 `yaml:"noise_ring_radius,omitempty"`
	RelaxRespectsExpansion bool    `yaml:"relax_respects_expansion,omitempty"`
}

// Relax returns the relaxation tuning as layout options.
func (c LayoutConfig) Relax() layout.RelaxOptions {
	return layout.RelaxOptions{
		Iterations:  c.RelaxIterations,
		MinDistance: c.RelaxMinDistance,
	}
}

// SceneConfig tunes culling and level-of-detail behavior.
type SceneConfig struct {
	LODThreshold float64 `yaml:"lod_threshold,omitempty"`
	CullMargin   float64 `yaml:"cull_margin,omitempty"` // screen px
}

// ThumbsConfig tunes asynchronous thumbnail loading.
type ThumbsConfig struct {
	Concurrency int `yaml:"concurrency,omitempty"`
	MaxEdge     int `yaml:"max_edge,omitempty"` // downscale target in px
}

// Config is the top-level configuration for atlasview.
type Config struct {
	Camera CameraConfig `yaml:"camera,omitempty"`
	Layout LayoutConfig `yaml:"layout,omitempty"`
	Scene  SceneConfig  `yaml:"scene,omitempty"`
	Thumbs ThumbsConfig `yaml:"thumbs,omitempty"`
}

// DefaultConfig returns a Config with the reference tuning.
func DefaultConfig() Config {
	return Config{
		Camera: CameraConfig{
			MinScale:         0.1,
			MaxScale:         8.0,
			WheelSensitivity: 0.001,
			Friction:         0.92,
			CoastMinVelocity: 0.05,
			AnimationMs:      600,
		},
		Layout: LayoutConfig{
			SpiralRadius:     320,
			ItemRadius:       48,
			ClusterRadius:    90,
			RelaxIterations:  5,
			RelaxMinDistance: 180,
			NoiseRingRadius:  2400,
		},
		Scene: SceneConfig{
			LODThreshold: 0.45,
			CullMargin:   120,
		},
		Thumbs: ThumbsConfig{
			Concurrency: 8,
			MaxEdge:     128,
		},
	}
}

// ConfigDir returns the XDG config directory for atlasview.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "atlasview")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "atlasview")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist. Out-of-range tuning values
// are clamped rather than rejected; a bad config file must never put the
// engine into an unusable state.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.clamp()
	return cfg, nil
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// clamp pulls every tuning value back into its sane range, falling back to
// the default when a value is nonsensical.
func (c *Config) clamp() {
	def := DefaultConfig()

	if c.Camera.MinScale <= 0 || !geom.Finite(c.Camera.MinScale) {
		c.Camera.MinScale = def.Camera.MinScale
	}
	if c.Camera.MaxScale <= c.Camera.MinScale || !geom.Finite(c.Camera.MaxScale) {
		c.Camera.MaxScale = def.Camera.MaxScale
	}
	if c.Camera.WheelSensitivity <= 0 {
		c.Camera.WheelSensitivity = def.Camera.WheelSensitivity
	}
	if c.Camera.Friction <= 0 || c.Camera.Friction >= 1 {
		c.Camera.Friction = def.Camera.Friction
	}
	if c.Camera.CoastMinVelocity <= 0 {
		c.Camera.CoastMinVelocity = def.Camera.CoastMinVelocity
	}
	if c.Camera.AnimationMs <= 0 {
		c.Camera.AnimationMs = def.Camera.AnimationMs
	}

	if c.Layout.SpiralRadius <= 0 {
		c.Layout.SpiralRadius = def.Layout.SpiralRadius
	}
	if c.Layout.ItemRadius <= 0 {
		c.Layout.ItemRadius = def.Layout.ItemRadius
	}
	if c.Layout.ClusterRadius <= 0 {
		c.Layout.ClusterRadius = def.Layout.ClusterRadius
	}
	if c.Layout.RelaxIterations <= 0 || c.Layout.RelaxIterations > 50 {
		c.Layout.RelaxIterations = def.Layout.RelaxIterations
	}
	if c.Layout.RelaxMinDistance <= 0 {
		c.Layout.RelaxMinDistance = def.Layout.RelaxMinDistance
	}
	if c.Layout.NoiseRingRadius <= 0 {
		c.Layout.NoiseRingRadius = def.Layout.NoiseRingRadius
	}

	if c.Scene.LODThreshold <= 0 || c.Scene.LODThreshold >= 1 {
		c.Scene.LODThreshold = def.Scene.LODThreshold
	}
	if c.Scene.CullMargin < 0 {
		c.Scene.CullMargin = def.Scene.CullMargin
	}

	if c.Thumbs.Concurrency <= 0 || c.Thumbs.Concurrency > 64 {
		c.Thumbs.Concurrency = def.Thumbs.Concurrency
	}
	if c.Thumbs.MaxEdge <= 0 {
		c.Thumbs.MaxEdge = def.Thumbs.MaxEdge
	}
}
