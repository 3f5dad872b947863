package config

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/nao1215/deepvision/internal/bitplane"
	"github.com/nao1215/deepvision/internal/lsb"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/scoring"
	"github.com/nao1215/deepvision/internal/tool"
)

// DefaultsKey is the key under "tools" whose settings apply to every tool.
const DefaultsKey = "defaults"

// ToolConfig holds the settings of one external tool.
type ToolConfig struct {
	// Enabled removes the tool from the registry when false.
	// Nil means enabled.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Path is the executable to run instead of the name on PATH.
	Path string `yaml:"path,omitempty"`

	// Timeout overrides the tool timeout. Zero means the default.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Args are placed before the arguments the adapter builds.
	Args []string `yaml:"args,omitempty"`
}

// IsEnabled reports whether the tool should be registered.
func (t ToolConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// ScoringConfig overrides the weights of the scoring policy.
type ScoringConfig struct {
	// Weights maps a tool ID to the points its findings add.
	Weights map[string]int `yaml:"weights,omitempty"`

	// LSBPoints maps a suspicion level name (low, medium, high) to points.
	LSBPoints map[string]int `yaml:"lsb_points,omitempty"`
}

// LSBConfig tunes the LSB analyzer.
type LSBConfig struct {
	// Low is the largest |mean-0.5| still classified as Low.
	Low float64 `yaml:"low,omitempty"`

	// Medium is the largest |mean-0.5| still classified as Medium.
	Medium float64 `yaml:"medium,omitempty"`

	// MaxSamples caps the pixels read per image.
	MaxSamples int `yaml:"max_samples,omitempty"`
}

// BitPlaneConfig selects the rendered bit planes.
type BitPlaneConfig struct {
	Channels []string `yaml:"channels,omitempty"`
	Bits     []int    `yaml:"bits,omitempty"`
}

// File represents the structure of the .deepvision configuration file.
type File struct {
	// Tools maps a tool ID, or DefaultsKey, to its settings.
	Tools map[string]ToolConfig `yaml:"tools,omitempty"`

	Scoring   ScoringConfig  `yaml:"scoring,omitempty"`
	LSB       LSBConfig      `yaml:"lsb,omitempty"`
	BitPlanes BitPlaneConfig `yaml:"bitplanes,omitempty"`
}

// GetToolConfig returns the configuration for a tool.
// It merges the tool-specific configuration with the defaults.
func (cf *File) GetToolConfig(id string) ToolConfig {
	result := cf.Tools[DefaultsKey]
	result.Args = slices.Clone(result.Args)
	// A path only makes sense for one executable.
	result.Path = ""

	if toolConfig, ok := cf.Tools[id]; ok {
		if toolConfig.Enabled != nil {
			result.Enabled = toolConfig.Enabled
		}
		if toolConfig.Path != "" {
			result.Path = toolConfig.Path
		}
		if toolConfig.Timeout != 0 {
			result.Timeout = toolConfig.Timeout
		}
		if len(toolConfig.Args) > 0 {
			result.Args = slices.Clone(toolConfig.Args)
		}
	}
	return result
}

// Validate checks the file for unknown tools and out-of-range values.
func (cf *File) Validate() error {
	for _, id := range slices.Sorted(maps.Keys(cf.Tools)) {
		if id != DefaultsKey && !slices.Contains(tool.CatalogIDs, id) {
			return fmt.Errorf("%w: tools.%s", tool.ErrUnknownAdapter, id)
		}
		if cf.Tools[id].Timeout < 0 {
			return fmt.Errorf("%w: tools.%s.timeout", ErrInvalidToolTimeout, id)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(cf.Scoring.Weights)) {
		if !slices.Contains(tool.CatalogIDs, id) {
			return fmt.Errorf("%w: scoring.weights.%s", tool.ErrUnknownAdapter, id)
		}
	}
	if _, err := cf.lsbPoints(); err != nil {
		return err
	}

	t := cf.Thresholds()
	if t[0].MaxDeviation < 0 || t[0].MaxDeviation > t[1].MaxDeviation || t[1].MaxDeviation > 0.5 {
		return ErrInvalidThresholds
	}
	if cf.LSB.MaxSamples < 0 {
		return ErrInvalidMaxSamples
	}

	opts, err := cf.BitPlaneOptions()
	if err != nil {
		return err
	}
	return opts.Validate()
}

// Thresholds returns the LSB classification bands. Unset bounds keep
// their defaults.
func (cf *File) Thresholds() lsb.Thresholds {
	t := slices.Clone(lsb.DefaultThresholds)
	if cf.LSB.Low != 0 {
		t[0].MaxDeviation = cf.LSB.Low
	}
	if cf.LSB.Medium != 0 {
		t[1].MaxDeviation = cf.LSB.Medium
	}
	return t
}

// BitPlaneOptions returns the configured planes, or the defaults for
// fields that are unset.
func (cf *File) BitPlaneOptions() (bitplane.Options, error) {
	opts := bitplane.DefaultOptions()
	if len(cf.BitPlanes.Channels) > 0 {
		opts.Channels = make([]bitplane.Channel, 0, len(cf.BitPlanes.Channels))
		for _, name := range cf.BitPlanes.Channels {
			c, err := bitplane.ParseChannel(name)
			if err != nil {
				return bitplane.Options{}, fmt.Errorf("bitplanes.channels: %w", err)
			}
			opts.Channels = append(opts.Channels, c)
		}
	}
	if len(cf.BitPlanes.Bits) > 0 {
		opts.Bits = slices.Clone(cf.BitPlanes.Bits)
	}
	return opts, nil
}

// Policy returns the default scoring policy with the file's overrides.
func (cf *File) Policy() (scoring.Policy, error) {
	points, err := cf.lsbPoints()
	if err != nil {
		return scoring.Policy{}, err
	}
	return scoring.DefaultPolicy().
		WithWeights(cf.Scoring.Weights).
		WithLSBPoints(points), nil
}

func (cf *File) lsbPoints() (map[model.SuspicionLevel]int, error) {
	points := make(map[model.SuspicionLevel]int, len(cf.Scoring.LSBPoints))
	for name, p := range cf.Scoring.LSBPoints {
		level, ok := model.ParseSuspicionLevel(name)
		if !ok {
			return nil, fmt.Errorf("%w: scoring.lsb_points.%s", ErrInvalidLevel, name)
		}
		points[level] = p
	}
	return points, nil
}
