package config

import (
	"github.com/nao1215/deepvision/internal/bitplane"
	"github.com/nao1215/deepvision/internal/lsb"
	"github.com/nao1215/deepvision/internal/scoring"
	"github.com/nao1215/deepvision/internal/tool"
)

func (c *Config) file() *File {
	if c.File == nil {
		return &File{}
	}
	return c.File
}

// ToolOptions returns the adapter options configured for a tool.
func (c *Config) ToolOptions(id string) []tool.CommandOption {
	tc := c.file().GetToolConfig(id)
	var opts []tool.CommandOption
	if tc.Path != "" {
		opts = append(opts, tool.WithBinary(tc.Path))
	}
	if len(tc.Args) > 0 {
		opts = append(opts, tool.WithExtraArgs(tc.Args...))
	}
	return opts
}

// Adapters returns the built-in adapters that are enabled, in catalog order.
func (c *Config) Adapters(runner tool.Runner) []tool.Adapter {
	all := tool.Catalog(runner, c.ToolOptions)
	enabled := make([]tool.Adapter, 0, len(all))
	for _, a := range all {
		if c.file().GetToolConfig(a.ID()).IsEnabled() {
			enabled = append(enabled, a)
		}
	}
	return enabled
}

// RegistryOptions returns the default and per-tool timeouts.
func (c *Config) RegistryOptions() []tool.RegistryOption {
	opts := []tool.RegistryOption{tool.WithDefaultTimeout(c.ToolTimeout)}
	for id, tc := range c.file().Tools {
		if id != DefaultsKey && tc.Timeout > 0 {
			opts = append(opts, tool.WithTimeout(id, tc.Timeout))
		}
	}
	return opts
}

// LSBOptions returns the analyzer options.
func (c *Config) LSBOptions() []lsb.Option {
	return []lsb.Option{
		lsb.WithMaxSamples(c.LSBMaxSamples),
		lsb.WithThresholds(c.file().Thresholds()),
	}
}

// BitPlaneOptions returns the planes to render.
func (c *Config) BitPlaneOptions() (bitplane.Options, error) {
	return c.file().BitPlaneOptions()
}

// Policy returns the scoring policy.
func (c *Config) Policy() (scoring.Policy, error) {
	return c.file().Policy()
}
