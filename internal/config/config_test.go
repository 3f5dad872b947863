package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/deepvision/internal/bitplane"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/tool"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults should be intentional, so each one is pinned here.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default ListenAddress is loopback port 8000", func(t *testing.T) {
		t.Parallel()
		if cfg.ListenAddress != "127.0.0.1:8000" {
			t.Errorf("expected ListenAddress to be '127.0.0.1:8000', got '%s'", cfg.ListenAddress)
		}
	})

	t.Run("default timeouts", func(t *testing.T) {
		t.Parallel()
		if cfg.RequestTimeout != 2*time.Minute {
			t.Errorf("expected RequestTimeout to be 2m, got %v", cfg.RequestTimeout)
		}
		if cfg.ToolTimeout != 30*time.Second {
			t.Errorf("expected ToolTimeout to be 30s, got %v", cfg.ToolTimeout)
		}
	})

	t.Run("default limits", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxProcesses != 4 {
			t.Errorf("expected MaxProcesses to be 4, got %d", cfg.MaxProcesses)
		}
		if cfg.MaxUploadSize != 32*1024*1024 {
			t.Errorf("expected MaxUploadSize to be 32MiB, got %d", cfg.MaxUploadSize)
		}
		if cfg.MaxConnections != 64 {
			t.Errorf("expected MaxConnections to be 64, got %d", cfg.MaxConnections)
		}
		if cfg.LSBMaxSamples != 4_000_000 {
			t.Errorf("expected LSBMaxSamples to be 4000000, got %d", cfg.LSBMaxSamples)
		}
	})

	t.Run("default artifacts", func(t *testing.T) {
		t.Parallel()
		if cfg.ArtifactRetention != time.Hour {
			t.Errorf("expected ArtifactRetention to be 1h, got %v", cfg.ArtifactRetention)
		}
		if cfg.ArtifactURLPrefix != "/static/bitplanes" {
			t.Errorf("expected ArtifactURLPrefix to be '/static/bitplanes', got %q", cfg.ArtifactURLPrefix)
		}
		if cfg.ArtifactDir != filepath.Join(XDGCacheDir(), "bitplanes") {
			t.Errorf("unexpected ArtifactDir %q", cfg.ArtifactDir)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case breaks exactly one rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mutate   func(c *Config)
		expected error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero request timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, expected: ErrInvalidRequestTimeout},
		{name: "negative tool timeout", mutate: func(c *Config) { c.ToolTimeout = -time.Second }, expected: ErrInvalidToolTimeout},
		{name: "zero max processes", mutate: func(c *Config) { c.MaxProcesses = 0 }, expected: ErrInvalidMaxProcesses},
		{name: "zero upload size", mutate: func(c *Config) { c.MaxUploadSize = 0 }, expected: ErrInvalidMaxUploadSize},
		{name: "zero connections", mutate: func(c *Config) { c.MaxConnections = 0 }, expected: ErrInvalidMaxConnections},
		{name: "zero retention", mutate: func(c *Config) { c.ArtifactRetention = 0 }, expected: ErrInvalidRetention},
		{name: "zero lsb samples", mutate: func(c *Config) { c.LSBMaxSamples = 0 }, expected: ErrInvalidMaxSamples},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, expected: ErrInvalidBatchSize},
		{
			name:     "json and markdown both enabled",
			mutate:   func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			expected: ErrConflictingReportFormats,
		},
		{
			name: "invalid file",
			mutate: func(c *Config) {
				c.File = &File{LSB: LSBConfig{Low: 0.3, Medium: 0.2}}
			},
			expected: ErrInvalidThresholds,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expected == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

// TestConfigValidateTargets tests the CLI target check.
func TestConfigValidateTargets(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if err := cfg.ValidateTargets(); !errors.Is(err, ErrNoTarget) {
		t.Errorf("expected ErrNoTarget, got %v", err)
	}
	cfg.Targets = []string{"a.png", "b.jpg"}
	if err := cfg.ValidateTargets(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

// TestFileGetToolConfig tests merging of tool settings with the defaults.
func TestFileGetToolConfig(t *testing.T) {
	t.Parallel()

	disabled := false
	file := &File{
		Tools: map[string]ToolConfig{
			DefaultsKey: {Timeout: 10 * time.Second, Args: []string{"-q"}, Path: "/ignored"},
			"zsteg":     {Args: []string{"--all"}},
			"steghide":  {Timeout: time.Minute, Path: "/opt/steghide"},
			"foremost":  {Enabled: &disabled},
		},
	}

	t.Run("returns defaults when tool not configured", func(t *testing.T) {
		t.Parallel()
		tc := file.GetToolConfig("binwalk")
		if tc.Timeout != 10*time.Second || !slices.Equal(tc.Args, []string{"-q"}) {
			t.Errorf("unexpected config %+v", tc)
		}
		if tc.Path != "" {
			t.Errorf("expected defaults path to be ignored, got %q", tc.Path)
		}
		if !tc.IsEnabled() {
			t.Error("expected tool to be enabled")
		}
	})

	t.Run("tool args replace default args", func(t *testing.T) {
		t.Parallel()
		tc := file.GetToolConfig("zsteg")
		if !slices.Equal(tc.Args, []string{"--all"}) {
			t.Errorf("expected [--all], got %v", tc.Args)
		}
		if tc.Timeout != 10*time.Second {
			t.Errorf("expected default timeout, got %v", tc.Timeout)
		}
	})

	t.Run("tool timeout and path override", func(t *testing.T) {
		t.Parallel()
		tc := file.GetToolConfig("steghide")
		if tc.Timeout != time.Minute || tc.Path != "/opt/steghide" {
			t.Errorf("unexpected config %+v", tc)
		}
	})

	t.Run("disabled tool", func(t *testing.T) {
		t.Parallel()
		if file.GetToolConfig("foremost").IsEnabled() {
			t.Error("expected foremost to be disabled")
		}
	})

	t.Run("nil tools map", func(t *testing.T) {
		t.Parallel()
		empty := &File{}
		tc := empty.GetToolConfig("zsteg")
		if tc.Timeout != 0 || tc.Path != "" || len(tc.Args) != 0 || !tc.IsEnabled() {
			t.Errorf("expected zero config, got %+v", tc)
		}
	})
}

// TestFileValidate tests rejection of unknown and out-of-range settings.
func TestFileValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		file     File
		expected error
	}{
		{name: "empty", file: File{}},
		{name: "unknown tool", file: File{Tools: map[string]ToolConfig{"stegsolve": {}}}, expected: tool.ErrUnknownAdapter},
		{name: "unknown weight", file: File{Scoring: ScoringConfig{Weights: map[string]int{"nope": 1}}}, expected: tool.ErrUnknownAdapter},
		{name: "negative timeout", file: File{Tools: map[string]ToolConfig{"zsteg": {Timeout: -1}}}, expected: ErrInvalidToolTimeout},
		{name: "unknown level", file: File{Scoring: ScoringConfig{LSBPoints: map[string]int{"extreme": 1}}}, expected: ErrInvalidLevel},
		{name: "medium above 0.5", file: File{LSB: LSBConfig{Medium: 0.6}}, expected: ErrInvalidThresholds},
		{name: "negative low", file: File{LSB: LSBConfig{Low: -0.1}}, expected: ErrInvalidThresholds},
		{name: "negative samples", file: File{LSB: LSBConfig{MaxSamples: -1}}, expected: ErrInvalidMaxSamples},
		{name: "unknown channel", file: File{BitPlanes: BitPlaneConfig{Channels: []string{"alpha"}}}, expected: bitplane.ErrInvalidChannel},
		{name: "bit out of range", file: File{BitPlanes: BitPlaneConfig{Bits: []int{8}}}, expected: bitplane.ErrInvalidBit},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.file.Validate()
			if tc.expected == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
		})
	}
}

// TestLoadConfigFile tests YAML parsing.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("parses every section", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".deepvision")
		content := `tools:
  defaults:
    timeout: 20s
  zsteg:
    path: /usr/local/bin/zsteg
    args: ["--all"]
  stegdetect:
    enabled: false
scoring:
  weights:
    zsteg: 55
  lsb_points:
    high: 50
lsb:
  low: 0.05
  medium: 0.2
  max_samples: 1000
bitplanes:
  channels: [luminance]
  bits: [0]
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cf.Validate(); err != nil {
			t.Fatalf("expected valid file, got %v", err)
		}
		if cf.Tools[DefaultsKey].Timeout != 20*time.Second {
			t.Errorf("expected defaults timeout 20s, got %v", cf.Tools[DefaultsKey].Timeout)
		}
		zsteg := cf.GetToolConfig("zsteg")
		if zsteg.Path != "/usr/local/bin/zsteg" || !slices.Equal(zsteg.Args, []string{"--all"}) {
			t.Errorf("unexpected zsteg config %+v", zsteg)
		}
		if cf.GetToolConfig("stegdetect").IsEnabled() {
			t.Error("expected stegdetect to be disabled")
		}

		policy, err := cf.Policy()
		if err != nil {
			t.Fatal(err)
		}
		if policy.Rules["zsteg"].Points != 55 {
			t.Errorf("expected zsteg weight 55, got %d", policy.Rules["zsteg"].Points)
		}
		if policy.LSBPoints[model.SuspicionHigh] != 50 || policy.LSBPoints[model.SuspicionMedium] != 20 {
			t.Errorf("unexpected lsb points %v", policy.LSBPoints)
		}

		th := cf.Thresholds()
		if th[0].MaxDeviation != 0.05 || th[1].MaxDeviation != 0.2 {
			t.Errorf("unexpected thresholds %v", th)
		}

		planes, err := cf.BitPlaneOptions()
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(planes.Channels, []bitplane.Channel{bitplane.Luminance}) || !slices.Equal(planes.Bits, []int{0}) {
			t.Errorf("unexpected planes %+v", planes)
		}
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".deepvision")
		if err := os.WriteFile(path, []byte("tools:\n  zsteg:\n    timout: 5s\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected an error for a misspelled key")
		}
	})

	t.Run("empty file is valid", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".deepvision")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Tools == nil {
			t.Error("expected Tools map to be initialized")
		}
	})
}

// TestTemplate tests that the template written by init loads and validates.
func TestTemplate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", ".deepvision")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("WriteTemplate failed: %v", err)
	}
	if err := WriteTemplate(path, false); !errors.Is(err, ErrConfigExists) {
		t.Errorf("expected ErrConfigExists, got %v", err)
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Errorf("expected force to overwrite, got %v", err)
	}

	cf, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if err := cf.Validate(); err != nil {
		t.Errorf("template is invalid: %v", err)
	}
	if string(Template()) != string(template) {
		t.Error("Template returned unexpected content")
	}
}

// TestConfigLoad tests applying a file to a Config.
func TestConfigLoad(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing path is an error", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ConfigFilePath = filepath.Join(t.TempDir(), "missing.yaml")
		if err := cfg.Load(); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("file settings reach the config", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "tools:\n  defaults:\n    timeout: 12s\nlsb:\n  max_samples: 5000\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg := NewConfig()
		cfg.ConfigFilePath = path
		if err := cfg.Load(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ToolTimeout != 12*time.Second {
			t.Errorf("expected ToolTimeout 12s, got %v", cfg.ToolTimeout)
		}
		if cfg.LSBMaxSamples != 5000 {
			t.Errorf("expected LSBMaxSamples 5000, got %d", cfg.LSBMaxSamples)
		}
	})
}

// TestApplyEnv tests DEEPVISION_* overrides.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	lookup := func(env map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}
	}

	t.Run("valid values override defaults", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		err := cfg.applyEnv(lookup(map[string]string{
			"DEEPVISION_LISTEN":          "0.0.0.0:9000",
			"DEEPVISION_TOOL_TIMEOUT":    "5s",
			"DEEPVISION_MAX_PROCESSES":   "8",
			"DEEPVISION_MAX_UPLOAD_SIZE": "1024",
			"DEEPVISION_VERBOSE":         "true",
			"DEEPVISION_DB_DIR":          "",
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ListenAddress != "0.0.0.0:9000" || cfg.ToolTimeout != 5*time.Second ||
			cfg.MaxProcesses != 8 || cfg.MaxUploadSize != 1024 || !cfg.Verbose {
			t.Errorf("unexpected config %+v", cfg)
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected empty variable to keep the default, got %q", cfg.DBDir)
		}
	})

	testCases := []struct {
		key   string
		value string
	}{
		{"DEEPVISION_REQUEST_TIMEOUT", "soon"},
		{"DEEPVISION_MAX_CONNECTIONS", "many"},
		{"DEEPVISION_MAX_UPLOAD_SIZE", "1MB"},
		{"DEEPVISION_SAVE", "maybe"},
	}
	for _, tc := range testCases {
		t.Run("invalid "+tc.key, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			err := cfg.applyEnv(lookup(map[string]string{tc.key: tc.value}))
			if !errors.Is(err, ErrInvalidEnv) {
				t.Errorf("expected ErrInvalidEnv, got %v", err)
			}
		})
	}
}

// TestLoadDotEnv tests that .env files fill unset variables only.
// It modifies the process environment and cannot run in parallel.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DEEPVISION_TEST_DOTENV_A=from-file\nDEEPVISION_TEST_DOTENV_B=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEEPVISION_TEST_DOTENV_B", "from-env")
	t.Cleanup(func() { os.Unsetenv("DEEPVISION_TEST_DOTENV_A") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("DEEPVISION_TEST_DOTENV_A"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
	if got := os.Getenv("DEEPVISION_TEST_DOTENV_B"); got != "from-env" {
		t.Errorf("expected existing variable to win, got %q", got)
	}
}

// TestComponents tests turning the configuration into component options.
func TestComponents(t *testing.T) {
	t.Parallel()

	disabled := false
	cfg := NewConfig()
	cfg.ToolTimeout = 7 * time.Second
	cfg.File = &File{
		Tools: map[string]ToolConfig{
			"steghide":   {Timeout: 40 * time.Second},
			"zsteg":      {Path: "/opt/zsteg"},
			"stegdetect": {Enabled: &disabled},
		},
	}

	adapters := cfg.Adapters(tool.OSRunner{})
	ids := make([]string, 0, len(adapters))
	for _, a := range adapters {
		ids = append(ids, a.ID())
	}
	if slices.Contains(ids, "stegdetect") {
		t.Error("expected stegdetect to be disabled")
	}
	if len(ids) != len(tool.CatalogIDs)-1 {
		t.Errorf("expected %d adapters, got %v", len(tool.CatalogIDs)-1, ids)
	}

	for _, a := range adapters {
		if a.ID() != "zsteg" {
			continue
		}
		l, ok := a.(tool.Locator)
		if !ok || l.Binary() != "/opt/zsteg" {
			t.Errorf("expected zsteg binary /opt/zsteg")
		}
	}

	reg, err := tool.NewRegistry(adapters, cfg.RegistryOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Timeout("steghide") != 40*time.Second {
		t.Errorf("expected steghide timeout 40s, got %v", reg.Timeout("steghide"))
	}
	if reg.Timeout("binwalk") != 7*time.Second {
		t.Errorf("expected default timeout 7s, got %v", reg.Timeout("binwalk"))
	}

	if len(cfg.LSBOptions()) != 2 {
		t.Error("expected two lsb options")
	}
	if _, err := cfg.Policy(); err != nil {
		t.Errorf("unexpected policy error: %v", err)
	}
}
