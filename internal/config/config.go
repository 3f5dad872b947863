package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "deepvision"

	// DefaultListenAddress binds the API to the loopback interface. The
	// service runs external tools on uploaded files and has no
	// authentication, so exposing it is an explicit decision.
	DefaultListenAddress = "127.0.0.1:8000"

	// DefaultRequestTimeout bounds one analysis request end to end.
	// It must exceed the tool timeout because tools may queue for a
	// process slot before their own timeout starts.
	DefaultRequestTimeout = 2 * time.Minute

	// DefaultToolTimeout bounds a single external tool run.
	DefaultToolTimeout = 30 * time.Second

	// DefaultMaxProcesses is the number of external tool processes that may
	// run at once across all requests.
	DefaultMaxProcesses = 4

	// DefaultMaxUploadSize limits the request body of an upload.
	DefaultMaxUploadSize = 32 << 20 // 32MiB

	// DefaultMaxConnections limits concurrent HTTP connections.
	DefaultMaxConnections = 64

	// DefaultArtifactRetention is how long rendered bit planes stay on
	// disk before the janitor removes them.
	DefaultArtifactRetention = time.Hour

	// DefaultArtifactURLPrefix is where bit planes are served.
	DefaultArtifactURLPrefix = "/static/bitplanes"

	// DefaultLSBMaxSamples caps the pixels the LSB analyzer reads.
	DefaultLSBMaxSamples = 4_000_000

	// DefaultBatchSize is the number of files analyzed at once by the CLI.
	// External processes are bounded separately by MaxProcesses.
	DefaultBatchSize = 2
)

// Config holds all configuration options for DeepVision.
// It is populated from defaults, the config file, the environment, and CLI
// flags, in that order, and passed through the application explicitly.
//
// Tool, scoring, and plane settings that only come from the config file live in
// File rather than as fields here.
type Config struct {
	// ListenAddress is the "host:port" the HTTP API listens on.
	ListenAddress string

	// RequestTimeout bounds one analysis request.
	RequestTimeout time.Duration

	// ToolTimeout is the default timeout of a single tool run.
	ToolTimeout time.Duration

	// MaxProcesses bounds concurrently running external processes.
	MaxProcesses int

	// MaxUploadSize is the largest accepted request body in bytes.
	MaxUploadSize int64

	// MaxConnections bounds concurrent HTTP connections.
	MaxConnections int

	// ArtifactDir is where rendered bit planes are written.
	// Defaults to the XDG cache directory.
	ArtifactDir string

	// ArtifactRetention is how long bit planes are kept.
	ArtifactRetention time.Duration

	// ArtifactURLPrefix is the URL path bit planes are served under.
	ArtifactURLPrefix string

	// LSBMaxSamples caps the pixels the LSB analyzer reads.
	LSBMaxSamples int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// File holds the settings loaded from the configuration file.
	// It is never nil after NewConfig.
	File *File

	// DBDir is the directory of the analysis history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB persists every analysis to the history database.
	SaveToDB bool

	// JSONReport selects the JSON report for the CLI.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report for the CLI.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// BatchSize is the number of files the CLI analyzes at once.
	BatchSize int

	// Targets is the list of image paths given to the CLI.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ListenAddress:     DefaultListenAddress,
		RequestTimeout:    DefaultRequestTimeout,
		ToolTimeout:       DefaultToolTimeout,
		MaxProcesses:      DefaultMaxProcesses,
		MaxUploadSize:     DefaultMaxUploadSize,
		MaxConnections:    DefaultMaxConnections,
		ArtifactDir:       filepath.Join(XDGCacheDir(), "bitplanes"),
		ArtifactRetention: DefaultArtifactRetention,
		ArtifactURLPrefix: DefaultArtifactURLPrefix,
		LSBMaxSamples:     DefaultLSBMaxSamples,
		DBDir:             XDGDataDir(),
		BatchSize:         DefaultBatchSize,
		File:              &File{},
	}
}

// XDGDataDir returns the XDG data directory for DeepVision.
// On Linux: ~/.local/share/deepvision
// On macOS: ~/Library/Application Support/deepvision
// On Windows: %LOCALAPPDATA%\deepvision
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for DeepVision.
// On Linux: ~/.config/deepvision
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for DeepVision.
// On Linux: ~/.cache/deepvision
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks the settings shared by every command.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return ErrInvalidRequestTimeout
	}
	if c.ToolTimeout <= 0 {
		return ErrInvalidToolTimeout
	}
	if c.MaxProcesses <= 0 {
		return ErrInvalidMaxProcesses
	}
	if c.MaxUploadSize <= 0 {
		return ErrInvalidMaxUploadSize
	}
	if c.MaxConnections <= 0 {
		return ErrInvalidMaxConnections
	}
	if c.ArtifactRetention <= 0 {
		return ErrInvalidRetention
	}
	if c.LSBMaxSamples <= 0 {
		return ErrInvalidMaxSamples
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.File != nil {
		return c.File.Validate()
	}
	return nil
}

// ValidateTargets checks the settings of a CLI analysis: the shared
// settings plus at least one target.
func (c *Config) ValidateTargets() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}
