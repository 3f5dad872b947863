package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable DeepVision reads.
const EnvPrefix = "DEEPVISION_"

// LoadDotEnv loads variables from .env files into the process environment.
// Variables that are already set win, and missing files are skipped.
// With no arguments ./.env is loaded.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides c with DEEPVISION_* variables from the environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.LookupEnv)
}

// applyEnv is ApplyEnv with an injectable lookup for tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"LISTEN", &c.ListenAddress},
		{"CONFIG", &c.ConfigFilePath},
		{"DB_DIR", &c.DBDir},
		{"ARTIFACT_DIR", &c.ArtifactDir},
		{"ARTIFACT_URL_PREFIX", &c.ArtifactURLPrefix},
	}
	for _, s := range strs {
		if v, ok := lookup(EnvPrefix + s.key); ok && v != "" {
			*s.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", &c.RequestTimeout},
		{"TOOL_TIMEOUT", &c.ToolTimeout},
		{"ARTIFACT_RETENTION", &c.ArtifactRetention},
	}
	for _, d := range durations {
		v, ok := lookup(EnvPrefix + d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %w", ErrInvalidEnv, EnvPrefix, d.key, v, err)
		}
		*d.dst = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_PROCESSES", &c.MaxProcesses},
		{"MAX_CONNECTIONS", &c.MaxConnections},
		{"LSB_MAX_SAMPLES", &c.LSBMaxSamples},
		{"BATCH_SIZE", &c.BatchSize},
	}
	for _, n := range ints {
		v, ok := lookup(EnvPrefix + n.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %w", ErrInvalidEnv, EnvPrefix, n.key, v, err)
		}
		*n.dst = parsed
	}

	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_SIZE"); ok && v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_UPLOAD_SIZE=%q: %w", ErrInvalidEnv, EnvPrefix, v, err)
		}
		c.MaxUploadSize = parsed
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"VERBOSE", &c.Verbose},
		{"SAVE", &c.SaveToDB},
	}
	for _, b := range bools {
		v, ok := lookup(EnvPrefix + b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %w", ErrInvalidEnv, EnvPrefix, b.key, v, err)
		}
		*b.dst = parsed
	}
	return nil
}
