package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepvision/internal/artifact"
	"github.com/nao1215/deepvision/internal/config"
	"github.com/nao1215/deepvision/internal/database"
	"github.com/nao1215/deepvision/internal/log"
	"github.com/nao1215/deepvision/internal/lsb"
	"github.com/nao1215/deepvision/internal/pipeline"
	"github.com/nao1215/deepvision/internal/tool"
)

// janitorInterval is how often expired bit-plane directories are swept.
const janitorInterval = 10 * time.Minute

// loadConfig builds the configuration in override order:
// built-in defaults, .env and DEEPVISION_* variables, config file, flags.
// Only flags the user actually set override the earlier layers.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("config"); f != nil && f.Changed {
		cfg.ConfigFilePath = f.Value.String()
	}
	if err := cfg.Load(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return nil, err
		}
		cfg.Verbose = verbose
	}
	return cfg, nil
}

// changed reports whether the named flag exists and was set.
func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// newLogger writes redacted text logs to w.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logger := log.NewSecureLogger(w, verbose)
	slog.SetDefault(logger)
	return logger
}

// app holds the components shared by analyze and serve.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *tool.Registry
	artifacts *artifact.Store
	db        *database.AnalysisDB
	engine    *pipeline.Engine
}

// newApp wires the analysis engine. The history database is opened only
// when cfg.SaveToDB is set.
func newApp(cfg *config.Config, logger *slog.Logger, observer pipeline.Observer) (*app, error) {
	registry, err := tool.NewRegistry(
		cfg.Adapters(tool.OSRunner{}),
		append(cfg.RegistryOptions(), tool.WithRegistryLogger(logger))...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool registry: %w", err)
	}

	planes, err := cfg.BitPlaneOptions()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	artifacts, err := artifact.New(cfg.ArtifactDir,
		artifact.WithURLPrefix(cfg.ArtifactURLPrefix),
		artifact.WithRetention(cfg.ArtifactRetention),
		artifact.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact store: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		artifacts: artifacts,
	}

	engineOpts := []pipeline.EngineOption{
		pipeline.WithPolicy(policy),
		pipeline.WithEngineLogger(logger),
	}
	if cfg.SaveToDB {
		a.db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		engineOpts = append(engineOpts, pipeline.WithRecorder(a.db))
		logger.Info("database opened", "path", a.db.Path())
	}

	orchestratorOpts := []pipeline.OrchestratorOption{
		pipeline.WithMaxProcesses(cfg.MaxProcesses),
		pipeline.WithLSBAnalyzer(lsb.New(cfg.LSBOptions()...)),
		pipeline.WithBitPlanes(planes),
		pipeline.WithOrchestratorLogger(logger),
	}
	if observer != nil {
		orchestratorOpts = append(orchestratorOpts, pipeline.WithObserver(observer))
	}

	a.engine = pipeline.NewEngine(
		pipeline.NewOrchestrator(registry, artifacts, orchestratorOpts...),
		engineOpts...,
	)
	return a, nil
}

// Close releases the database.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// openReportFile creates path with owner-only permissions, creating parent
// directories as needed.
func openReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen report path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// errFilesFailed is returned when at least one file of a batch failed.
var errFilesFailed = errors.New("one or more files could not be analyzed")

// writeJSONValue prints v as indented JSON.
func writeJSONValue(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
