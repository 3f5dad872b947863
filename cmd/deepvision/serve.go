package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepvision/internal/config"
	"github.com/nao1215/deepvision/internal/event"
	"github.com/nao1215/deepvision/internal/log"
	"github.com/nao1215/deepvision/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis service",
		Long: `Serve starts the HTTP API.

Routes:
  POST /api/analyze           analyze an upload (multipart field "file" or raw body)
  GET  /api/analyses          list stored analyses (?limit, ?offset, ?verdict)
  GET  /api/analyses/{id}     fetch a stored report
  GET  /api/tools             tool availability
  GET  /health                liveness
  GET  /ws                    analysis progress events (?run_id filters one run)
  GET  /static/bitplanes/...  rendered bit planes

Every analysis is stored in the history database unless --no-history is set.

Examples:
  # Listen on the default address (127.0.0.1:8000)
  deepvision serve

  # Public interface, JSON logs, longer deadline
  deepvision serve --listen :8080 --log-json --request-timeout 5m`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Duration("request-timeout", config.DefaultRequestTimeout,
		"Deadline for one analysis request")
	cmd.Flags().Duration("tool-timeout", config.DefaultToolTimeout,
		"Default timeout for each tool")
	cmd.Flags().Int("max-processes", config.DefaultMaxProcesses,
		"Maximum number of external tool processes running at once")
	cmd.Flags().Int64("max-upload", config.DefaultMaxUploadSize,
		"Maximum upload size in bytes")
	cmd.Flags().Int("max-connections", config.DefaultMaxConnections,
		"Maximum number of concurrent client connections")
	cmd.Flags().String("artifact-dir", "",
		"Directory of rendered bit planes (default: XDG cache directory)")
	cmd.Flags().Bool("no-history", false,
		"Do not store analyses in the history database")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	if logJSON {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
		slog.SetDefault(logger)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig layers the serve flags over the loaded configuration.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if changed(cmd, "listen") {
		if cfg.ListenAddress, err = flags.GetString("listen"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "request-timeout") {
		if cfg.RequestTimeout, err = flags.GetDuration("request-timeout"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "tool-timeout") {
		if cfg.ToolTimeout, err = flags.GetDuration("tool-timeout"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "max-processes") {
		if cfg.MaxProcesses, err = flags.GetInt("max-processes"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "max-upload") {
		if cfg.MaxUploadSize, err = flags.GetInt64("max-upload"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "max-connections") {
		if cfg.MaxConnections, err = flags.GetInt("max-connections"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "artifact-dir") {
		if cfg.ArtifactDir, err = flags.GetString("artifact-dir"); err != nil {
			return nil, err
		}
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory
	return cfg, nil
}

// runServe wires the engine, the event hub and the HTTP server, and blocks
// until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	hub := event.NewHub(event.WithLogger(logger))
	defer hub.Close()

	a, err := newApp(cfg, logger, hub)
	if err != nil {
		return err
	}
	defer a.Close()

	go a.artifacts.RunJanitor(ctx, janitorInterval)

	for _, av := range a.registry.Availability(ctx) {
		if !av.Installed {
			logger.Warn("tool not installed; its results will report Not Installed", "tool", av.ID, "binary", av.Binary)
		}
	}

	opts := []server.Option{
		server.WithTools(a.registry),
		server.WithEvents(hub),
		server.WithArtifacts(a.artifacts.Root(), a.artifacts.URLPrefix()),
		server.WithMaxUploadSize(cfg.MaxUploadSize),
		server.WithRequestTimeout(cfg.RequestTimeout),
		server.WithMaxConnections(cfg.MaxConnections),
		server.WithVersion(getVersion()),
		server.WithLogger(logger),
	}
	if a.db != nil {
		opts = append(opts, server.WithHistory(a.db))
	}

	srv := server.New(a.engine, opts...)
	if err := srv.ListenAndServe(ctx, cfg.ListenAddress); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
