package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/deepvision/internal/config"
	"github.com/nao1215/deepvision/internal/pipeline"
	"github.com/nao1215/deepvision/internal/report"
	"github.com/nao1215/deepvision/internal/tui"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <image> [image...]",
		Short: "Analyze image files for hidden data",
		Long: `Analyze runs every registered steganalysis tool, the LSB statistics and the
bit-plane renderer against each image and prints the verdict.

Several files are analyzed concurrently (see --batch). External tool processes
are bounded by --max-processes across all files.

Examples:
  # Analyze one image
  deepvision analyze cat.png

  # Analyze a directory listing with a progress view and keep the results
  deepvision analyze --progress --save shots/*.jpg

  # Write a JSON report
  deepvision analyze --json -o report.json cat.png

  # Markdown report for a ticket
  deepvision analyze --markdown suspicious.bmp`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of files analyzed concurrently")
	cmd.Flags().BoolP("save", "s", false,
		"Save results to the analysis history database")
	cmd.Flags().BoolP("progress", "P", false,
		"Show a progress view on the terminal")
	cmd.Flags().Duration("tool-timeout", config.DefaultToolTimeout,
		"Default timeout for each tool")
	cmd.Flags().Int("max-processes", config.DefaultMaxProcesses,
		"Maximum number of external tool processes running at once")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildAnalyzeConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateTargets(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return err
	}
	if noColor {
		color.NoColor = true
	}
	progress, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAnalyze(ctx, cmd, cfg, logger, progress && isTerminal(cmd.ErrOrStderr()))
}

// buildAnalyzeConfig layers the analyze flags over the loaded configuration.
func buildAnalyzeConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if changed(cmd, "batch") {
		if cfg.BatchSize, err = cmd.Flags().GetInt("batch"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "save") {
		if cfg.SaveToDB, err = cmd.Flags().GetBool("save"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "tool-timeout") {
		if cfg.ToolTimeout, err = cmd.Flags().GetDuration("tool-timeout"); err != nil {
			return nil, err
		}
	}
	if changed(cmd, "max-processes") {
		if cfg.MaxProcesses, err = cmd.Flags().GetInt("max-processes"); err != nil {
			return nil, err
		}
	}

	cfg.Targets = args
	return cfg, nil
}

// runAnalyze analyzes cfg.Targets and writes one report per file.
func runAnalyze(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, progress bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var feed *tui.Feed
	var observer pipeline.Observer
	if progress {
		feed = tui.NewFeed(tui.DefaultFeedBuffer)
		observer = feed
	}

	a, err := newApp(cfg, logger, observer)
	if err != nil {
		return err
	}
	defer a.Close()

	if n, err := a.artifacts.Sweep(); err != nil {
		logger.Warn("failed to sweep expired bit planes", "error", err)
	} else if n > 0 {
		logger.Debug("expired bit planes removed", "runs", n)
	}

	var out io.Writer = cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		f, err := openReportFile(cfg.ReportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	writer := newReportWriter(cfg, out)

	viewDone := make(chan struct{})
	if feed != nil {
		program := tea.NewProgram(
			tui.NewModel(feed.Events(), len(cfg.Targets)),
			tea.WithOutput(cmd.ErrOrStderr()),
		)
		go func() {
			defer close(viewDone)
			final, err := program.Run()
			if err != nil {
				logger.Warn("progress view stopped", "error", err)
				return
			}
			if m, ok := final.(tui.Model); ok && m.Interrupted() {
				cancel()
			}
		}()
	} else {
		close(viewDone)
	}

	logger.Info("starting analysis",
		"files", len(cfg.Targets),
		"batch", cfg.BatchSize,
		"tools", a.registry.IDs(),
		"save", cfg.SaveToDB,
	)
	start := time.Now()

	bp := pipeline.NewBatchProcessor(a.engine,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	var failures []pipeline.BatchResult
	batchErr := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r pipeline.BatchResult, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if r.Err != nil {
			failures = append(failures, r)
			return
		}
		if _, err := writer.Write(r.Document); err != nil {
			logger.Error("report failed", "file", r.Path, "error", err)
		}
	})

	if feed != nil {
		feed.Close()
	}
	<-viewDone

	for _, f := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", f.Path, f.Err)
	}
	logger.Info("analysis finished",
		"files", len(cfg.Targets),
		"failed", len(failures),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if batchErr != nil {
		if errors.Is(batchErr, context.Canceled) {
			return fmt.Errorf("analysis cancelled: %w", batchErr)
		}
		return batchErr
	}
	if len(failures) > 0 {
		return fmt.Errorf("%w: %d of %d", errFilesFailed, len(failures), len(cfg.Targets))
	}
	return nil
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		colored := cfg.ReportFile == "" && !color.NoColor
		return report.NewSimpleWriter(out,
			report.WithColor(colored),
			report.WithVerbose(cfg.Verbose),
		)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
