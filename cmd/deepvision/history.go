package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/deepvision/internal/database"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/report"
	"github.com/nao1215/deepvision/internal/tui"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [analysis-id]",
		Short: "Show stored analyses",
		Long: `History lists analyses stored by "analyze --save" and "serve".

With an analysis ID, the stored report is printed in full.

Examples:
  # Ten most recent analyses
  deepvision history --limit 10

  # Only suspicious images
  deepvision history --verdict Suspicious

  # Every analysis of one image
  deepvision history --sha3 9f86d0...

  # Print a stored report as Markdown
  deepvision history --markdown 3f1c2b9e-...

  # Per-tool statistics
  deepvision history --stats`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", database.DefaultListLimit,
		"Maximum number of analyses to list")
	cmd.Flags().Int("offset", 0,
		"Number of analyses to skip")
	cmd.Flags().String("verdict", "",
		"Only list analyses with this verdict (Safe or Suspicious)")
	cmd.Flags().String("sha3", "",
		"Only list analyses of the image with this SHA3-256 fingerprint")
	cmd.Flags().Bool("stats", false,
		"Show per-tool statistics instead of analyses")
	cmd.Flags().String("delete", "",
		"Delete the analysis with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a stored report as Markdown")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Debug("database opened", "path", db.Path())

	flags := cmd.Flags()
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	if asJSON && asMarkdown {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if id, err := flags.GetString("delete"); err != nil {
		return err
	} else if id != "" {
		if err := db.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete analysis: %w", err)
		}
		fmt.Fprintf(out, "Deleted analysis %s\n", id)
		return nil
	}

	if len(args) == 1 {
		return showAnalysis(ctx, db, args[0], out, asJSON, asMarkdown)
	}

	if stats, err := flags.GetBool("stats"); err != nil {
		return err
	} else if stats {
		return showToolStats(ctx, db, out, asJSON)
	}

	items, err := listAnalyses(cmd, db)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSONValue(out, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No analyses stored.")
		return nil
	}
	fmt.Fprintln(out, tui.RenderHistory(items))
	return nil
}

func listAnalyses(cmd *cobra.Command, db *database.AnalysisDB) ([]database.AnalysisSummary, error) {
	flags := cmd.Flags()
	sha3, err := flags.GetString("sha3")
	if err != nil {
		return nil, err
	}
	if sha3 != "" {
		return db.FindByFingerprint(cmd.Context(), strings.ToLower(sha3))
	}

	var opts database.ListOptions
	if opts.Limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if opts.Offset, err = flags.GetInt("offset"); err != nil {
		return nil, err
	}
	verdict, err := flags.GetString("verdict")
	if err != nil {
		return nil, err
	}
	if verdict != "" {
		for _, v := range []model.Verdict{model.VerdictSafe, model.VerdictSuspicious} {
			if strings.EqualFold(v.String(), verdict) {
				opts.Verdict = v.String()
			}
		}
		if opts.Verdict == "" {
			return nil, fmt.Errorf("unknown verdict %q (want Safe or Suspicious)", verdict)
		}
	}
	return db.List(cmd.Context(), opts)
}

func showAnalysis(ctx context.Context, db *database.AnalysisDB, id string, out io.Writer, asJSON, asMarkdown bool) error {
	doc, err := db.Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("analysis %s not found", id)
		}
		return err
	}

	var w report.Writer
	switch {
	case asJSON:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case asMarkdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out)
	}
	_, err = w.Write(doc)
	return err
}

func showToolStats(ctx context.Context, db *database.AnalysisDB, out io.Writer, asJSON bool) error {
	stats, err := db.ToolStats(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSONValue(out, stats)
	}
	if len(stats) == 0 {
		fmt.Fprintln(out, "No analyses stored.")
		return nil
	}
	fmt.Fprintln(out, tui.RenderToolStats(stats))
	return nil
}
