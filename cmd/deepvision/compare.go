package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/deepvision/internal/database"
	"github.com/nao1215/deepvision/internal/report"
)

// NewCompareCmd creates the compare command.
// This command compares two analyses stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <analysis-id> [previous-id]",
		Short: "Compare an analysis with an earlier one",
		Long: `Compare displays the differences between two stored analyses:
- Change of the suspicion score and verdict
- Tools whose status or number of findings changed

With one ID, the analysis is compared with the previous analysis of the
same image (same SHA3-256 fingerprint). This shows what a tool upgrade or a
configuration change did to the result.

Examples:
  # Compare with the previous analysis of the same image
  deepvision compare 3f1c2b9e-...

  # Compare two specific analyses
  deepvision compare 3f1c2b9e-... 0a9d7c11-...

  # Output comparison in JSON format
  deepvision compare --json 3f1c2b9e-...`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown are mutually exclusive")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	previous, current, err := loadComparisonPair(cmd.Context(), db, args)
	if err != nil {
		return err
	}
	comparison := report.Compare(previous, current)

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return writeJSONValue(out, comparison)
	case markdownOutput:
		return outputComparisonMarkdown(out, comparison)
	default:
		return outputComparisonText(out, comparison)
	}
}

// loadComparisonPair returns (previous, current). args[0] is the current
// analysis; args[1], when given, is the previous one.
func loadComparisonPair(ctx context.Context, db *database.AnalysisDB, args []string) (*report.Document, *report.Document, error) {
	current, err := getAnalysis(ctx, db, args[0])
	if err != nil {
		return nil, nil, err
	}

	if len(args) == 2 {
		previous, err := getAnalysis(ctx, db, args[1])
		if err != nil {
			return nil, nil, err
		}
		return previous, current, nil
	}

	if current.Fingerprint == "" {
		return nil, nil, fmt.Errorf("analysis %s has no fingerprint; give the previous ID explicitly", current.ID)
	}
	history, err := db.FindByFingerprint(ctx, current.Fingerprint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get analysis history: %w", err)
	}
	// History is newest first.
	for _, h := range history {
		if h.ID == current.ID || h.AnalyzedAt.After(current.AnalyzedAt) {
			continue
		}
		previous, err := getAnalysis(ctx, db, h.ID)
		if err != nil {
			return nil, nil, err
		}
		return previous, current, nil
	}
	return nil, nil, fmt.Errorf("no earlier analysis of %s found (analyses of this image: %d)", current.Filename, len(history))
}

func getAnalysis(ctx context.Context, db *database.AnalysisDB, id string) (*report.Document, error) {
	doc, err := db.Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("analysis %s not found", id)
		}
		return nil, err
	}
	return doc, nil
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(w io.Writer, c *report.Comparison) error {
	md := markdown.NewMarkdown(w)
	md.H1("Analysis Comparison: " + c.Current.Filename)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainText(markdown.Bold("Score:") + " " + formatDirection(c.Direction))
	md.PlainText("")
	if !c.SameImage {
		md.Warning("The analyses are of different images.")
		md.PlainText("")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current"},
		Rows: [][]string{
			{"ID", "`" + c.Previous.ID + "`", "`" + c.Current.ID + "`"},
			{"Analyzed", c.Previous.AnalyzedAt.Format("2006-01-02 15:04"), c.Current.AnalyzedAt.Format("2006-01-02 15:04")},
			{"Verdict", c.Previous.Verdict, c.Current.Verdict},
			{"Score", strconv.Itoa(c.Previous.Score), strconv.Itoa(c.Current.Score) + " (" + formatDelta(c.ScoreDelta) + ")"},
			{"LSB", c.Previous.LSBLevel, c.Current.LSBLevel},
			{"Degraded", strconv.FormatBool(c.Previous.Degraded), strconv.FormatBool(c.Current.Degraded)},
		},
	})
	md.PlainText("")

	if len(c.ToolChanges) > 0 {
		md.H2(fmt.Sprintf("Changed Tools (%d)", len(c.ToolChanges)))
		md.PlainText("")
		rows := make([][]string, 0, len(c.ToolChanges))
		for _, tc := range c.ToolChanges {
			rows = append(rows, []string{
				tc.Tool,
				orDash(tc.PreviousStatus),
				orDash(tc.CurrentStatus),
				formatDelta(tc.CurrentFindings - tc.PreviousFindings),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Tool", "Previous", "Current", "Findings"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if c.UnchangedTools > 0 {
		md.HorizontalRule()
		md.PlainText(markdown.Italic(fmt.Sprintf("%d tools unchanged", c.UnchangedTools)))
	}
	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(w io.Writer, c *report.Comparison) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis Comparison: %s\n", c.Current.Filename)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if !c.SameImage {
		b.WriteString("\nWarning: the analyses are of different images.\n")
	}

	fmt.Fprintf(&b, "\nScore: %s\n", formatDirection(c.Direction))
	fmt.Fprintf(&b, "\nPrevious: %s  %s\n", c.Previous.ID, c.Previous.AnalyzedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Current:  %s  %s\n", c.Current.ID, c.Current.AnalyzedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "\n  %-10s  %-12s  %-12s\n", "", "Previous", "Current")
	b.WriteString("  " + strings.Repeat("-", 38) + "\n")
	fmt.Fprintf(&b, "  %-10s  %-12s  %-12s\n", "Verdict", c.Previous.Verdict, c.Current.Verdict)
	fmt.Fprintf(&b, "  %-10s  %-12d  %-12s\n", "Score", c.Previous.Score,
		fmt.Sprintf("%d (%s)", c.Current.Score, formatDelta(c.ScoreDelta)))
	fmt.Fprintf(&b, "  %-10s  %-12s  %-12s\n", "LSB", c.Previous.LSBLevel, c.Current.LSBLevel)

	if len(c.ToolChanges) > 0 {
		fmt.Fprintf(&b, "\nChanged Tools (%d):\n", len(c.ToolChanges))
		for _, tc := range c.ToolChanges {
			fmt.Fprintf(&b, "  [*] %-10s %s -> %s (findings %s)\n",
				tc.Tool, orDash(tc.PreviousStatus), orDash(tc.CurrentStatus),
				formatDelta(tc.CurrentFindings-tc.PreviousFindings))
		}
	}
	if c.UnchangedTools > 0 {
		fmt.Fprintf(&b, "\nUnchanged: %d tools\n", c.UnchangedTools)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatDirection formats the score change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case report.DirectionImproved:
		return "IMPROVED (less suspicious)"
	case report.DirectionWorsened:
		return "WORSENED (more suspicious)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
