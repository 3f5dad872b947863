package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nao1215/deepvision/internal/database"
	"github.com/nao1215/deepvision/internal/tool"
)

// newTable renders rows; cells in statusColumn are colored by StatusStyle.
func newTable(headers []string, rows [][]string, statusColumn int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorDim)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusColumn && row >= 0 && row < len(rows) {
				return StatusStyle(rows[row][col]).Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

// RenderTools renders the tool availability list.
func RenderTools(tools []tool.Availability) string {
	rows := make([][]string, 0, len(tools))
	for _, a := range tools {
		installed := "no"
		if a.Installed {
			installed = "yes"
		}
		location := a.Path
		if location == "" {
			location = a.Binary
		}
		rows = append(rows, []string{a.ID, a.Kind, installed, a.Timeout, location, a.Description})
	}
	return newTable([]string{"Tool", "Kind", "Installed", "Timeout", "Path", "Description"}, rows, 2)
}

// RenderHistory renders stored analysis summaries, newest first as given.
func RenderHistory(items []database.AnalysisSummary) string {
	rows := make([][]string, 0, len(items))
	for _, s := range items {
		fp := s.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		degraded := ""
		if s.Degraded {
			degraded = "degraded"
		}
		rows = append(rows, []string{
			s.ID,
			s.Filename,
			s.Format,
			s.Verdict,
			strconv.Itoa(s.Score),
			degraded,
			fp,
			s.AnalyzedAt.Local().Format(time.DateTime),
		})
	}
	return newTable([]string{"ID", "File", "Format", "Verdict", "Score", "Status", "SHA3-256", "Analyzed"}, rows, 3)
}

// RenderToolStats renders per-tool outcome counts.
func RenderToolStats(stats []database.ToolStat) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Tool,
			strconv.Itoa(s.Runs),
			strconv.Itoa(s.Successes),
			strconv.Itoa(s.Errors),
			strconv.Itoa(s.NotInstalled),
			strconv.Itoa(s.WithFindings),
		})
	}
	return newTable([]string{"Tool", "Runs", "Success", "Error", "Not Installed", "Findings"}, rows, -1)
}
