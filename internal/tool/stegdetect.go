package tool

import (
	"strings"

	"github.com/nao1215/deepvision/internal/model"
)

// NewStegdetect returns the stegdetect adapter for JPEG images.
func NewStegdetect(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "stegdetect",
		Binary:      "stegdetect",
		Description: "JPEG steganography detector (stegdetect)",
		Formats:     []model.Format{model.FormatJPEG},
		Args: func(in Input, _ string) []string {
			return []string{in.Path}
		},
		Parse: parseStegdetect,
	}, runner, opts...)
}

// parseStegdetect reads "file : verdict" lines. Verdicts other than
// negative and skipped name the detected method, e.g. "jphide(***)".
func parseStegdetect(ex Execution) model.ToolResult {
	if ex.ExitCode != 0 {
		return exitFailure(ex)
	}
	var findings []string
	for _, line := range splitLines(ex.Stdout) {
		idx := strings.LastIndex(line, " : ")
		if idx < 0 {
			continue
		}
		verdict := strings.TrimSpace(line[idx+3:])
		if verdict == "" || verdict == "negative" || strings.HasPrefix(verdict, "skipped") {
			continue
		}
		findings = append(findings, verdict)
	}
	return model.LinesResult(findings)
}
