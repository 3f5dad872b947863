package tool

import (
	"strings"

	"github.com/nao1215/deepvision/internal/model"
)

// NewZsteg returns the zsteg adapter for PNG and BMP images.
func NewZsteg(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "zsteg",
		Binary:      "zsteg",
		Description: "LSB payload scanner (zsteg)",
		Formats:     []model.Format{model.FormatPNG, model.FormatBMP},
		Args: func(in Input, _ string) []string {
			return []string{in.Path}
		},
		Parse: parseZsteg,
	}, runner, opts...)
}

// parseZsteg keeps "text:" and "file:" hits. Rows for raw imagedata are
// dropped because every image has them.
func parseZsteg(ex Execution) model.ToolResult {
	if ex.ExitCode != 0 {
		return exitFailure(ex)
	}
	var findings []string
	for _, line := range splitLines(ex.Stdout) {
		if strings.HasPrefix(line, "imagedata") {
			continue
		}
		if strings.Contains(line, ".. text:") || strings.Contains(line, ".. file:") {
			findings = append(findings, truncate(line, 200))
		}
	}
	return model.LinesResult(capLines(findings, MaxFindingLines))
}
