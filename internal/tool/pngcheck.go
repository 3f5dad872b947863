package tool

import (
	"bytes"
	"regexp"

	"github.com/nao1215/deepvision/internal/model"
)

var (
	pngcheckProblem = regexp.MustCompile(`(?i)(error|crc|invalid|illegal|additional data|corrupt|private|unknown)`)
	pngcheckClean   = regexp.MustCompile(`(?i)^no errors detected`)
)

// NewPngcheck returns the PNG structure validator adapter.
func NewPngcheck(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "pngcheck",
		Binary:      "pngcheck",
		Description: "PNG structure validation (pngcheck -v)",
		Formats:     []model.Format{model.FormatPNG},
		Args: func(in Input, _ string) []string {
			return []string{"-v", in.Path}
		},
		Parse: parsePngcheck,
	}, runner, opts...)
}

// parsePngcheck treats exit codes 1 and 2 as "structural problems found",
// which is a finding rather than a tool failure.
func parsePngcheck(ex Execution) model.ToolResult {
	if ex.ExitCode > 2 || bytes.Contains(ex.Stdout, []byte("neither a PNG or JNG")) {
		return exitFailure(ex)
	}
	all := append(append([]byte{}, ex.Stdout...), ex.Stderr...)
	var findings []string
	for _, line := range splitLines(all) {
		if pngcheckClean.MatchString(line) {
			continue
		}
		if pngcheckProblem.MatchString(line) {
			findings = append(findings, truncate(line, 200))
		}
	}
	return model.LinesResult(capLines(findings, MaxFindingLines))
}
