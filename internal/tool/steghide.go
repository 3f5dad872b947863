package tool

import (
	"bytes"
	"regexp"

	"github.com/nao1215/deepvision/internal/model"
)

var steghideEmbedded = regexp.MustCompile(`embedded file "([^"]*)"`)

// NewSteghide returns the steghide adapter. It runs with an empty
// passphrase; a payload protected by a real passphrase is not detected.
func NewSteghide(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "steghide",
		Binary:      "steghide",
		Description: "Steghide payload check (steghide info)",
		Formats:     []model.Format{model.FormatJPEG, model.FormatBMP},
		Args: func(in Input, _ string) []string {
			return []string{"info", "-p", "", in.Path}
		},
		Stdin: "n\n",
		Parse: parseSteghide,
	}, runner, opts...)
}

func parseSteghide(ex Execution) model.ToolResult {
	all := append(append([]byte{}, ex.Stdout...), ex.Stderr...)

	var findings []string
	for _, line := range splitLines(all) {
		if steghideEmbedded.MatchString(line) {
			findings = append(findings, line)
		}
	}
	if len(findings) > 0 {
		return model.LinesResult(capLines(findings, MaxFindingLines))
	}
	if bytes.Contains(all, []byte("could not extract any data")) {
		return model.LinesResult(nil)
	}
	if ex.ExitCode != 0 {
		return exitFailure(ex)
	}
	return model.LinesResult(nil)
}
