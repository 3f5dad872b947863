package tool

import (
	"regexp"

	"github.com/nao1215/deepvision/internal/model"
)

// StringsPreviewLines is how many extracted strings are kept for review.
const StringsPreviewLines = 50

// maxHighlights bounds the flagged strings kept in the result.
const maxHighlights = 20

// stringMarkers match printable runs that rarely occur by chance inside
// image data.
var stringMarkers = []*regexp.Regexp{
	regexp.MustCompile(`-----BEGIN [A-Z ]+-----`),
	regexp.MustCompile(`(?i)\b(flag|ctf)\{[^}]*\}`),
	regexp.MustCompile(`(?i)\b(password|passwd|passphrase|secret|private key)\b`),
	regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`),
	// Contact points and credentials a payload commonly carries.
	regexp.MustCompile(`\b[a-z2-7]{56}\.onion\b`),
	regexp.MustCompile(`\bbc1[a-z0-9]{39,59}\b`),
	regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`),
	regexp.MustCompile(`\b(?:AKIA|ASIA)[A-Z0-9]{16}\b`),
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9_]{36,255}`),
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`PuTTY-User-Key-File-\d+:`),
}

// NewStrings returns the printable-strings adapter (strings -n 4).
func NewStrings(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "strings",
		Binary:      "strings",
		Description: "Printable strings (strings -n 4)",
		Args: func(in Input, _ string) []string {
			return []string{"-n", "4", in.Path}
		},
		Parse: parseStrings,
	}, runner, opts...)
}

func parseStrings(ex Execution) model.ToolResult {
	if ex.ExitCode != 0 {
		return exitFailure(ex)
	}
	lines := splitLines(ex.Stdout)

	var highlights []string
	for _, line := range lines {
		if len(highlights) == maxHighlights {
			break
		}
		for _, re := range stringMarkers {
			if re.MatchString(line) {
				highlights = append(highlights, truncate(line, 200))
				break
			}
		}
	}

	preview := lines
	if len(preview) > StringsPreviewLines {
		preview = preview[:StringsPreviewLines]
	}
	return model.PreviewResult(len(lines), preview, highlights)
}
