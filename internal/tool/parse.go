package tool

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/deepvision/internal/model"
)

// MaxFindingLines bounds the Lines payload of a single tool.
const MaxFindingLines = 200

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// exitFailure converts a non-zero exit into an Error result that names
// the first line the tool wrote to stderr (or stdout).
func exitFailure(ex Execution) model.ToolResult {
	msg := firstLine(ex.Stderr)
	if msg == "" {
		msg = firstLine(ex.Stdout)
	}
	if msg == "" {
		return model.ErrorResult(fmt.Sprintf("exit status %d", ex.ExitCode))
	}
	return model.ErrorResult(fmt.Sprintf("exit status %d: %s", ex.ExitCode, msg))
}

func firstLine(b []byte) string {
	for _, line := range splitLines(b) {
		return line
	}
	return ""
}

// splitLines splits output on newlines and carriage returns, strips ANSI
// escape sequences, trims whitespace, and drops empty lines.
func splitLines(b []byte) []string {
	text := ansiEscape.ReplaceAllString(string(b), "")
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			lines = append(lines, f)
		}
	}
	return lines
}

// capLines bounds the number of finding lines of one tool.
func capLines(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[:n]
}
