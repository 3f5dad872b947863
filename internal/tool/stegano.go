package tool

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/nao1215/deepvision/internal/model"
)

// steganoNoMessage are stderr fragments stegano prints when the LSBs do
// not decode to a message.
var steganoNoMessage = [][]byte{
	[]byte("Impossible to detect message"),
	[]byte("IndexError"),
	[]byte("UnicodeDecodeError"),
	[]byte("ValueError"),
}

// NewStegano returns the stegano LSB reveal adapter.
func NewStegano(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "stegano",
		Binary:      "stegano-lsb",
		Description: "LSB message reveal (stegano-lsb)",
		Formats:     []model.Format{model.FormatPNG, model.FormatBMP},
		Args: func(in Input, _ string) []string {
			return []string{"reveal", "-i", in.Path}
		},
		Parse: parseStegano,
	}, runner, opts...)
}

func parseStegano(ex Execution) model.ToolResult {
	if ex.ExitCode != 0 {
		for _, marker := range steganoNoMessage {
			if bytes.Contains(ex.Stderr, marker) {
				return model.LinesResult(nil)
			}
		}
		return exitFailure(ex)
	}
	msg := strings.TrimSpace(ansiEscape.ReplaceAllString(string(ex.Stdout), ""))
	if msg == "" {
		return model.LinesResult(nil)
	}
	return model.LinesResult([]string{fmt.Sprintf("revealed message: %q", truncate(msg, 200))})
}
