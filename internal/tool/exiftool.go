package tool

import (
	"regexp"
	"strings"

	"github.com/nao1215/deepvision/internal/model"
)

// exiftoolLine matches "-G" output: "[Group]  Tag Name   : value".
var exiftoolLine = regexp.MustCompile(`^\[([^\]]+)\]\s+(.+?)\s*:\s(.*)$`)

// exiftoolSkip lists tags that describe the scratch file rather than the image.
var exiftoolSkip = map[string]bool{
	"ExifTool:ExifTool Version Number": true,
	"File:File Name":                   true,
	"File:Directory":                   true,
	"File:File Modification Date/Time": true,
	"File:File Access Date/Time":       true,
	"File:File Inode Change Date/Time": true,
	"File:File Permissions":            true,
}

// NewExiftool returns the exiftool adapter (exiftool -G).
func NewExiftool(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "exiftool",
		Binary:      "exiftool",
		Description: "Metadata dump (exiftool -G)",
		Args: func(in Input, _ string) []string {
			return []string{"-G", in.Path}
		},
		Parse: parseExiftool,
	}, runner, opts...)
}

func parseExiftool(ex Execution) model.ToolResult {
	if ex.ExitCode != 0 {
		return exitFailure(ex)
	}
	data := map[string]string{}
	for _, line := range splitLines(ex.Stdout) {
		m := exiftoolLine.FindStringSubmatch(line)
		if m == nil || m[1] == "System" {
			continue
		}
		key := m[1] + ":" + strings.TrimSpace(m[2])
		if exiftoolSkip[key] {
			continue
		}
		data[key] = truncate(strings.TrimSpace(m[3]), 1024)
	}
	return model.DataResult(data)
}

// IsExiftoolWarning reports whether a data key is an exiftool warning,
// e.g. "ExifTool:Warning".
func IsExiftoolWarning(key string) bool {
	return strings.HasSuffix(key, ":Warning")
}
