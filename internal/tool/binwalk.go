package tool

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nao1215/deepvision/internal/model"
)

// binwalkRow matches a signature row: "DECIMAL  0xHEX  DESCRIPTION".
var binwalkRow = regexp.MustCompile(`^(\d+)\s+0x([0-9A-Fa-f]+)\s+(.+)$`)

// intrinsicSignatures are signatures every file of a format contains, such
// as the zlib stream inside PNG IDAT chunks or the TIFF header of an EXIF
// block. They are not findings.
var intrinsicSignatures = map[model.Format][]string{
	model.FormatPNG:  {"Zlib compressed data"},
	model.FormatJPEG: {"TIFF image data", "JPEG image data"},
	model.FormatTIFF: {"TIFF image data"},
}

// NewBinwalk returns the embedded-signature scanner adapter.
// Signatures at offset 0 describe the carrier itself and are not findings.
func NewBinwalk(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:          "binwalk",
		Binary:      "binwalk",
		Description: "Embedded file signatures (binwalk)",
		Args: func(in Input, _ string) []string {
			return []string{in.Path}
		},
		Parse: parseBinwalk,
	}, runner, opts...)
}

func parseBinwalk(ex Execution) model.ToolResult {
	if ex.ExitCode != 0 {
		return exitFailure(ex)
	}
	var findings []string
	for _, line := range splitLines(ex.Stdout) {
		m := binwalkRow.FindStringSubmatch(line)
		if m == nil || m[1] == "0" || intrinsic(ex.Input.Format, m[3]) {
			continue
		}
		findings = append(findings, fmt.Sprintf("offset %s (0x%s): %s", m[1], strings.ToUpper(m[2]), truncate(m[3], 200)))
	}
	return model.LinesResult(capLines(findings, MaxFindingLines))
}

func intrinsic(f model.Format, description string) bool {
	for _, prefix := range intrinsicSignatures[f] {
		if strings.HasPrefix(description, prefix) {
			return true
		}
	}
	return false
}
