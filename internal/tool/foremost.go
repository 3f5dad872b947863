package tool

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nao1215/deepvision/internal/model"
)

// NewForemost returns the file-carving adapter. Foremost writes carved
// files into the adapter's scratch directory, which is removed afterwards.
func NewForemost(runner Runner, opts ...CommandOption) *CommandAdapter {
	return NewCommandAdapter(CommandSpec{
		ID:           "foremost",
		Binary:       "foremost",
		Description:  "File carving (foremost)",
		NeedsScratch: true,
		Args: func(in Input, scratch string) []string {
			return []string{"-Q", "-i", in.Path, "-o", filepath.Join(scratch, "out")}
		},
		Parse: parseForemost,
	}, runner, opts...)
}

// parseForemost lists carved files. Foremost names files after the 512
// byte block they start in, so a file starting with 00000000 is the
// carrier image itself and is not a finding.
func parseForemost(ex Execution) model.ToolResult {
	root := filepath.Join(ex.Scratch, "out")
	var findings []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == "audit.txt" || strings.HasPrefix(d.Name(), "00000000.") {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		size := int64(0)
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		findings = append(findings, fmt.Sprintf("%s (%d bytes)", filepath.ToSlash(rel), size))
		return nil
	})
	if err != nil && ex.ExitCode != 0 {
		return exitFailure(ex)
	}
	sort.Strings(findings)
	return model.LinesResult(capLines(findings, MaxFindingLines))
}
