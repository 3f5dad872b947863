package tool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/nao1215/deepvision/internal/model"
)

// Execution is what a parser receives after the process exited.
type Execution struct {
	Output
	// Input is the adapter input the process was run on.
	Input Input
	// Scratch is the adapter's private scratch directory, if requested.
	// It still exists while the parser runs.
	Scratch string
}

// CommandSpec describes an external tool.
type CommandSpec struct {
	// ID is the adapter ID.
	ID string
	// Binary is the executable name looked up on PATH.
	Binary string
	// Description is a short label.
	Description string
	// Formats restricts the tool to these formats. Empty means any.
	Formats []model.Format
	// Args builds argv[1:] for an input. scratch is empty unless
	// NeedsScratch is set.
	Args func(in Input, scratch string) []string
	// Stdin is written to the process.
	Stdin string
	// NeedsScratch creates a private directory for the tool and removes it
	// after Parse returns.
	NeedsScratch bool
	// Parse normalizes the process output.
	Parse func(ex Execution) model.ToolResult
}

// CommandAdapter runs an external tool described by a CommandSpec.
type CommandAdapter struct {
	spec      CommandSpec
	runner    Runner
	binary    string
	extraArgs []string
}

var (
	_ Adapter = (*CommandAdapter)(nil)
	_ Locator = (*CommandAdapter)(nil)
)

// CommandOption configures a CommandAdapter.
type CommandOption func(*CommandAdapter)

// WithBinary overrides the executable name or sets an absolute path.
func WithBinary(path string) CommandOption {
	return func(a *CommandAdapter) {
		if path != "" {
			a.binary = path
		}
	}
}

// WithExtraArgs places args before the arguments the adapter builds.
func WithExtraArgs(args ...string) CommandOption {
	return func(a *CommandAdapter) {
		a.extraArgs = append(a.extraArgs, args...)
	}
}

// NewCommandAdapter creates an adapter for spec.
func NewCommandAdapter(spec CommandSpec, runner Runner, opts ...CommandOption) *CommandAdapter {
	a := &CommandAdapter{spec: spec, runner: runner, binary: spec.Binary}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID implements Adapter.
func (a *CommandAdapter) ID() string { return a.spec.ID }

// Description implements Adapter.
func (a *CommandAdapter) Description() string { return a.spec.Description }

// Kind implements Adapter.
func (a *CommandAdapter) Kind() Kind { return KindProcess }

// Binary implements Locator.
func (a *CommandAdapter) Binary() string { return a.binary }

// Locate implements Locator.
func (a *CommandAdapter) Locate() (string, error) {
	return a.runner.LookPath(a.binary)
}

// Supports reports whether the tool accepts images of format f.
func (a *CommandAdapter) Supports(f model.Format) bool {
	return len(a.spec.Formats) == 0 || slices.Contains(a.spec.Formats, f)
}

// Run implements Adapter.
func (a *CommandAdapter) Run(ctx context.Context, in Input) model.ToolResult {
	if !a.Supports(in.Format) {
		return model.UnsupportedResult(fmt.Sprintf("%s does not support %s images", a.spec.Binary, in.Format))
	}

	path, err := a.Locate()
	if err != nil {
		return model.NotInstalledResult()
	}

	scratch := ""
	if a.spec.NeedsScratch {
		scratch, err = os.MkdirTemp(in.ScratchDir, a.spec.ID+"-")
		if err != nil {
			return model.ErrorResult(fmt.Sprintf("failed to create scratch directory: %v", err))
		}
		defer os.RemoveAll(scratch)
	}

	out, err := a.runner.Run(ctx, Command{
		Path:  path,
		Args:  append(slices.Clone(a.extraArgs), a.spec.Args(in, scratch)...),
		Stdin: a.spec.Stdin,
		Dir:   scratch,
	})
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return model.ErrorResult(TimeoutMessage)
	case ctx.Err() != nil:
		return model.ErrorResult(CancelledMessage)
	case errors.Is(err, ErrNotInstalled):
		return model.NotInstalledResult()
	case err != nil:
		return model.ErrorResult(err.Error())
	}

	return a.spec.Parse(Execution{Output: out, Input: in, Scratch: scratch})
}
