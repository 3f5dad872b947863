package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultMaxOutput caps the captured stdout and stderr of one process.
const DefaultMaxOutput = 8 << 20

// Command describes one process invocation.
type Command struct {
	// Path is the resolved executable path.
	Path string
	// Args are passed verbatim as argv[1:].
	Args []string
	// Stdin is written to the process's standard input.
	Stdin string
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

// Output is what a finished process produced.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	// Truncated is true when either stream exceeded the capture limit.
	Truncated bool
}

// Runner starts processes.
// A non-zero exit status is reported through Output.ExitCode, not as an
// error. Run returns an error only when the process could not be started
// or was killed because ctx ended.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
	LookPath(file string) (string, error)
}

// OSRunner runs real processes with os/exec.
type OSRunner struct {
	// MaxOutput caps each captured stream. Zero means DefaultMaxOutput.
	MaxOutput int
	// WaitDelay bounds how long Run waits for I/O after the process is
	// killed. Zero means one second.
	WaitDelay time.Duration
}

var _ Runner = OSRunner{}

// Run implements Runner.
func (r OSRunner) Run(ctx context.Context, c Command) (Output, error) {
	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = time.Second
	}

	err := cmd.Run()
	out := Output{
		Stdout:    stdout.buf.Bytes(),
		Stderr:    stderr.buf.Bytes(),
		Truncated: stdout.truncated || stderr.truncated,
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return out, fmt.Errorf("%w: %s", ErrNotInstalled, c.Path)
		}
		return out, fmt.Errorf("failed to run %s: %w", c.Path, err)
	}
	return out, nil
}

// LookPath implements Runner.
func (OSRunner) LookPath(file string) (string, error) {
	path, err := exec.LookPath(file)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInstalled, file)
	}
	return path, nil
}

// cappedBuffer keeps the first limit bytes and silently drops the rest so
// a chatty process cannot exhaust memory.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}
