package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/deepvision/internal/model"
)

// Kind tells the orchestrator whether an adapter spawns processes.
type Kind int

const (
	// KindProcess adapters run an external executable and must hold a slot
	// of the shared process pool while they do.
	KindProcess Kind = iota
	// KindInProcess adapters run library code inside this process.
	KindInProcess
)

// String returns a human-readable name of the kind.
func (k Kind) String() string {
	if k == KindInProcess {
		return "library"
	}
	return "process"
}

// Input is everything an adapter may look at. It is shared read-only
// between all adapters of a run.
type Input struct {
	// Path is a scratch copy of the image on disk, for tools that only
	// accept files. It carries the extension of the detected format.
	Path string
	// Data is the raw image.
	Data []byte
	// Format is the detected container format.
	Format model.Format
	// ScratchDir is a per-run directory adapters may create
	// subdirectories in. Adapters must remove what they create.
	ScratchDir string
}

// Adapter wraps one analysis tool.
type Adapter interface {
	// ID is the stable key of the adapter in tool_reports.
	ID() string
	// Description is a short human-readable label.
	Description() string
	// Kind reports whether Run spawns a process.
	Kind() Kind
	// Run executes the tool. It never returns an error; every failure is
	// encoded in the result. Implementations should honor ctx.
	Run(ctx context.Context, in Input) model.ToolResult
}

// Locator is implemented by adapters backed by an executable.
type Locator interface {
	// Binary returns the executable name or configured path.
	Binary() string
	// Locate resolves the executable, returning ErrNotInstalled if absent.
	Locate() (string, error)
}

// TimeoutMessage is the Error reason of an adapter that exceeded its
// deadline.
const TimeoutMessage = "timeout"

// CancelledMessage is the Error reason of an adapter whose request went away.
const CancelledMessage = "cancelled"

// ErrTimeout is returned by Within when fn exceeds its deadline.
var ErrTimeout = errors.New(TimeoutMessage)

// ErrPanicked is returned by Within when fn panics.
var ErrPanicked = errors.New("panicked")

// Within runs fn with a deadline of timeout (none if timeout <= 0) and
// recovers from panics. It returns within roughly timeout even if fn
// ignores its context; the abandoned goroutine is left to finish on its own
// and its result is dropped.
//
// The error is ErrTimeout when the deadline passed, ctx.Err() when ctx
// ended first, an error wrapping ErrPanicked after a panic, or whatever fn
// returned.
func Within[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome{zero, fmt.Errorf("%w: %v", ErrPanicked, r)}
			}
		}()
		v, err := fn(runCtx)
		done <- outcome{v, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		select {
		case out = <-done:
		default:
			out.err = runCtx.Err()
		}
	}

	if out.err != nil && !errors.Is(out.err, ErrPanicked) && runCtx.Err() != nil {
		if err := ctx.Err(); err != nil {
			out.err = err
		} else {
			out.err = ErrTimeout
		}
	}
	return out.v, out.err
}

// Execute runs a with a deadline of timeout and recovers from panics.
// A result that is not Success and was cut short by the deadline becomes
// an Error("timeout").
func Execute(ctx context.Context, a Adapter, in Input, timeout time.Duration) model.ToolResult {
	res, err := Within(ctx, timeout, func(runCtx context.Context) (model.ToolResult, error) {
		res := a.Run(runCtx, in)
		if res.Status() != model.StatusSuccess {
			return res, runCtx.Err()
		}
		return res, nil
	})
	if err != nil {
		return FailureResult("adapter", err)
	}
	return res
}

// FailureResult converts an error from Within into an Error result.
// unit names what failed in panic messages.
func FailureResult(unit string, err error) model.ToolResult {
	switch {
	case errors.Is(err, ErrTimeout):
		return model.ErrorResult(TimeoutMessage)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.ErrorResult(CancelledMessage)
	case errors.Is(err, ErrPanicked):
		return model.ErrorResult(unit + " " + err.Error())
	default:
		return model.ErrorResult(err.Error())
	}
}
