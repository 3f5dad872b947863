package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/deepvision/internal/bitplane"
	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/testimage"
	"github.com/nao1215/deepvision/internal/tool"
)

// TestRunAllCollectsEveryAdapter tests that every adapter ends with a
// terminal result whatever it does.
func TestRunAllCollectsEveryAdapter(t *testing.T) {
	t.Parallel()

	adapters := []tool.Adapter{
		&fakeAdapter{id: "ok", run: func(context.Context, tool.Input) model.ToolResult {
			return model.LinesResult([]string{"finding"})
		}},
		&fakeAdapter{id: "broken", run: func(context.Context, tool.Input) model.ToolResult {
			return model.ErrorResult("exit status 1")
		}},
		&fakeAdapter{id: "absent", run: func(context.Context, tool.Input) model.ToolResult {
			return model.NotInstalledResult()
		}},
		&fakeAdapter{id: "panics", kind: tool.KindInProcess, run: func(context.Context, tool.Input) model.ToolResult {
			panic("bad input")
		}},
	}
	o := NewOrchestrator(newRegistry(t, adapters, time.Second), newStore(t), WithOrchestratorLogger(discardLogger))

	run, err := o.RunAll(context.Background(), "run-1", ingestGray(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]model.ToolStatus{
		"ok":     model.StatusSuccess,
		"broken": model.StatusError,
		"absent": model.StatusNotInstalled,
		"panics": model.StatusError,
	}
	if len(run.Tools) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(run.Tools))
	}
	for id, status := range want {
		if got := run.Tools[id].Status(); got != status {
			t.Errorf("%s: expected %s, got %s", id, status, got)
		}
	}
	if len(run.Missing()) != 0 {
		t.Errorf("unexpected missing adapters %v", run.Missing())
	}
	if run.Metadata == nil {
		t.Error("expected non-nil metadata")
	}
	if run.LSB.Level != model.SuspicionLow {
		t.Errorf("expected Low suspicion, got %s", run.LSB.Level)
	}
	if got := len(run.BitPlanes.Planes()); got != 6 {
		t.Errorf("expected 6 planes, got %d", got)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Error("expected FinishedAt after StartedAt")
	}
}

// TestRunAllTimeout tests that an adapter ignoring its deadline is reported
// as timed out without holding up the run.
func TestRunAllTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	adapters := []tool.Adapter{
		&fakeAdapter{id: "sleeper", run: func(context.Context, tool.Input) model.ToolResult {
			<-release
			return model.LinesResult(nil)
		}},
		&fakeAdapter{id: "fast"},
	}
	o := NewOrchestrator(newRegistry(t, adapters, 50*time.Millisecond), newStore(t), WithOrchestratorLogger(discardLogger))

	start := time.Now()
	run, err := o.RunAll(context.Background(), "run-timeout", ingestGray(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v", elapsed)
	}

	res := run.Tools["sleeper"]
	if res.Status() != model.StatusError || res.Message() != tool.TimeoutMessage {
		t.Errorf("expected timeout error, got %s %q", res.Status(), res.Message())
	}
	if !run.Tools["fast"].Succeeded() {
		t.Error("expected fast adapter to succeed")
	}
}

// TestRunAllProcessPool tests that process adapters wait for a pool slot.
func TestRunAllProcessPool(t *testing.T) {
	t.Parallel()

	var active, peak atomic.Int32
	busy := func(context.Context, tool.Input) model.ToolResult {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return model.LinesResult(nil)
	}

	adapters := []tool.Adapter{
		&fakeAdapter{id: "a", run: busy},
		&fakeAdapter{id: "b", run: busy},
		&fakeAdapter{id: "c", run: busy},
		&fakeAdapter{id: "d", run: busy},
	}
	o := NewOrchestrator(newRegistry(t, adapters, 5*time.Second), newStore(t),
		WithMaxProcesses(1),
		WithOrchestratorLogger(discardLogger),
	)

	run, err := o.RunAll(context.Background(), "run-pool", ingestGray(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got != 1 {
		t.Errorf("expected at most 1 concurrent process, got %d", got)
	}
	if got := run.CountByStatus(model.StatusSuccess); got != 4 {
		t.Errorf("expected 4 successes, got %d", got)
	}
}

// TestRunAllCancelled tests that cancellation yields no run and no
// leftover artifacts.
func TestRunAllCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adapters := []tool.Adapter{
		&fakeAdapter{id: "cancel", run: func(ctx context.Context, _ tool.Input) model.ToolResult {
			cancel()
			<-ctx.Done()
			return model.ErrorResult("cancelled")
		}},
	}
	store := newStore(t)
	o := NewOrchestrator(newRegistry(t, adapters, 5*time.Second), store, WithOrchestratorLogger(discardLogger))

	run, err := o.RunAll(ctx, "run-cancel", ingestGray(t))
	if run != nil {
		t.Error("expected no run")
	}
	if !errors.Is(err, ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected ErrCancelled wrapping context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "run-cancel")); !os.IsNotExist(err) {
		t.Errorf("expected artifacts to be removed, stat error %v", err)
	}
}

// TestRunAllCancelledDuringSlicing tests that cancellation reaches the
// in-process units instead of waiting for bit planes to be rendered.
func TestRunAllCancelledDuringSlicing(t *testing.T) {
	t.Parallel()

	h, err := imaging.Ingest("large.png", testimage.PNG(t, testimage.Checkerboard(2000, 2000, 127, 128)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := bitplane.Options{
		Channels: []bitplane.Channel{bitplane.Red, bitplane.Green, bitplane.Blue, bitplane.Luminance},
		Bits:     []int{0, 1, 2, 3, 4, 5, 6, 7},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapters := []tool.Adapter{
		&fakeAdapter{id: "cancel", run: func(ctx context.Context, _ tool.Input) model.ToolResult {
			time.Sleep(10 * time.Millisecond)
			cancel()
			<-ctx.Done()
			return model.ErrorResult(tool.CancelledMessage)
		}},
	}
	store := newStore(t)
	o := NewOrchestrator(newRegistry(t, adapters, time.Minute), store,
		WithBitPlanes(all),
		WithOrchestratorLogger(discardLogger),
	)

	start := time.Now()
	run, err := o.RunAll(ctx, "run-large", h)
	elapsed := time.Since(start)

	if run != nil || !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled and no run, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("RunAll took %v after cancellation", elapsed)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "run-large")); !os.IsNotExist(err) {
		t.Errorf("expected artifacts to be removed, stat error %v", err)
	}

	start = time.Now()
	if _, err := o.RunAll(ctx, "run-late", h); !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled for a done context, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("RunAll on a done context took %v", elapsed)
	}
}

// TestRunAllUnitTimeout tests that in-process units end with a timeout
// result instead of holding up the run.
func TestRunAllUnitTimeout(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(newRegistry(t, emptyAdapters(), time.Second), newStore(t),
		WithUnitTimeout(time.Nanosecond),
		WithOrchestratorLogger(discardLogger),
	)
	run, err := o.RunAll(context.Background(), "run-unit-timeout", ingestGray(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.LSB.Error != tool.TimeoutMessage {
		t.Errorf("LSB.Error = %q, expected %q", run.LSB.Error, tool.TimeoutMessage)
	}
	if run.LSB.Level != model.SuspicionLow || run.LSB.Mean != 0.5 {
		t.Errorf("expected neutral statistics, got %+v", run.LSB)
	}
	if run.BitPlanes.Status() != model.StatusError || run.BitPlanes.Message() != tool.TimeoutMessage {
		t.Errorf("bit planes = %v %q, expected Error timeout", run.BitPlanes.Status(), run.BitPlanes.Message())
	}
	if run.Metadata == nil {
		t.Error("metadata must never be nil")
	}
	for _, id := range tool.CatalogIDs {
		if !run.Tools[id].Succeeded() {
			t.Errorf("adapter %s = %v, expected its own timeout to apply", id, run.Tools[id].Status())
		}
	}
}

// TestRunAllTrailingBytes tests that the container's trailing byte count
// reaches the run.
func TestRunAllTrailingBytes(t *testing.T) {
	t.Parallel()

	data := append(grayPNG(t), []byte("appended secret")...)
	h, err := imaging.Ingest("tail.png", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o := NewOrchestrator(newRegistry(t, emptyAdapters(), time.Second), newStore(t), WithOrchestratorLogger(discardLogger))
	run, err := o.RunAll(context.Background(), "run-tail", h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.TrailingBytes != len("appended secret") {
		t.Errorf("TrailingBytes = %d, expected %d", run.TrailingBytes, len("appended secret"))
	}
}

// TestRunAllScratch tests that adapters see the image on disk and that the
// scratch directory is removed afterwards.
func TestRunAllScratch(t *testing.T) {
	t.Parallel()

	scratchRoot := t.TempDir()
	h := ingestGray(t)

	var seen []byte
	adapters := []tool.Adapter{
		&fakeAdapter{id: "reader", run: func(_ context.Context, in tool.Input) model.ToolResult {
			data, err := os.ReadFile(in.Path)
			if err != nil {
				return model.ErrorResult(err.Error())
			}
			seen = data
			return model.LinesResult(nil)
		}},
	}
	o := NewOrchestrator(newRegistry(t, adapters, time.Second), newStore(t),
		WithScratchDir(scratchRoot),
		WithOrchestratorLogger(discardLogger),
	)

	run, err := o.RunAll(context.Background(), "run-scratch", h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !run.Tools["reader"].Succeeded() {
		t.Fatalf("reader failed: %s", run.Tools["reader"].Message())
	}
	if !bytes.Equal(seen, h.Bytes()) {
		t.Error("expected scratch copy to equal the upload")
	}
	entries, err := os.ReadDir(scratchRoot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected scratch root to be empty, found %d entries", len(entries))
	}
}

// TestRunAllEvents tests progress notifications.
func TestRunAllEvents(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []model.Event
	)
	obs := ObserverFunc(func(ev model.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	})

	o := NewOrchestrator(newRegistry(t, emptyAdapters(), time.Second), newStore(t),
		WithObserver(obs),
		WithOrchestratorLogger(discardLogger),
	)
	if _, err := o.RunAll(context.Background(), "run-events", ingestGray(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	total := len(tool.CatalogIDs) + inProcessUnits
	if len(events) != total+1 {
		t.Fatalf("expected %d events, got %d", total+1, len(events))
	}
	if events[0].Type != model.EventRunStarted || events[0].Total != total {
		t.Errorf("unexpected first event %+v", events[0])
	}
	maxDone := 0
	units := make(map[string]bool)
	for _, ev := range events[1:] {
		if ev.Type != model.EventUnitFinished {
			t.Errorf("unexpected event type %s", ev.Type)
		}
		units[ev.Unit] = true
		maxDone = max(maxDone, ev.Done)
	}
	if maxDone != total {
		t.Errorf("expected final done count %d, got %d", total, maxDone)
	}
	for _, unit := range []string{UnitMetadata, UnitLSB, UnitBitPlanes, "steghide"} {
		if !units[unit] {
			t.Errorf("missing event for %s", unit)
		}
	}
}
