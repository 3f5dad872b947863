package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/nao1215/deepvision/internal/artifact"
	"github.com/nao1215/deepvision/internal/bitplane"
	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/lsb"
	"github.com/nao1215/deepvision/internal/metadata"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/tool"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxProcesses is how many external tool processes may run at once
// across all requests sharing an Orchestrator.
const DefaultMaxProcesses = 4

// Names of the in-process units in progress events.
const (
	UnitMetadata  = "metadata"
	UnitLSB       = "lsb"
	UnitBitPlanes = model.BitPlanesKey
)

// inProcessUnits is the number of units besides the adapters.
const inProcessUnits = 3

// Toolset is the registered adapter set a run executes.
// *tool.Registry implements it.
type Toolset interface {
	Adapters() []tool.Adapter
	Timeout(id string) time.Duration
}

var _ Toolset = (*tool.Registry)(nil)

// ArtifactStore persists rendered bit planes and hands out references.
// *artifact.Store implements it.
type ArtifactStore interface {
	Save(ctx context.Context, runID string, planes []bitplane.Plane) ([]model.PlaneRef, error)
	Remove(runID string) error
}

var _ ArtifactStore = (*artifact.Store)(nil)

// Observer receives progress events. Publish is called from several
// goroutines at once and must not block for long.
type Observer interface {
	Publish(ev model.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev model.Event)

// Publish calls f(ev).
func (f ObserverFunc) Publish(ev model.Event) { f(ev) }

// Orchestrator runs every analysis unit of an image concurrently.
// It is safe for concurrent use; the process pool is shared by all runs.
type Orchestrator struct {
	tools     Toolset
	artifacts ArtifactStore
	pool      *semaphore.Weighted
	analyzer  *lsb.Analyzer
	planes    bitplane.Options
	scratch   string
	observer  Observer
	logger    *slog.Logger
	// unitTimeout bounds each in-process unit; zero means the tool
	// default timeout of the Toolset.
	unitTimeout time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxProcesses bounds how many external processes may run at once.
func WithMaxProcesses(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pool = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithLSBAnalyzer sets the LSB analyzer.
func WithLSBAnalyzer(a *lsb.Analyzer) OrchestratorOption {
	return func(o *Orchestrator) {
		if a != nil {
			o.analyzer = a
		}
	}
}

// WithBitPlanes selects which bit planes are rendered.
func WithBitPlanes(opts bitplane.Options) OrchestratorOption {
	return func(o *Orchestrator) {
		o.planes = opts
	}
}

// WithScratchDir sets the parent of per-run scratch directories.
// Empty means os.TempDir.
func WithScratchDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scratch = dir
	}
}

// WithUnitTimeout bounds each in-process unit (metadata, LSB, bit planes).
// By default they get the Toolset's timeout for their unit name.
func WithUnitTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.unitTimeout = d
	}
}

// WithObserver sets the progress observer.
func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator running the adapters of tools and
// storing bit planes in artifacts.
func NewOrchestrator(tools Toolset, artifacts ArtifactStore, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		tools:     tools,
		artifacts: artifacts,
		pool:      semaphore.NewWeighted(DefaultMaxProcesses),
		analyzer:  lsb.New(),
		planes:    bitplane.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// RunAll analyzes h and returns once every unit has a terminal result.
//
// Adapter failures are recorded in the run. If ctx is cancelled the run's
// artifacts are removed and an error wrapping ErrCancelled is returned
// instead of a partial run.
func (o *Orchestrator) RunAll(ctx context.Context, runID string, h *imaging.Handle) (*model.AnalysisRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	adapters := o.tools.Adapters()
	ids := make([]string, len(adapters))
	for i, a := range adapters {
		ids[i] = a.ID()
	}

	run := model.NewAnalysisRun(runID, h.Info(), ids)
	run.StartedAt = time.Now()

	prog := &progress{
		o:        o,
		runID:    runID,
		filename: run.Image.Filename,
		total:    len(adapters) + inProcessUnits,
	}
	o.publish(model.Event{
		Type:     model.EventRunStarted,
		RunID:    runID,
		Filename: run.Image.Filename,
		Total:    prog.total,
	})

	scratch, err := o.prepareScratch(runID, h)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			o.logger.Warn("failed to remove scratch dir", "dir", scratch, "error", err)
		}
	}()

	in := tool.Input{
		Path:       filepath.Join(scratch, inputName(h.Format())),
		Data:       h.Bytes(),
		Format:     h.Format(),
		ScratchDir: scratch,
	}

	// Every unit owns one slot; nothing else writes to it until Wait returns.
	var (
		meta    containerMetadata
		stats   model.LSBStats
		planes  model.ToolResult
		results = make([]model.ToolResult, len(adapters))
	)

	// Units never return errors, so a plain group never cancels siblings.
	var g errgroup.Group

	g.Go(func() error {
		meta = o.extractMetadata(ctx, h)
		prog.finish(UnitMetadata, meta.status.String())
		return nil
	})
	g.Go(func() error {
		stats = o.analyzeLSB(ctx, h)
		status := model.StatusSuccess
		if stats.Error != "" {
			status = model.StatusError
		}
		prog.finish(UnitLSB, status.String())
		return nil
	})
	g.Go(func() error {
		planes = o.slicePlanes(ctx, runID, h)
		prog.finish(UnitBitPlanes, planes.Status().String())
		return nil
	})
	for i, a := range adapters {
		g.Go(func() error {
			results[i] = o.runAdapter(ctx, a, in)
			prog.finish(a.ID(), results[i].Status().String())
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // units report through their slots

	if err := ctx.Err(); err != nil {
		o.Discard(runID)
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	run.Metadata = meta.fields
	run.TrailingBytes = meta.trailing
	run.LSB = stats
	run.BitPlanes = planes
	for i, a := range adapters {
		run.Tools[a.ID()] = results[i]
	}
	run.FinishedAt = time.Now()

	if missing := run.Missing(); len(missing) > 0 {
		o.Discard(runID)
		return nil, fmt.Errorf("%w: no result for %v", ErrIncompleteRun, missing)
	}

	o.logger.Debug("analysis units finished",
		"run_id", runID,
		"tools", len(adapters),
		"succeeded", run.CountByStatus(model.StatusSuccess),
		"elapsed", run.Duration(),
	)
	return run, nil
}

// Discard removes the artifacts of a run that will not be reported.
func (o *Orchestrator) Discard(runID string) {
	if o.artifacts == nil {
		return
	}
	if err := o.artifacts.Remove(runID); err != nil {
		o.logger.Warn("failed to remove artifacts", "run_id", runID, "error", err)
	}
}

// Tools returns the adapter set.
func (o *Orchestrator) Tools() Toolset {
	return o.tools
}

// prepareScratch creates the run's scratch directory holding a copy of the
// image for external tools.
func (o *Orchestrator) prepareScratch(runID string, h *imaging.Handle) (string, error) {
	dir, err := os.MkdirTemp(o.scratch, "deepvision-"+runID+"-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, inputName(h.Format())), h.Bytes(), 0o600); err != nil {
		_ = os.RemoveAll(dir) //nolint:errcheck // best effort
		return "", fmt.Errorf("write scratch image: %w", err)
	}
	return dir, nil
}

// runAdapter queues process adapters for a pool slot and runs a under its
// timeout. The timeout starts once the slot is held.
func (o *Orchestrator) runAdapter(ctx context.Context, a tool.Adapter, in tool.Input) model.ToolResult {
	if a.Kind() == tool.KindProcess && o.pool != nil {
		if err := o.pool.Acquire(ctx, 1); err != nil {
			return model.ErrorResult(tool.CancelledMessage)
		}
		defer o.pool.Release(1)
	}

	start := time.Now()
	res := tool.Execute(ctx, a, in, o.tools.Timeout(a.ID()))
	o.logger.Debug("tool finished",
		"tool", a.ID(),
		"status", res.Status().String(),
		"findings", res.FindingCount(),
		"error", res.Message(),
		"elapsed", time.Since(start),
	)
	return res
}

// timeoutFor returns the deadline of an in-process unit.
func (o *Orchestrator) timeoutFor(unit string) time.Duration {
	if o.unitTimeout > 0 {
		return o.unitTimeout
	}
	return o.tools.Timeout(unit)
}

// containerMetadata is the metadata unit's output.
type containerMetadata struct {
	fields   map[string]string
	trailing int
	status   model.ToolStatus
}

// extractMetadata runs the metadata extractor under its timeout. On
// failure the run gets empty metadata.
func (o *Orchestrator) extractMetadata(ctx context.Context, h *imaging.Handle) containerMetadata {
	meta, err := tool.Within(ctx, o.timeoutFor(UnitMetadata), func(context.Context) (containerMetadata, error) {
		return containerMetadata{
			fields:   metadata.ExtractWithLogger(h, o.logger),
			trailing: metadata.TrailingBytes(h),
			status:   model.StatusSuccess,
		}, nil
	})
	if err != nil {
		o.logger.Warn("metadata extraction did not finish", "file", h.Info().Filename, "error", err)
		return containerMetadata{fields: map[string]string{}, status: model.StatusError}
	}
	return meta
}

// analyzeLSB runs the LSB analyzer under its timeout. On failure the
// statistics are neutral and carry the reason.
func (o *Orchestrator) analyzeLSB(ctx context.Context, h *imaging.Handle) model.LSBStats {
	stats, err := tool.Within(ctx, o.timeoutFor(UnitLSB), func(ctx context.Context) (model.LSBStats, error) {
		return o.analyzer.AnalyzeContext(ctx, h.Image())
	})
	if err != nil {
		reason := tool.FailureResult("lsb analyzer", err).Message()
		o.logger.Warn("lsb analysis did not finish", "file", h.Info().Filename, "error", reason)
		return model.LSBStats{Mean: 0.5, Level: model.SuspicionLow, Error: reason}
	}
	return stats
}

// slicePlanes renders and stores the configured bit planes under the
// unit's timeout.
func (o *Orchestrator) slicePlanes(ctx context.Context, runID string, h *imaging.Handle) model.ToolResult {
	if o.artifacts == nil {
		return model.ErrorResult("no artifact store configured")
	}
	refs, err := tool.Within(ctx, o.timeoutFor(UnitBitPlanes), func(ctx context.Context) ([]model.PlaneRef, error) {
		planes, err := bitplane.SliceContext(ctx, h.Image(), o.planes)
		if err != nil {
			return nil, err
		}
		return o.artifacts.Save(ctx, runID, planes)
	})
	if err != nil {
		return tool.FailureResult("bit-plane slicer", err)
	}
	return model.PlanesResult(refs)
}

func (o *Orchestrator) publish(ev model.Event) {
	if o.observer == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	o.observer.Publish(ev)
}

// progress counts finished units of one run.
type progress struct {
	o        *Orchestrator
	runID    string
	filename string
	total    int
	done     atomic.Int32
}

func (p *progress) finish(unit, status string) {
	n := int(p.done.Add(1))
	p.o.publish(model.Event{
		Type:     model.EventUnitFinished,
		RunID:    p.runID,
		Filename: p.filename,
		Unit:     unit,
		Status:   status,
		Done:     n,
		Total:    p.total,
	})
}

func inputName(f model.Format) string {
	return "input" + f.Extension()
}
