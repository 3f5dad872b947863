package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/report"
	"github.com/nao1215/deepvision/internal/scoring"
)

// Engine analyzes uploads from raw bytes to a response document.
// It is safe for concurrent use.
type Engine struct {
	orchestrator *Orchestrator
	policy       scoring.Policy
	recorder     Recorder
	ingestOpts   []imaging.Option
	newID        func() string
	logger       *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPolicy sets the scoring policy.
func WithPolicy(p scoring.Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithRecorder enables persisting documents.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithIngestOptions sets options for the ingestor.
func WithIngestOptions(opts ...imaging.Option) EngineOption {
	return func(e *Engine) {
		e.ingestOpts = opts
	}
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(f func() string) EngineOption {
	return func(e *Engine) {
		if f != nil {
			e.newID = f
		}
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine on top of o.
func NewEngine(o *Orchestrator, opts ...EngineOption) *Engine {
	e := &Engine{
		orchestrator: o,
		policy:       scoring.DefaultPolicy(),
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Pipeline returns the step sequence used for each request.
func (e *Engine) Pipeline() *Pipeline {
	p := New(WithLogger(e.logger))
	p.AddSteps(
		NewIngestStep(e.ingestOpts...),
		NewAnalyzeStep(e.orchestrator),
		NewScoreStep(e.policy),
		NewAssembleStep(),
	)
	if e.recorder != nil {
		p.AddStep(NewPersistStep(e.recorder, WithPersistLogger(e.logger)))
	}
	return p
}

// Analyze runs the whole pipeline on one upload.
//
// It fails only on ingestion errors (*imaging.DecodeError) and on
// cancellation (ErrCancelled); adapter failures are part of the document.
func (e *Engine) Analyze(ctx context.Context, filename string, data []byte) (*report.Document, error) {
	job := NewJob(e.newID(), filename, data)

	err := e.Pipeline().Execute(ctx, job)
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	if err != nil {
		if job.Run != nil {
			e.orchestrator.Discard(job.ID)
		}
		e.orchestrator.publish(model.Event{
			Type:      model.EventRunFailed,
			RunID:     job.ID,
			Filename:  filename,
			Error:     err.Error(),
			Timestamp: time.Now(),
		})
		return nil, err
	}

	e.orchestrator.publish(completedEvent(job))
	e.logger.Info("analysis complete",
		"run_id", job.ID,
		"file", filename,
		"verdict", job.Final.Verdict.String(),
		"score", job.Final.SuspicionScore,
		"elapsed", time.Since(job.StartedAt),
	)
	return job.Document, nil
}

// Tools returns the adapter set the engine runs.
func (e *Engine) Tools() Toolset {
	return e.orchestrator.Tools()
}
