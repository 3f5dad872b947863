package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/report"
	"github.com/nao1215/deepvision/internal/scoring"
)

// IngestStep sniffs and decodes the upload.
// Its errors are *imaging.DecodeError values.
type IngestStep struct {
	opts []imaging.Option
}

// NewIngestStep creates an IngestStep.
func NewIngestStep(opts ...imaging.Option) *IngestStep {
	return &IngestStep{opts: opts}
}

// Name returns the step name.
func (s *IngestStep) Name() string { return "ingest" }

// Do decodes job.Data into job.Handle.
func (s *IngestStep) Do(_ context.Context, job *Job) error {
	h, err := imaging.Ingest(job.Filename, job.Data, s.opts...)
	if err != nil {
		return err
	}
	job.Handle = h
	return nil
}

// AnalyzeStep runs every analysis unit through an Orchestrator.
type AnalyzeStep struct {
	orchestrator *Orchestrator
}

// NewAnalyzeStep creates an AnalyzeStep.
func NewAnalyzeStep(o *Orchestrator) *AnalyzeStep {
	return &AnalyzeStep{orchestrator: o}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string { return "analyze" }

// Do fills job.Run.
func (s *AnalyzeStep) Do(ctx context.Context, job *Job) error {
	if job.Handle == nil {
		return ErrNoImage
	}
	run, err := s.orchestrator.RunAll(ctx, job.ID, job.Handle)
	if err != nil {
		return err
	}
	job.Run = run
	return nil
}

// ScoreStep synthesizes the verdict.
type ScoreStep struct {
	policy scoring.Policy
}

// NewScoreStep creates a ScoreStep using policy.
func NewScoreStep(policy scoring.Policy) *ScoreStep {
	return &ScoreStep{policy: policy}
}

// Name returns the step name.
func (s *ScoreStep) Name() string { return "score" }

// Do fills job.Final.
func (s *ScoreStep) Do(_ context.Context, job *Job) error {
	if job.Run == nil {
		return ErrIncompleteRun
	}
	job.Final = scoring.Score(job.Run, s.policy)
	return nil
}

// AssembleStep builds the response document.
type AssembleStep struct{}

// NewAssembleStep creates an AssembleStep.
func NewAssembleStep() *AssembleStep { return &AssembleStep{} }

// Name returns the step name.
func (s *AssembleStep) Name() string { return "assemble" }

// Do fills job.Document.
func (s *AssembleStep) Do(_ context.Context, job *Job) error {
	if job.Run == nil {
		return ErrIncompleteRun
	}
	job.Document = report.Assemble(job.Run, job.Final)
	return nil
}

// Recorder stores finished documents. *database.AnalysisDB implements it.
type Recorder interface {
	Save(ctx context.Context, doc *report.Document) error
}

// PersistStep records the document in the history.
// A storage failure is logged and does not fail the request.
type PersistStep struct {
	recorder Recorder
	logger   *slog.Logger
	timeout  time.Duration
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets the logger.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// WithPersistTimeout bounds the database write.
func WithPersistTimeout(d time.Duration) PersistStepOption {
	return func(s *PersistStep) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewPersistStep creates a PersistStep writing to recorder.
func NewPersistStep(recorder Recorder, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		recorder: recorder,
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string { return "persist" }

// Do saves job.Document.
func (s *PersistStep) Do(ctx context.Context, job *Job) error {
	if job.Document == nil || s.recorder == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.recorder.Save(ctx, job.Document); err != nil {
		s.logger.Warn("failed to record analysis",
			"run_id", job.ID,
			"file", job.Filename,
			"error", err,
		)
	}
	return nil
}

// completedEvent is published once a document exists.
func completedEvent(job *Job) model.Event {
	return model.Event{
		Type:      model.EventRunCompleted,
		RunID:     job.ID,
		Filename:  job.Filename,
		Verdict:   job.Final.Verdict.String(),
		Score:     job.Final.SuspicionScore,
		Timestamp: time.Now(),
	}
}
