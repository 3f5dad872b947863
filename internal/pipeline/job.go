package pipeline

import (
	"time"

	"github.com/nao1215/deepvision/internal/imaging"
	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/report"
)

// Job carries one analysis request through the pipeline.
// Steps fill in fields in order; later steps read what earlier ones wrote.
type Job struct {
	// ID identifies the run. Artifacts and history rows are keyed by it.
	ID string

	// Filename and Data are the upload as received.
	Filename string
	Data     []byte

	// Handle is set by the ingest step.
	Handle *imaging.Handle

	// Run is set by the analyze step.
	Run *model.AnalysisRun

	// Final is set by the score step.
	Final model.FinalReport

	// Document is set by the assemble step.
	Document *report.Document

	// PerformedSteps lists the steps that completed, in order.
	PerformedSteps []string

	// StartedAt is when the job was created.
	StartedAt time.Time
}

// NewJob creates a job for an uploaded file.
func NewJob(id, filename string, data []byte) *Job {
	return &Job{
		ID:        id,
		Filename:  filename,
		Data:      data,
		StartedAt: time.Now(),
	}
}
