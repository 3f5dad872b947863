package model

import "time"

// BitPlanesKey is the tool_reports key under which rendered bit planes are
// reported.
const BitPlanesKey = "bit_planes"

// AnalysisRun aggregates every unit result for one image.
// It is filled by the orchestrator and consumed read-only by the scorer and
// the report assembler.
type AnalysisRun struct {
	// ID uniquely identifies the run. Artifacts are stored under it.
	ID string

	// Image holds the ingested image's descriptors.
	Image ImageInfo

	// Metadata is the extractor's output. It may be empty but never nil.
	Metadata map[string]string

	// TrailingBytes is the number of bytes after the end-of-image marker,
	// located by the container parser rather than read back from Metadata.
	TrailingBytes int

	// LSB is the LSB analyzer's output.
	LSB LSBStats

	// BitPlanes is the slicer's result.
	BitPlanes ToolResult

	// Tools maps adapter ID to its result. Every registered adapter has
	// exactly one entry once the run completes.
	Tools map[string]ToolResult

	// ToolOrder lists adapter IDs in registration order.
	ToolOrder []string

	// StartedAt and FinishedAt bound the fan-out phase.
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewAnalysisRun creates an empty run for the given adapter IDs.
func NewAnalysisRun(id string, image ImageInfo, toolOrder []string) *AnalysisRun {
	order := make([]string, len(toolOrder))
	copy(order, toolOrder)
	return &AnalysisRun{
		ID:        id,
		Image:     image,
		Metadata:  map[string]string{},
		Tools:     make(map[string]ToolResult, len(order)),
		ToolOrder: order,
	}
}

// Missing returns the registered adapter IDs that have no result yet.
func (r *AnalysisRun) Missing() []string {
	var missing []string
	for _, id := range r.ToolOrder {
		if _, ok := r.Tools[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// CountByStatus returns how many adapters ended with the given status.
func (r *AnalysisRun) CountByStatus(status ToolStatus) int {
	n := 0
	for _, id := range r.ToolOrder {
		if res, ok := r.Tools[id]; ok && res.Status() == status {
			n++
		}
	}
	return n
}

// CountApplicable returns how many adapters handle the image format.
func (r *AnalysisRun) CountApplicable() int {
	n := 0
	for _, id := range r.ToolOrder {
		if res, ok := r.Tools[id]; ok && res.Applicable() {
			n++
		}
	}
	return n
}

// Duration returns how long the fan-out phase took.
func (r *AnalysisRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
