package report

import (
	"slices"
	"time"
)

// Score change directions.
const (
	DirectionWorsened  = "worsened"
	DirectionImproved  = "improved"
	DirectionUnchanged = "unchanged"
)

// Comparison is the difference between two analyses. It is used to see
// what a tool upgrade or a configuration change did to a stored result.
type Comparison struct {
	// SameImage reports whether both analyses have the same fingerprint.
	SameImage bool `json:"same_image"`

	Previous AnalysisMetadata `json:"previous"`
	Current  AnalysisMetadata `json:"current"`

	// ScoreDelta is Current.Score - Previous.Score.
	ScoreDelta int `json:"score_delta"`

	// Direction is "worsened" when the current analysis is more suspicious.
	Direction string `json:"direction"`

	// VerdictChanged reports a flip between Safe and Suspicious.
	VerdictChanged bool `json:"verdict_changed"`

	// ToolChanges lists tools whose status or finding count differ,
	// in the current analysis' tool order followed by removed tools.
	ToolChanges []ToolChange `json:"tool_changes,omitempty"`

	// UnchangedTools is the number of tools with identical outcomes.
	UnchangedTools int `json:"unchanged_tools"`
}

// AnalysisMetadata summarizes one side of a Comparison.
type AnalysisMetadata struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	AnalyzedAt time.Time `json:"analyzed_at"`
	Verdict    string    `json:"verdict"`
	Score      int       `json:"score"`
	LSBLevel   string    `json:"lsb_level"`
	Degraded   bool      `json:"degraded"`
}

// ToolChange is the outcome of one tool in both analyses. An empty status
// means the tool did not run in that analysis.
type ToolChange struct {
	Tool             string `json:"tool"`
	PreviousStatus   string `json:"previous_status,omitempty"`
	CurrentStatus    string `json:"current_status,omitempty"`
	PreviousFindings int    `json:"previous_findings"`
	CurrentFindings  int    `json:"current_findings"`
}

func metadataOf(d *Document) AnalysisMetadata {
	return AnalysisMetadata{
		ID:         d.ID,
		Filename:   d.Filename,
		AnalyzedAt: d.AnalyzedAt,
		Verdict:    d.FinalReport.Verdict,
		Score:      d.FinalReport.SuspicionScore,
		LSBLevel:   d.LSBAnalysis.HeuristicSuspicion,
		Degraded:   d.FinalReport.Degraded,
	}
}

// Compare returns the changes from previous to current.
func Compare(previous, current *Document) *Comparison {
	c := &Comparison{
		SameImage: previous.Fingerprint != "" && previous.Fingerprint == current.Fingerprint,
		Previous:  metadataOf(previous),
		Current:   metadataOf(current),
	}
	c.ScoreDelta = c.Current.Score - c.Previous.Score
	c.VerdictChanged = c.Current.Verdict != c.Previous.Verdict
	switch {
	case c.ScoreDelta > 0:
		c.Direction = DirectionWorsened
	case c.ScoreDelta < 0:
		c.Direction = DirectionImproved
	default:
		c.Direction = DirectionUnchanged
	}

	currentOrder := current.OrderedToolIDs()
	ids := slices.Clone(currentOrder)
	for _, id := range previous.OrderedToolIDs() {
		if !slices.Contains(currentOrder, id) {
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		change := ToolChange{Tool: id}
		prev, inPrev := previous.ToolReports[id]
		cur, inCur := current.ToolReports[id]
		if inPrev {
			change.PreviousStatus = prev.Status
			change.PreviousFindings = prev.Findings()
		}
		if inCur {
			change.CurrentStatus = cur.Status
			change.CurrentFindings = cur.Findings()
		}
		if change.PreviousStatus == change.CurrentStatus && change.PreviousFindings == change.CurrentFindings {
			c.UnchangedTools++
			continue
		}
		c.ToolChanges = append(c.ToolChanges, change)
	}
	return c
}
