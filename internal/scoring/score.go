package scoring

import (
	"fmt"
	"sort"

	"github.com/nao1215/deepvision/internal/model"
)

// NoAnomalies is the summary of a run where no signal fired.
const NoAnomalies = "No significant anomalies detected."

// ModelVersion identifies the scoring heuristic in reports.
const ModelVersion = "deepvision-heuristic-1"

// Score synthesizes the final report of run under policy p.
func Score(run *model.AnalysisRun, p Policy) model.FinalReport {
	total := 0
	var summary []string
	fire := func(points int, line string) {
		total += points
		summary = append(summary, line)
	}

	// metadata
	if n := run.TrailingBytes; n > 0 {
		fire(p.TrailingDataPoints, fmt.Sprintf("%s after the end-of-image marker", plural(n, "byte", "bytes")))
	}
	if p.OversizedMetadataBytes > 0 {
		var oversized []string
		for k, v := range run.Metadata {
			if len(v) > p.OversizedMetadataBytes && k != "xmp" {
				oversized = append(oversized, k)
			}
		}
		if len(oversized) > 0 {
			sort.Strings(oversized)
			fire(p.OversizedMetadataPoints, fmt.Sprintf("Oversized metadata %s: %q", plural(len(oversized), "field", "fields"), oversized))
		}
	}

	// LSB
	if run.LSB.Error == "" && run.LSB.Level != model.SuspicionLow {
		fire(p.LSBPoints[run.LSB.Level], fmt.Sprintf("LSB distribution deviates from natural images (mean %.3f, %s suspicion)", run.LSB.Mean, run.LSB.Level))
	}

	// tools, in registration order
	for _, id := range run.ToolOrder {
		res, ok := run.Tools[id]
		if !ok || !res.Succeeded() {
			continue
		}
		rule, ok := p.Rules[id]
		if !ok {
			continue
		}
		var n int
		if rule.Count != nil {
			n = rule.Count(res)
		} else {
			n = res.FindingCount()
		}
		if n > 0 {
			fire(rule.Points, rule.Describe(n))
		}
	}

	if len(summary) == 0 {
		summary = append(summary, NoAnomalies)
	}
	if run.LSB.Error != "" {
		summary = append(summary, "LSB analysis did not complete: "+run.LSB.Error)
	}

	registered := len(run.ToolOrder)
	succeeded := run.CountByStatus(model.StatusSuccess)
	degraded := registered > 0 && succeeded*2 < registered
	if degraded {
		summary = append(summary, fmt.Sprintf("Degraded analysis: %d of %d tools were unavailable or failed", registered-succeeded, registered))
	}

	score := model.ClampScore(total)
	return model.FinalReport{
		Verdict:        model.VerdictForScore(score),
		SuspicionScore: score,
		Summary:        summary,
		Degraded:       degraded,
		Confidence:     confidence(succeeded, run.CountApplicable()),
	}
}

// confidence rates the share of applicable tools that completed
// successfully.
func confidence(succeeded, applicable int) string {
	if applicable == 0 {
		return "Low"
	}
	switch ratio := float64(succeeded) / float64(applicable); {
	case ratio >= 0.8:
		return "High"
	case ratio >= 0.5:
		return "Medium"
	default:
		return "Low"
	}
}
