package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/deepvision/internal/scoring"
)

// ErrInvalidDocument is returned by ParseDocument and Validate when a
// document breaks the wire contract.
var ErrInvalidDocument = errors.New("invalid report document")

// NoFindingsNote marks a successful tool run that found nothing.
const NoFindingsNote = "No findings."

// Document is the response for one analyzed image.
type Document struct {
	ID              string                `json:"id"`
	Filename        string                `json:"filename"`
	Format          string                `json:"format"`
	Mode            string                `json:"mode"`
	Dimensions      [2]int                `json:"dimensions"`
	SizeBytes       int64                 `json:"size_bytes"`
	Fingerprint     string                `json:"sha3_256,omitempty"`
	Metadata        map[string]string     `json:"metadata"`
	LSBAnalysis     LSBAnalysis           `json:"lsb_analysis"`
	DeepvisionScore DeepvisionScore       `json:"deepvision_score"`
	ToolReports     map[string]ToolReport `json:"tool_reports"`
	// ToolOrder lists the tool_reports keys in registration order, since
	// JSON objects are unordered.
	ToolOrder   []string     `json:"tool_order"`
	FinalReport FinalSection `json:"final_report"`
	AnalyzedAt  time.Time    `json:"analyzed_at"`
	DurationMS  int64        `json:"duration_ms"`
}

// LSBAnalysis is the lsb_analysis section.
type LSBAnalysis struct {
	MeanLSBValue       float64            `json:"mean_lsb_value"`
	HeuristicSuspicion string             `json:"heuristic_suspicion"`
	Deviation          float64            `json:"deviation"`
	Entropy            float64            `json:"entropy"`
	ChannelMeans       model.ChannelMeans `json:"channel_means"`
	SampledPixels      int                `json:"sampled_pixels"`
	Stride             int                `json:"stride"`
	Error              string             `json:"error,omitempty"`
}

// DeepvisionScore is the UI-facing score. Score always equals
// final_report.suspicion_score.
type DeepvisionScore struct {
	Score        int    `json:"score"`
	Confidence   string `json:"confidence"`
	ModelVersion string `json:"model_version"`
}

// ToolReport is one entry of tool_reports.
type ToolReport struct {
	Status     string            `json:"status"`
	Output     []string          `json:"output,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Preview    []string          `json:"preview,omitempty"`
	Count      *int              `json:"count,omitempty"`
	Highlights []string          `json:"highlights,omitempty"`
	Planes     []model.PlaneRef  `json:"planes,omitempty"`
	Error      string            `json:"error,omitempty"`
	Note       string            `json:"note,omitempty"`
}

// FinalSection is the final_report section.
type FinalSection struct {
	Verdict        string   `json:"verdict"`
	SuspicionScore int      `json:"suspicion_score"`
	Summary        []string `json:"summary"`
	Degraded       bool     `json:"degraded"`
}

// ErrorDocument is the response when a request fails as a whole.
type ErrorDocument struct {
	Error string `json:"error"`
}

// NewErrorDocument returns the error response for err.
func NewErrorDocument(err error) ErrorDocument {
	return ErrorDocument{Error: err.Error()}
}

// Assemble builds the Document of a completed run.
func Assemble(run *model.AnalysisRun, final model.FinalReport) *Document {
	reports := make(map[string]ToolReport, len(run.ToolOrder)+1)
	order := make([]string, 0, len(run.ToolOrder)+1)
	for _, id := range run.ToolOrder {
		reports[id] = NewToolReport(run.Tools[id])
		order = append(order, id)
	}
	reports[model.BitPlanesKey] = NewToolReport(run.BitPlanes)
	order = append(order, model.BitPlanesKey)

	metadata := run.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	return &Document{
		ID:          run.ID,
		Filename:    run.Image.Filename,
		Format:      string(run.Image.Format),
		Mode:        run.Image.Mode,
		Dimensions:  [2]int{run.Image.Width, run.Image.Height},
		SizeBytes:   run.Image.SizeBytes,
		Fingerprint: run.Image.Fingerprint,
		Metadata:    metadata,
		LSBAnalysis: LSBAnalysis{
			MeanLSBValue:       run.LSB.Mean,
			HeuristicSuspicion: run.LSB.Level.String(),
			Deviation:          run.LSB.Deviation,
			Entropy:            run.LSB.Entropy,
			ChannelMeans:       run.LSB.Channels,
			SampledPixels:      run.LSB.SampledPixels,
			Stride:             run.LSB.Stride,
			Error:              run.LSB.Error,
		},
		DeepvisionScore: DeepvisionScore{
			Score:        final.SuspicionScore,
			Confidence:   final.Confidence,
			ModelVersion: scoring.ModelVersion,
		},
		ToolReports: reports,
		ToolOrder:   order,
		FinalReport: FinalSection{
			Verdict:        final.Verdict.String(),
			SuspicionScore: final.SuspicionScore,
			Summary:        final.Summary,
			Degraded:       final.Degraded,
		},
		AnalyzedAt: run.FinishedAt,
		DurationMS: run.Duration().Milliseconds(),
	}
}

// NewToolReport converts a ToolResult into its wire form.
func NewToolReport(r model.ToolResult) ToolReport {
	tr := ToolReport{Status: r.Status().String()}
	switch r.Status() {
	case model.StatusError:
		tr.Error = r.Message()
		return tr
	case model.StatusNotInstalled:
		return tr
	}

	switch r.Kind() {
	case model.PayloadLines:
		tr.Output = r.Lines()
	case model.PayloadData:
		tr.Data = r.Data()
	case model.PayloadPreview:
		count := r.Count()
		tr.Count = &count
		tr.Preview = r.Preview()
		tr.Highlights = r.Highlights()
	case model.PayloadPlanes:
		tr.Planes = r.Planes()
	}
	if r.IsEmpty() {
		tr.Note = NoFindingsNote
	}
	return tr
}

// Findings returns how many noteworthy items a tool report carries.
func (tr ToolReport) Findings() int {
	switch {
	case tr.Count != nil:
		return len(tr.Highlights)
	case tr.Planes != nil:
		return len(tr.Planes)
	case tr.Data != nil:
		return len(tr.Data)
	default:
		return len(tr.Output)
	}
}

// ParseDocument decodes and validates a Document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document against the wire contract.
func (d *Document) Validate() error {
	verdict, ok := model.ParseVerdict(d.FinalReport.Verdict)
	if !ok {
		return fmt.Errorf("%w: unknown verdict %q", ErrInvalidDocument, d.FinalReport.Verdict)
	}
	score := d.FinalReport.SuspicionScore
	if score < model.MinScore || score > model.MaxScore {
		return fmt.Errorf("%w: score %d out of range", ErrInvalidDocument, score)
	}
	if model.VerdictForScore(score) != verdict {
		return fmt.Errorf("%w: verdict %s contradicts score %d", ErrInvalidDocument, verdict, score)
	}
	if d.DeepvisionScore.Score != score {
		return fmt.Errorf("%w: deepvision_score %d differs from suspicion_score %d", ErrInvalidDocument, d.DeepvisionScore.Score, score)
	}
	if len(d.FinalReport.Summary) == 0 {
		return fmt.Errorf("%w: empty summary", ErrInvalidDocument)
	}
	if level, ok := model.ParseSuspicionLevel(d.LSBAnalysis.HeuristicSuspicion); !ok || level.String() != d.LSBAnalysis.HeuristicSuspicion {
		return fmt.Errorf("%w: unknown heuristic_suspicion %q", ErrInvalidDocument, d.LSBAnalysis.HeuristicSuspicion)
	}
	if d.LSBAnalysis.MeanLSBValue < 0 || d.LSBAnalysis.MeanLSBValue > 1 {
		return fmt.Errorf("%w: mean_lsb_value %v out of range", ErrInvalidDocument, d.LSBAnalysis.MeanLSBValue)
	}
	if _, ok := d.ToolReports[model.BitPlanesKey]; !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidDocument, model.BitPlanesKey)
	}
	for id, tr := range d.ToolReports {
		if _, ok := model.ParseToolStatus(tr.Status); !ok {
			return fmt.Errorf("%w: tool %s has unknown status %q", ErrInvalidDocument, id, tr.Status)
		}
	}
	return nil
}

// Verdict returns the parsed verdict.
func (d *Document) Verdict() model.Verdict {
	v, _ := model.ParseVerdict(d.FinalReport.Verdict)
	return v
}

// OrderedToolIDs returns the tool_reports keys in registration order,
// followed by any keys the order does not mention.
func (d *Document) OrderedToolIDs() []string {
	ids := make([]string, 0, len(d.ToolReports))
	seen := make(map[string]bool, len(d.ToolReports))
	for _, id := range d.ToolOrder {
		if _, ok := d.ToolReports[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range d.ToolReports {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sortStrings(rest)
	return append(ids, rest...)
}
