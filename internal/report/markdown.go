package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/deepvision/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxDetailLines caps the tool output lines placed inside a details block.
const maxDetailLines = 50

// MarkdownWriter outputs documents in Markdown format.
// This format is designed for case notes and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the document in Markdown format.
func (w *MarkdownWriter) Write(doc *Document) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, doc)
	w.writeVerdict(md, doc)
	w.writeLSB(md, doc)
	w.writeTools(md, doc)
	w.writeBitPlanes(md, doc)
	w.writeMetadata(md, doc)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with image information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, doc *Document) {
	md.H1("DeepVision Analysis Report")
	md.PlainText("")

	rows := [][]string{
		{"File", "`" + doc.Filename + "`"},
		{"Format", doc.Format},
		{"Mode", doc.Mode},
		{"Dimensions", fmt.Sprintf("%d x %d", doc.Dimensions[0], doc.Dimensions[1])},
		{"Size", strconv.FormatInt(doc.SizeBytes, 10) + " bytes"},
	}
	if doc.Fingerprint != "" {
		rows = append(rows, []string{"SHA3-256", "`" + doc.Fingerprint + "`"})
	}
	if !doc.AnalyzedAt.IsZero() {
		rows = append(rows, []string{"Analyzed", doc.AnalyzedAt.Format("2006-01-02 15:04:05 MST")})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeVerdict writes the verdict alert and the scoring summary.
func (w *MarkdownWriter) writeVerdict(md *markdown.Markdown, doc *Document) {
	md.H2("Verdict")
	md.PlainText("")

	final := doc.FinalReport
	if doc.Verdict() == model.VerdictSuspicious {
		md.Cautionf("**%s** with a suspicion score of %d/100.", final.Verdict, final.SuspicionScore)
	} else {
		md.Tip(fmt.Sprintf("**%s** with a suspicion score of %d/100.", final.Verdict, final.SuspicionScore))
	}
	md.PlainText("")

	if final.Degraded {
		md.Warningf("Degraded analysis: confidence is %s.", doc.DeepvisionScore.Confidence)
		md.PlainText("")
	}

	md.BulletList(final.Summary...)
	md.PlainText("")
}

// writeLSB writes the LSB statistics table.
func (w *MarkdownWriter) writeLSB(md *markdown.Markdown, doc *Document) {
	lsb := doc.LSBAnalysis
	md.H2("LSB Analysis")
	md.PlainText("")
	if lsb.Error != "" {
		md.Warning("LSB analysis did not complete: " + lsb.Error)
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Mean LSB value", fmt.Sprintf("%.4f", lsb.MeanLSBValue)},
			{"Heuristic suspicion", lsb.HeuristicSuspicion},
			{"Deviation from 0.5", fmt.Sprintf("%.4f", lsb.Deviation)},
			{"Entropy (bits)", fmt.Sprintf("%.4f", lsb.Entropy)},
			{"Red / Green / Blue", fmt.Sprintf("%.4f / %.4f / %.4f",
				lsb.ChannelMeans.Red, lsb.ChannelMeans.Green, lsb.ChannelMeans.Blue)},
			{"Sampled pixels", fmt.Sprintf("%d (stride %d)", lsb.SampledPixels, lsb.Stride)},
		},
	})
	md.PlainText("")
}

// writeTools writes the tool status table, chart, and per-tool output.
func (w *MarkdownWriter) writeTools(md *markdown.Markdown, doc *Document) {
	md.H2("Tool Reports")
	md.PlainText("")

	ids := doc.OrderedToolIDs()
	rows := make([][]string, 0, len(ids))
	statusCounts := make(map[string]int)
	for _, id := range ids {
		if id == model.BitPlanesKey {
			continue
		}
		tr := doc.ToolReports[id]
		statusCounts[tr.Status]++
		rows = append(rows, []string{"`" + id + "`", statusIcon(tr.Status) + " " + tr.Status, toolDetail(tr)})
	}
	if len(rows) == 0 {
		md.PlainText("No tools were registered.")
		md.PlainText("")
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Tool", "Status", "Details"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, statusCounts)

	for _, id := range ids {
		if id == model.BitPlanesKey {
			continue
		}
		if body := toolBody(doc.ToolReports[id]); body != "" {
			md.Details(id, body)
		}
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart for tool status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[string]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Tool Status Distribution"),
		piechart.WithShowData(true),
	)
	for _, status := range []model.ToolStatus{model.StatusSuccess, model.StatusError, model.StatusNotInstalled} {
		if n := counts[status.String()]; n > 0 {
			chart.LabelAndIntValue(status.String(), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeBitPlanes links the rendered bit-plane images.
func (w *MarkdownWriter) writeBitPlanes(md *markdown.Markdown, doc *Document) {
	md.H2("Bit Planes")
	md.PlainText("")

	tr, ok := doc.ToolReports[model.BitPlanesKey]
	switch {
	case !ok:
		md.PlainText("Bit planes were not produced.")
	case tr.Error != "":
		md.Warningf("Bit-plane slicing failed: %s", tr.Error)
	case len(tr.Planes) == 0:
		md.PlainText(NoFindingsNote)
	default:
		links := make([]string, 0, len(tr.Planes))
		for _, p := range tr.Planes {
			links = append(links, fmt.Sprintf("[%s](%s)", p.Name, p.Path))
		}
		md.BulletList(links...)
	}
	md.PlainText("")
}

// writeMetadata writes the metadata table.
func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, doc *Document) {
	md.H2("Metadata")
	md.PlainText("")
	if len(doc.Metadata) == 0 {
		md.Note("The image carries no embedded metadata.")
		md.PlainText("")
		return
	}

	keys := sortedKeys(doc.Metadata)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{"`" + k + "`", escapeCell(truncateString(doc.Metadata[k], 120))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Key", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [DeepVision](https://github.com/nao1215/deepvision)*")
}

func statusIcon(status string) string {
	switch status {
	case model.StatusSuccess.String():
		return "✅"
	case model.StatusError.String():
		return "❌"
	default:
		return "⚪"
	}
}

// toolDetail is the one-line summary shown in the tool table.
func toolDetail(tr ToolReport) string {
	switch {
	case tr.Error != "":
		return escapeCell(truncateString(tr.Error, 80))
	case tr.Status == model.StatusNotInstalled.String():
		return "-"
	case tr.Note != "":
		return tr.Note
	case tr.Count != nil:
		return fmt.Sprintf("%d strings, %d highlighted", *tr.Count, len(tr.Highlights))
	case tr.Data != nil:
		return fmt.Sprintf("%d fields", len(tr.Data))
	default:
		return fmt.Sprintf("%d findings", len(tr.Output))
	}
}

// toolBody renders a tool's payload for a details block.
func toolBody(tr ToolReport) string {
	var lines []string
	switch {
	case len(tr.Highlights) > 0:
		lines = tr.Highlights
	case len(tr.Output) > 0:
		lines = tr.Output
	case len(tr.Data) > 0:
		for _, k := range sortedKeys(tr.Data) {
			lines = append(lines, k+": "+tr.Data[k])
		}
	default:
		return ""
	}
	if len(lines) > maxDetailLines {
		extra := len(lines) - maxDetailLines
		lines = append(lines[:maxDetailLines:maxDetailLines], fmt.Sprintf("... and %d more", extra))
	}
	return strings.Join(lines, "\n")
}

// escapeCell keeps a value from breaking the table layout.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
