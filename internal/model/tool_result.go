package model

// ToolStatus is the lifecycle outcome of one analysis tool.
type ToolStatus int

const (
	// StatusSuccess means the tool ran and its output was normalized.
	// An empty payload means it found nothing of interest.
	StatusSuccess ToolStatus = iota
	// StatusError means the tool was present but failed, timed out, or
	// could not handle the input.
	StatusError
	// StatusNotInstalled means the tool's executable is absent from the host.
	StatusNotInstalled
)

// String returns the wire representation of the status.
func (s ToolStatus) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusError:
		return "Error"
	case StatusNotInstalled:
		return "Not Installed"
	default:
		return "Unknown"
	}
}

// ParseToolStatus converts a wire string back to a ToolStatus.
func ParseToolStatus(s string) (ToolStatus, bool) {
	switch s {
	case "Success":
		return StatusSuccess, true
	case "Error":
		return StatusError, true
	case "Not Installed":
		return StatusNotInstalled, true
	default:
		return StatusError, false
	}
}

// PayloadKind discriminates the payload carried by a successful ToolResult.
type PayloadKind int

const (
	// PayloadNone is used by Error and NotInstalled results.
	PayloadNone PayloadKind = iota
	// PayloadLines carries normalized output lines, one finding per line.
	PayloadLines
	// PayloadData carries key/value pairs such as metadata tags.
	PayloadData
	// PayloadPreview carries a total count plus a bounded preview.
	PayloadPreview
	// PayloadPlanes carries references to rendered bit-plane images.
	PayloadPlanes
)

// PlaneRef references one rendered bit plane.
type PlaneRef struct {
	// Name is the human label, e.g. "Red Channel - Bit 0 (LSB)".
	Name string `json:"name"`
	// Path is the URL path under which the rendered plane is served.
	Path string `json:"path"`
}

// ToolResult is the normalized outcome of one tool.
//
// Design decision: ToolResult is a closed tagged variant. Only the
// constructors below create values, so a result can never be both an
// error and carry a payload, and the scorer can switch exhaustively on
// Kind instead of guessing from raw text.
type ToolResult struct {
	status  ToolStatus
	kind    PayloadKind
	lines   []string
	data    map[string]string
	preview []string
	count   int
	marks   []string
	planes  []PlaneRef
	message string
	// skipped marks an Error for a tool that does not handle the format.
	skipped bool
}

// LinesResult returns a Success carrying normalized finding lines.
func LinesResult(lines []string) ToolResult {
	return ToolResult{status: StatusSuccess, kind: PayloadLines, lines: lines}
}

// DataResult returns a Success carrying key/value pairs.
func DataResult(data map[string]string) ToolResult {
	return ToolResult{status: StatusSuccess, kind: PayloadData, data: data}
}

// PreviewResult returns a Success carrying a count, a bounded preview, and
// the subset of items the tool flagged as noteworthy.
func PreviewResult(count int, preview, highlights []string) ToolResult {
	return ToolResult{status: StatusSuccess, kind: PayloadPreview, count: count, preview: preview, marks: highlights}
}

// PlanesResult returns a Success carrying rendered bit-plane references.
func PlanesResult(planes []PlaneRef) ToolResult {
	return ToolResult{status: StatusSuccess, kind: PayloadPlanes, planes: planes}
}

// ErrorResult returns an Error with the given reason.
func ErrorResult(message string) ToolResult {
	if message == "" {
		message = "unknown error"
	}
	return ToolResult{status: StatusError, message: message}
}

// UnsupportedResult returns an Error for a tool that does not apply to the
// image format. It is reported like any Error but does not count as
// missing coverage.
func UnsupportedResult(message string) ToolResult {
	r := ErrorResult(message)
	r.skipped = true
	return r
}

// NotInstalledResult returns a NotInstalled result.
func NotInstalledResult() ToolResult {
	return ToolResult{status: StatusNotInstalled}
}

// Status returns the lifecycle outcome.
func (r ToolResult) Status() ToolStatus { return r.status }

// Kind returns the payload discriminator.
func (r ToolResult) Kind() PayloadKind { return r.kind }

// Lines returns the PayloadLines payload.
func (r ToolResult) Lines() []string { return r.lines }

// Data returns the PayloadData payload.
func (r ToolResult) Data() map[string]string { return r.data }

// Preview returns the bounded preview of a PayloadPreview result.
func (r ToolResult) Preview() []string { return r.preview }

// Count returns the total item count of a PayloadPreview result.
func (r ToolResult) Count() int { return r.count }

// Highlights returns the flagged items of a PayloadPreview result.
func (r ToolResult) Highlights() []string { return r.marks }

// Planes returns the PayloadPlanes payload.
func (r ToolResult) Planes() []PlaneRef { return r.planes }

// Message returns the failure reason of an Error result.
func (r ToolResult) Message() string { return r.message }

// Applicable reports whether the tool handles the image format at all.
func (r ToolResult) Applicable() bool { return !r.skipped }

// Succeeded reports whether the status is StatusSuccess.
func (r ToolResult) Succeeded() bool { return r.status == StatusSuccess }

// IsEmpty reports whether a Success carries nothing of interest.
// Non-success results are always empty.
func (r ToolResult) IsEmpty() bool {
	return r.FindingCount() == 0
}

// FindingCount returns how many noteworthy items a Success carries.
// For previews only the highlights count, since the bulk of a preview is
// context for human review rather than evidence.
func (r ToolResult) FindingCount() int {
	if r.status != StatusSuccess {
		return 0
	}
	switch r.kind {
	case PayloadLines:
		return len(r.lines)
	case PayloadData:
		return len(r.data)
	case PayloadPreview:
		return len(r.marks)
	case PayloadPlanes:
		return len(r.planes)
	default:
		return 0
	}
}
