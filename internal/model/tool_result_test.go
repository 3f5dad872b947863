package model

import "testing"

// TestToolStatusString tests the wire names of ToolStatus.
func TestToolStatusString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status   ToolStatus
		expected string
	}{
		{StatusSuccess, "Success"},
		{StatusError, "Error"},
		{StatusNotInstalled, "Not Installed"},
		{ToolStatus(42), "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := tc.status.String(); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
			if tc.status > StatusNotInstalled {
				return
			}
			parsed, ok := ParseToolStatus(tc.expected)
			if !ok || parsed != tc.status {
				t.Errorf("ParseToolStatus(%q) = %v, %v", tc.expected, parsed, ok)
			}
		})
	}
}

// TestToolResultFindingCount tests that only successful payloads count as findings.
func TestToolResultFindingCount(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		result ToolResult
		count  int
		empty  bool
	}{
		{"empty lines", LinesResult(nil), 0, true},
		{"lines", LinesResult([]string{"a", "b"}), 2, false},
		{"data", DataResult(map[string]string{"k": "v"}), 1, false},
		{"preview without highlights", PreviewResult(120, []string{"x"}, nil), 0, true},
		{"preview with highlights", PreviewResult(120, []string{"x"}, []string{"PK"}), 1, false},
		{"planes", PlanesResult([]PlaneRef{{Name: "n", Path: "/p"}}), 1, false},
		{"error", ErrorResult("boom"), 0, true},
		{"not installed", NotInstalledResult(), 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.result.FindingCount(); got != tc.count {
				t.Errorf("FindingCount() = %d, expected %d", got, tc.count)
			}
			if got := tc.result.IsEmpty(); got != tc.empty {
				t.Errorf("IsEmpty() = %v, expected %v", got, tc.empty)
			}
		})
	}
}

// TestErrorResultDefaultsMessage tests that an error never has an empty reason.
func TestErrorResultDefaultsMessage(t *testing.T) {
	t.Parallel()

	r := ErrorResult("")
	if r.Message() == "" {
		t.Error("expected a non-empty message")
	}
	if r.Kind() != PayloadNone {
		t.Errorf("Kind() = %v, expected PayloadNone", r.Kind())
	}
}

// TestAnalysisRunMissing tests that Missing reports unfilled adapters in order.
func TestAnalysisRunMissing(t *testing.T) {
	t.Parallel()

	run := NewAnalysisRun("id", ImageInfo{}, []string{"a", "b", "c"})
	run.Tools["b"] = NotInstalledResult()

	missing := run.Missing()
	if len(missing) != 2 || missing[0] != "a" || missing[1] != "c" {
		t.Errorf("Missing() = %v, expected [a c]", missing)
	}
	if got := run.CountByStatus(StatusNotInstalled); got != 1 {
		t.Errorf("CountByStatus() = %d, expected 1", got)
	}
}
