package format_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"rppreproc/internal/dashboard"
	"rppreproc/internal/format"
	"rppreproc/internal/preproc"
)

func TestSummaryTable_ASCIIAndMarkdownDiffer(t *testing.T) {
	s := preproc.Summarize(&preproc.Result{Launches: []string{"launch-1", "launch-4"}}, time.Unix(0, 0), time.Unix(3, 0))
	ascii, err := format.SummaryTable(format.ASCII, s)
	if err != nil {
		t.Fatalf("SummaryTable: %v", err)
	}
	md, err := format.SummaryTable(format.Markdown, s)
	if err != nil {
		t.Fatalf("SummaryTable: %v", err)
	}

	if !strings.Contains(ascii, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", ascii)
	}
	if !strings.Contains(md, "| launch") || !strings.Contains(md, "---") {
		t.Errorf("expected markdown rows and separator:\n%s", md)
	}
	for _, out := range []string{ascii, md} {
		if !strings.Contains(out, "launch-4") || !strings.Contains(out, "3s") {
			t.Errorf("expected launches and elapsed footer in output:\n%s", out)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]format.Mode{
		"table":    format.ASCII,
		"ascii":    format.ASCII,
		"markdown": format.Markdown,
		"md":       format.Markdown,
	} {
		got, err := format.ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := format.ParseMode("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSummaryTable_Result(t *testing.T) {
	res := &preproc.Result{
		Launches:      []string{"launch-1", "launch-4"},
		MergedLaunch:  "launch-7",
		AutoDashboard: &dashboard.Result{ID: "12", URL: "http://rp/ui/#qe/dashboard/12"},
		FailedFiles:   []preproc.FailedFile{{File: "results/bad.xml", Error: "parse xunit: EOF"}},
	}
	start := time.Unix(1000, 0)
	out, err := format.SummaryTable(format.Markdown, preproc.Summarize(res, start, start.Add(75*time.Second)))
	if err != nil {
		t.Fatalf("SummaryTable: %v", err)
	}
	for _, want := range []string{
		"launch-1", "launch-4", "merged launch", "launch-7",
		"dashboard/12", "results/bad.xml", "parse xunit: EOF", "1m 15s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSummaryTable_ServiceReply(t *testing.T) {
	ok := json.RawMessage(`{"launches":["launch-9"]}`)
	out, err := format.SummaryTable(format.ASCII, preproc.Summary{ReportPortal: ok})
	if err != nil {
		t.Fatalf("SummaryTable: %v", err)
	}
	if !strings.Contains(out, "launch-9") {
		t.Errorf("expected 'launch-9' in output:\n%s", out)
	}

	failed := json.RawMessage(`{"message":"An unhandled exception occurred.","error":"boom"}`)
	out, err = format.SummaryTable(format.ASCII, preproc.Summary{ReportPortal: failed})
	if err != nil {
		t.Fatalf("SummaryTable: %v", err)
	}
	if !strings.Contains(out, "An unhandled exception occurred.: boom") {
		t.Errorf("expected service error in output:\n%s", out)
	}

	if _, err := format.SummaryTable(format.ASCII, preproc.Summary{ReportPortal: json.RawMessage(`[1]`)}); err == nil {
		t.Error("expected error for a non-object reply")
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{60 * time.Second, "1m 0s"},
		{135 * time.Second, "2m 15s"},
	}
	for _, tc := range tests {
		if got := format.FmtDuration(tc.in); got != tc.want {
			t.Errorf("FmtDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
	}
	for _, tc := range tests {
		if got := format.Truncate(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
