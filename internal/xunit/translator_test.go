package xunit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rppreproc/internal/launch"
	"rppreproc/internal/rp"
)

// recorder is a Reporter that records every call as a line of text.
type recorder struct {
	calls  []string
	items  map[string]rp.FinishTestItemRQ
	names  map[string]string
	next   int
	failOn string
}

func newRecorder() *recorder {
	return &recorder{items: map[string]rp.FinishTestItemRQ{}, names: map[string]string{}}
}

func (r *recorder) id(prefix string) string {
	r.next++
	return fmt.Sprintf("%s-%d", prefix, r.next)
}

func (r *recorder) StartLaunch(_ context.Context, rq rp.StartLaunchRQ) (string, error) {
	r.calls = append(r.calls, "start launch "+rq.Name)
	return "L", nil
}

func (r *recorder) FinishLaunch(_ context.Context, id string, _ rp.FinishExecutionRQ) error {
	r.calls = append(r.calls, "finish launch "+id)
	return nil
}

func (r *recorder) StartItem(_ context.Context, parentID string, rq rp.StartTestItemRQ) (string, error) {
	if r.failOn != "" && rq.Name == r.failOn {
		return "", errors.New("server down")
	}
	id := r.id(strings.ToLower(string(rq.Type)))
	r.names[id] = rq.Name
	r.calls = append(r.calls, fmt.Sprintf("start %s %q parent=%q", rq.Type, rq.Name, parentID))
	return id, nil
}

func (r *recorder) FinishItem(_ context.Context, id string, rq rp.FinishTestItemRQ) error {
	r.items[id] = rq
	r.calls = append(r.calls, fmt.Sprintf("finish %q %s", r.names[id], rq.Status))
	return nil
}

func (r *recorder) Log(_ context.Context, rq rp.SaveLogRQ) error {
	r.calls = append(r.calls, fmt.Sprintf("log %s %q on %q", rq.Level, rq.Message, r.names[rq.ItemUUID]))
	return nil
}

func (r *recorder) Attach(_ context.Context, rq rp.SaveLogRQ, path string) error {
	r.calls = append(r.calls, fmt.Sprintf("attach %s on %q", filepath.Base(path), r.names[rq.ItemUUID]))
	return nil
}

func TestTranslate_SinglePassingSuite(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<testsuite name="S1" failures="0" errors="0"><testcase classname="C" name="t1" time="0.1"/></testsuite>`))
	if err != nil {
		t.Fatal(err)
	}
	rec := newRecorder()
	reg := &rp.Registry{}

	id, err := NewTranslator(rec, reg).Translate(context.Background(), doc, "results")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if id != "L" {
		t.Errorf("launch id = %q", id)
	}

	want := []string{
		"start launch " + launch.DefaultName,
		`start SUITE "S1" parent=""`,
		`start STEP "t1" parent="suite-1"`,
		`finish "t1" PASSED`,
		`finish "S1" PASSED`,
		"finish launch L",
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"L"}, reg.IDs()); diff != "" {
		t.Errorf("registry mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslate_MixedOutcomesWithAttachments(t *testing.T) {
	payload := t.TempDir()
	writeFile(t, filepath.Join(payload, "attachments", "multi", "api.Users.delete", "trace.txt"), "stack")
	writeFile(t, filepath.Join(payload, "attachments", "api.Users.delete", "shots", "screen.png"), "png")
	writeFile(t, filepath.Join(payload, "attachments", "api.Users.create", "ignored.txt"), "passed cases never attach")

	doc, err := ParseFile(testdataPath("multi.xml"))
	if err != nil {
		t.Fatal(err)
	}
	rec := newRecorder()
	tr := NewTranslator(rec, &rp.Registry{},
		WithPayloadDir(payload),
		WithLaunchOptions(launch.Options{Name: "nightly"}),
	)
	if _, err := tr.Translate(context.Background(), doc, "multi"); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := []string{
		"start launch nightly",
		`start SUITE "api" parent=""`,
		`start STEP "create" parent="suite-1"`,
		`log INFO "created user 42" on "create"`,
		`finish "create" PASSED`,
		`start STEP "delete" parent="suite-1"`,
		`log ERROR "expected 204\nsecond failure body" on "delete"`,
		`attach trace.txt on "delete"`,
		`attach screen.png on "delete"`,
		`finish "delete" FAILED`,
		`start STEP "update" parent="suite-1"`,
		`log DEBUG "not implemented" on "update"`,
		`finish "update" SKIPPED`,
		`finish "api" FAILED`,
		`start SUITE "7" parent=""`,
		`start STEP "conn" parent="suite-5"`,
		`log ERROR "timeout" on "conn"`,
		`finish "conn" FAILED`,
		`finish "7" FAILED`,
		"finish launch L",
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	skipped := rec.items["step-4"]
	if skipped.Issue == nil || skipped.Issue.IssueType != rp.IssueNotIssue {
		t.Errorf("skipped case issue = %+v, want NOT_ISSUE", skipped.Issue)
	}
	if rec.items["step-3"].Issue != nil {
		t.Error("failed case must not carry an issue")
	}
}

func TestTranslate_CaseDescriptionAndTruncation(t *testing.T) {
	long := strings.Repeat("x", 300)
	doc := &Document{Suites: []Suite{{NameAttr: strPtr("s"), Cases: []Case{{NameAttr: &long, Time: "2.5"}}}}}

	var got rp.StartTestItemRQ
	rec := &captureReporter{recorder: newRecorder(), onStep: func(rq rp.StartTestItemRQ) { got = rq }}
	if _, err := NewTranslator(rec, nil).Translate(context.Background(), doc, "x"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(got.Name) != 255 {
		t.Errorf("name length = %d, want 255", len(got.Name))
	}
	if got.Description != long+" time: 2.5" {
		t.Errorf("description = %q", got.Description)
	}
}

type captureReporter struct {
	*recorder
	onStep func(rp.StartTestItemRQ)
}

func (c *captureReporter) StartItem(ctx context.Context, parentID string, rq rp.StartTestItemRQ) (string, error) {
	if rq.Type == rp.ItemStep {
		c.onStep(rq)
	}
	return c.recorder.StartItem(ctx, parentID, rq)
}

func TestTranslate_MergeModeNamesLaunchPart(t *testing.T) {
	doc := &Document{Suites: []Suite{{}}}
	rec := newRecorder()
	tr := NewTranslator(rec, nil, WithLaunchOptions(launch.Options{Name: "nightly", MergeMode: true, RunID: "run42"}))
	if _, err := tr.Translate(context.Background(), doc, "x"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if rec.calls[0] != "start launch run42 (part)" {
		t.Errorf("first call = %q", rec.calls[0])
	}
	if rec.calls[1] != `start SUITE "NULL" parent=""` {
		t.Errorf("suite call = %q", rec.calls[1])
	}
}

func TestTranslate_RemoteErrorAborts(t *testing.T) {
	doc := &Document{Suites: []Suite{{NameAttr: strPtr("s"), Cases: []Case{{NameAttr: strPtr("boom")}, {NameAttr: strPtr("never")}}}}}
	rec := newRecorder()
	rec.failOn = "boom"
	reg := &rp.Registry{}

	_, err := NewTranslator(rec, reg).Translate(context.Background(), doc, "x")
	if err == nil || !strings.Contains(err.Error(), "server down") {
		t.Fatalf("expected remote error, got %v", err)
	}
	for _, c := range rec.calls {
		if strings.Contains(c, "never") {
			t.Errorf("processing must stop after a remote error, saw %q", c)
		}
	}
	if reg.Len() != 0 {
		t.Error("an unfinished launch must not be registered")
	}
}

func TestFindAttachments_MissingDirs(t *testing.T) {
	files, err := FindAttachments(t.TempDir(), "results", "C.t1")
	if err != nil {
		t.Fatalf("FindAttachments: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
