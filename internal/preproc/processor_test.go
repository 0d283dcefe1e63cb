package preproc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"rppreproc/internal/config"
	"rppreproc/internal/rp"
	"rppreproc/internal/rp/rptest"
)

func testdataPath(name string) string {
	_, f, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(f), "testdata", name)
}

func settingsFor(srv *rptest.Server, payload string) config.Settings {
	return config.Settings{
		PayloadDir: testdataPath(payload),
		ReportPortal: config.ReportPortal{
			HostURL:  srv.URL,
			APIToken: srv.Token,
			Project:  srv.Project,
		},
	}
}

func newSession(t *testing.T, srv *rptest.Server) *rp.Session {
	t.Helper()
	return rp.NewSession(srv.NewClient(t), srv.Project, rp.WithRunID("run1"))
}

func TestProcess_SingleFile(t *testing.T) {
	srv := rptest.New(t, "qe")
	res, err := NewProcessor(settingsFor(srv, "one"), newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	launches := srv.Launches()
	if len(launches) != 1 || !launches[0].Finished {
		t.Fatalf("launches = %+v", launches)
	}
	out, _ := json.Marshal(res)
	if string(out) != `{"launches":["`+launches[0].ID+`"]}` {
		t.Errorf("result JSON = %s", out)
	}

	items := srv.Items()
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	suite, tc := items[0], items[1]
	if suite.Type != rp.ItemSuite || suite.Name != "S1" || suite.Status != rp.StatusPassed || suite.ParentID != "" {
		t.Errorf("suite item = %+v", suite)
	}
	if tc.Type != rp.ItemStep || tc.Name != "t1" || tc.Status != rp.StatusPassed || tc.ParentID != suite.ID {
		t.Errorf("case item = %+v", tc)
	}
	if tc.Description != "t1 time: 0.1" {
		t.Errorf("case description = %q", tc.Description)
	}
}

func TestProcess_TwoFilesMerge(t *testing.T) {
	srv := rptest.New(t, "qe")
	s := settingsFor(srv, "two")
	s.MergeLaunches = true
	s.ReportPortal.Launch.Name = "nightly"

	res, err := NewProcessor(s, newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	launches := srv.Launches()
	if len(launches) != 2 {
		t.Fatalf("want 2 launches, got %+v", launches)
	}
	for _, l := range launches {
		if l.Name != "run1 (part)" {
			t.Errorf("merge-mode launch name = %q", l.Name)
		}
	}
	ids := []string{launches[0].ID, launches[1].ID}
	if diff := cmp.Diff(ids, res.Launches); diff != "" {
		t.Errorf("launches mismatch (-want +got):\n%s", diff)
	}
	if res.MergedLaunch == "" {
		t.Error("expected merged_launch")
	}

	merges := srv.Merges()
	if len(merges) != 1 {
		t.Fatalf("merges = %+v", merges)
	}
	want := rp.MergeLaunchesRQ{
		Description:             DefaultMergeDescription,
		ExtendSuitesDescription: true,
		Launches:                ids,
		MergeType:               rp.MergeDeep,
		Mode:                    "DEFAULT",
		Name:                    "nightly",
	}
	if diff := cmp.Diff(want, merges[0]); diff != "" {
		t.Errorf("merge request mismatch (-want +got):\n%s", diff)
	}
}

func TestProcess_SingleFileSkipsMerge(t *testing.T) {
	srv := rptest.New(t, "qe")
	s := settingsFor(srv, "one")
	s.MergeLaunches = true

	res, err := NewProcessor(s, newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n := srv.Count(http.MethodPost, "launch/merge"); n != 0 {
		t.Errorf("merge called %d times for a single file", n)
	}
	out, _ := json.Marshal(res)
	var keys map[string]any
	json.Unmarshal(out, &keys)
	if _, ok := keys["merged_launch"]; ok {
		t.Errorf("merged_launch must be absent: %s", out)
	}
}

func TestProcess_UnparseableMergeReply(t *testing.T) {
	srv := rptest.New(t, "qe")
	srv.SetMergeReply("<html>proxy error</html>")
	s := settingsFor(srv, "two")
	s.MergeLaunches = true

	res, err := NewProcessor(s, newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.MergedLaunch != "" {
		t.Errorf("merged_launch = %q, want empty", res.MergedLaunch)
	}
	if len(res.Launches) != 2 {
		t.Errorf("launches = %v", res.Launches)
	}
}

func TestProcess_MalformedFileIsSkipped(t *testing.T) {
	srv := rptest.New(t, "qe")
	res, err := NewProcessor(settingsFor(srv, "mixed"), newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(res.FailedFiles) != 1 || filepath.Base(res.FailedFiles[0].File) != "broken.xml" {
		t.Errorf("failed files = %+v", res.FailedFiles)
	}
	if len(srv.Launches()) != 1 || len(res.Launches) != 1 {
		t.Errorf("the broken file must not open a launch: %+v", srv.Launches())
	}

	var attached []string
	for _, l := range srv.Logs() {
		if l.File != "" {
			attached = append(attached, l.File)
		}
	}
	if diff := cmp.Diff([]string{"output.log"}, attached); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}
}

func TestProcess_SimpleXML(t *testing.T) {
	srv := rptest.New(t, "qe")
	s := settingsFor(srv, "two")
	s.SimpleXML = true

	res, err := NewProcessor(s, newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	imports := srv.Imports()
	if len(imports) != 2 {
		t.Fatalf("imports = %+v", imports)
	}
	if diff := cmp.Diff([]string{imports[0].LaunchID, imports[1].LaunchID}, res.Launches); diff != "" {
		t.Errorf("launches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.xml"}, imports[0].Entries); diff != "" {
		t.Errorf("zip entries mismatch (-want +got):\n%s", diff)
	}
	if len(srv.Items()) != 0 {
		t.Error("simple import must not create items")
	}
}

func TestProcess_SimpleXMLUnparseableReply(t *testing.T) {
	srv := rptest.New(t, "qe")
	srv.SetImportReply(`<html>proxy error</html>`)
	s := settingsFor(srv, "one")
	s.SimpleXML = true

	res, err := NewProcessor(s, newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("a parse error must not end the run: %v", err)
	}
	if len(res.Launches) != 0 || len(res.FailedFiles) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestProcess_AutoDashboard(t *testing.T) {
	srv := rptest.New(t, "qe")
	s := settingsFor(srv, "one")
	s.AutoDashboard = true
	s.ReportPortal.Launch.Name = "nightly"

	res, err := NewProcessor(s, newSession(t, srv)).Process(context.Background())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.AutoDashboard == nil || len(res.AutoDashboard.Widgets) != 2 {
		t.Fatalf("auto_dashboard = %+v", res.AutoDashboard)
	}
	if d := srv.Dashboards(); len(d) != 1 || d[0].Name != "nightly" {
		t.Errorf("dashboards = %+v", d)
	}
}

func TestProcess_RemoteErrorAborts(t *testing.T) {
	srv := rptest.New(t, "qe")
	client, _ := rp.New(srv.URL, "bad-token", rp.WithHTTPClient(srv.Client()))
	_, err := NewProcessor(settingsFor(srv, "one"), rp.NewSession(client, "qe")).Process(context.Background())
	if !rp.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestProcess_ConfigErrors(t *testing.T) {
	srv := rptest.New(t, "qe")
	for name, dir := range map[string]string{"no payload dir": "", "no results dir": t.TempDir()} {
		t.Run(name, func(t *testing.T) {
			s := settingsFor(srv, "one")
			s.PayloadDir = dir
			_, err := NewProcessor(s, newSession(t, srv)).Process(context.Background())
			if !errors.Is(err, config.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
	if calls := srv.Calls(); len(calls) != 0 {
		t.Errorf("no remote call may happen on a config error, got %+v", calls)
	}
}

func TestRun_ValidatesSettings(t *testing.T) {
	_, err := Run(context.Background(), config.Settings{PayloadDir: "/p"}, nil)
	if !errors.Is(err, config.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestRun_UsesSettings(t *testing.T) {
	srv := rptest.New(t, "qe")
	res, err := Run(context.Background(), settingsFor(srv, "one"), nil, rp.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Launches) != 1 {
		t.Errorf("launches = %v", res.Launches)
	}
}

func TestResultFiles_SortedXMLOnly(t *testing.T) {
	files, err := ResultFiles(testdataPath("two/results"))
	if err != nil {
		t.Fatalf("ResultFiles: %v", err)
	}
	want := []string{testdataPath("two/results/a.xml"), testdataPath("two/results/nested/b.xml")}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize(t *testing.T) {
	start := time.Unix(1700000000, 0)
	sum := Summarize(&Result{Launches: []string{"l1"}}, start, start.Add(42*time.Second))
	out, err := json.Marshal(sum)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"reportportal":{"launches":["l1"]},"rp_preproc":{"start_time":1700000000,"end_time":1700000042,"elapsed_time":42}}`
	if string(out) != want {
		t.Errorf("summary = %s", out)
	}
}
