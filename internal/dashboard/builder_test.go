package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rppreproc/internal/rp"
	"rppreproc/internal/rp/rptest"
)

func TestBuild_CreatesEverything(t *testing.T) {
	srv := rptest.New(t, "qe")
	client := srv.NewClient(t)
	b := NewBuilder(client.Project("qe"), "nightly")

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// ids are handed out in creation order: filter, table, stats, dashboard.
	want := &Result{
		ID:  "4",
		URL: srv.URL + "/ui/#qe/dashboard/4",
		Widgets: []Widget{
			{ID: "2", Filter: Filter{ID: "1"}},
			{ID: "3", Filter: Filter{ID: "1"}},
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	dash := srv.Dashboards()
	if len(dash) != 1 || dash[0].Name != "nightly" {
		t.Fatalf("dashboards = %+v", dash)
	}
	if diff := cmp.Diff([]int{2, 3}, dash[0].Widgets); diff != "" {
		t.Errorf("dashboard widgets mismatch (-want +got):\n%s", diff)
	}

	filter := srv.FilterBody("nightly")
	entities, _ := json.Marshal(filter["entities"])
	if string(entities) != `[{"condition":"eq","filtering_field":"name","value":"nightly"}]` {
		t.Errorf("filter entities = %s", entities)
	}
	if table := srv.WidgetBody("nightly Launches Table"); table["filter_id"] != float64(1) {
		t.Errorf("table widget filter_id = %v", table["filter_id"])
	}
	if srv.WidgetBody("nightly Overall Stats") == nil {
		t.Error("stats widget not created")
	}
}

func TestBuild_Idempotent(t *testing.T) {
	srv := rptest.New(t, "qe")
	b := NewBuilder(srv.NewClient(t).Project("qe"), "nightly")
	ctx := context.Background()

	first, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("first Build: %v", err)
	}
	second, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("second Build: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second build differs (-first +second):\n%s", diff)
	}
	for path, want := range map[string]int{"dashboard": 1, "filter": 1, "widget": 2} {
		if n := srv.Count(http.MethodPost, path); n != want {
			t.Errorf("POST %s sent %d times, want %d", path, n, want)
		}
	}
	if n := srv.Count(http.MethodPut, "dashboard/"+first.ID.String()); n != 2 {
		t.Errorf("widgets attached %d times, want 2", n)
	}
	if got := srv.Dashboards()[0].Widgets; len(got) != 2 {
		t.Errorf("dashboard has %d widgets, want 2", len(got))
	}
}

func TestBuild_ExactNameMatch(t *testing.T) {
	srv := rptest.New(t, "qe")
	client := srv.NewClient(t)
	ctx := context.Background()

	if _, err := NewBuilder(client.Project("qe"), "pre nightly").Build(ctx); err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := NewBuilder(client.Project("qe"), "nightly").Build(ctx)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(srv.Dashboards()) != 2 {
		t.Errorf("a name containing the launch name must not be reused, dashboards = %+v", srv.Dashboards())
	}
	if res.Widgets[0].ID == "2" {
		t.Error("table widget of another launch was reused")
	}
}

func TestBuild_PropagatesAPIError(t *testing.T) {
	srv := rptest.New(t, "qe")
	client, err := rp.New(srv.URL, "wrong-token", rp.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewBuilder(client.Project("qe"), "nightly").Build(context.Background())
	if !rp.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}
