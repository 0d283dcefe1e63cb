// Package rptest runs an in-memory Report Portal for tests. It serves the
// subset of the v1 API that rp-preproc calls and records what it received.
package rptest

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"rppreproc/internal/rp"
)

// Call is one request, with Path relative to the project root.
type Call struct {
	Method string
	Path   string
}

// Launch is a started launch.
type Launch struct {
	ID          string
	Name        string
	Description string
	Attributes  []rp.Attribute
	Finished    bool
}

// Item is a started test item.
type Item struct {
	ID          string
	ParentID    string
	LaunchID    string
	Name        string
	Description string
	Type        rp.ItemType
	Status      rp.Status
	Issue       *rp.Issue
	Finished    bool
}

// Log is a saved log entry. File and Data are set for attachments.
type Log struct {
	ItemID  string
	Level   rp.LogLevel
	Message string
	File    string
	Data    []byte
}

// Import is one launch/import upload.
type Import struct {
	LaunchID string
	Entries  []string
}

// Dashboard is a created dashboard and the widgets placed on it.
type Dashboard struct {
	ID      int
	Name    string
	Widgets []int
}

type named struct {
	ID   int
	Name string
	Body map[string]any
}

// Server is a fake Report Portal.
type Server struct {
	*httptest.Server
	Project string
	Token   string

	mu          sync.Mutex
	next        int
	calls       []Call
	launches    []*Launch
	items       []*Item
	logs        []Log
	imports     []Import
	merges      []rp.MergeLaunchesRQ
	filters     []named
	widgets     []named
	dashboards  []*Dashboard
	importReply string
	mergeReply  string
}

// New starts a server for project and closes it when t ends.
func New(t testing.TB, project string) *Server {
	t.Helper()
	s := &Server{Project: project, Token: "rptest-token"}
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1/" + project).Subrouter()
	api.Use(s.record)

	api.HandleFunc("/launch", s.startLaunch).Methods(http.MethodPost)
	api.HandleFunc("/launch/import", s.importLaunch).Methods(http.MethodPost)
	api.HandleFunc("/launch/merge", s.mergeLaunches).Methods(http.MethodPost)
	api.HandleFunc("/launch/{id}/finish", s.finishLaunch).Methods(http.MethodPut)
	api.HandleFunc("/item", s.startItem).Methods(http.MethodPost)
	api.HandleFunc("/item/{id}", s.startItem).Methods(http.MethodPost)
	api.HandleFunc("/item/{id}", s.finishItem).Methods(http.MethodPut)
	api.HandleFunc("/log", s.saveLog).Methods(http.MethodPost)
	api.HandleFunc("/filter", s.findFilter).Methods(http.MethodGet)
	api.HandleFunc("/filter", s.createFilter).Methods(http.MethodPost)
	api.HandleFunc("/widget/shared/search", s.searchWidgets).Methods(http.MethodGet)
	api.HandleFunc("/widget", s.createWidget).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/shared", s.listDashboards).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", s.createDashboard).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/{id}", s.getDashboard).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/{id}", s.updateDashboard).Methods(http.MethodPut)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// NewClient returns an rp.Client talking to s.
func (s *Server) NewClient(t testing.TB) *rp.Client {
	t.Helper()
	c, err := rp.New(s.URL, s.Token, rp.WithHTTPClient(s.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// SetMergeReply makes launch/merge answer with body verbatim.
func (s *Server) SetMergeReply(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeReply = body
}

// SetImportReply makes launch/import answer with body verbatim.
func (s *Server) SetImportReply(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importReply = body
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, rp.ErrorRS{ErrorCode: 4003, Message: "Access is denied"})
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, "/api/v1/"+s.Project+"/"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) nextID() int {
	s.next++
	return s.next
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, rp.ErrorRS{ErrorCode: 4001, Message: err.Error()})
		return false
	}
	return true
}

func (s *Server) startLaunch(w http.ResponseWriter, r *http.Request) {
	var rq rp.StartLaunchRQ
	if !decode(w, r, &rq) {
		return
	}
	s.mu.Lock()
	l := &Launch{ID: fmt.Sprintf("launch-%d", s.nextID()), Name: rq.Name, Description: rq.Description, Attributes: rq.Attributes}
	s.launches = append(s.launches, l)
	number := len(s.launches)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": l.ID, "number": number})
}

func (s *Server) finishLaunch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.launches {
		if l.ID == id {
			l.Finished = true
			writeJSON(w, http.StatusOK, map[string]any{"id": id})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, rp.ErrorRS{ErrorCode: 40422, Message: "Launch '" + id + "' not found."})
}

func (s *Server) importLaunch(w http.ResponseWriter, r *http.Request) {
	f, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, rp.ErrorRS{ErrorCode: 4001, Message: err.Error()})
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, rp.ErrorRS{ErrorCode: 40015, Message: "not a zip archive"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.importReply != "" {
		w.Write([]byte(s.importReply))
		return
	}
	imp := Import{LaunchID: fmt.Sprintf("imported-%d", s.nextID())}
	for _, zf := range zr.File {
		imp.Entries = append(imp.Entries, zf.Name)
	}
	s.imports = append(s.imports, imp)
	writeJSON(w, http.StatusOK, map[string]string{
		"msg": "Launch with id = " + imp.LaunchID + " is successfully imported.",
	})
}

func (s *Server) mergeLaunches(w http.ResponseWriter, r *http.Request) {
	var rq rp.MergeLaunchesRQ
	if !decode(w, r, &rq) {
		return
	}
	s.mu.Lock()
	s.merges = append(s.merges, rq)
	if s.mergeReply != "" {
		reply := s.mergeReply
		s.mu.Unlock()
		w.Write([]byte(reply))
		return
	}
	id := s.nextID()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "name": rq.Name})
}

func (s *Server) startItem(w http.ResponseWriter, r *http.Request) {
	var rq rp.StartTestItemRQ
	if !decode(w, r, &rq) {
		return
	}
	s.mu.Lock()
	it := &Item{
		ID:          fmt.Sprintf("item-%d", s.nextID()),
		ParentID:    mux.Vars(r)["id"],
		LaunchID:    rq.LaunchUUID,
		Name:        rq.Name,
		Description: rq.Description,
		Type:        rq.Type,
	}
	s.items = append(s.items, it)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"id": it.ID})
}

func (s *Server) finishItem(w http.ResponseWriter, r *http.Request) {
	var rq rp.FinishTestItemRQ
	if !decode(w, r, &rq) {
		return
	}
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			it.Status, it.Issue, it.Finished = rq.Status, rq.Issue, true
			writeJSON(w, http.StatusOK, map[string]string{"message": "Test item " + id + " finished"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, rp.ErrorRS{ErrorCode: 40420, Message: "Test Item '" + id + "' not found."})
}

func (s *Server) saveLog(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		s.saveAttachment(w, r)
		return
	}
	var rq rp.SaveLogRQ
	if !decode(w, r, &rq) {
		return
	}
	s.mu.Lock()
	s.logs = append(s.logs, Log{ItemID: rq.ItemUUID, Level: rq.Level, Message: rq.Message})
	id := s.nextID()
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) saveAttachment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, rp.ErrorRS{ErrorCode: 4001, Message: err.Error()})
		return
	}
	var meta []rp.SaveLogRQ
	if err := json.Unmarshal([]byte(r.FormValue("json_request_part")), &meta); err != nil || len(meta) == 0 {
		writeJSON(w, http.StatusBadRequest, rp.ErrorRS{ErrorCode: 4001, Message: "bad json_request_part"})
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, rp.ErrorRS{ErrorCode: 4001, Message: err.Error()})
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(f)

	s.mu.Lock()
	s.logs = append(s.logs, Log{ItemID: meta[0].ItemUUID, Level: meta[0].Level, Message: meta[0].Message, File: hdr.Filename, Data: data})
	id := s.nextID()
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"responses": []map[string]any{{"id": id}}})
}

func page(content []map[string]any) map[string]any {
	if content == nil {
		content = []map[string]any{}
	}
	return map[string]any{
		"content": content,
		"page":    map[string]int{"number": 1, "size": len(content), "totalElements": len(content), "totalPages": 1},
	}
}

func (s *Server) findFilter(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("filter.eq.name")
	s.mu.Lock()
	defer s.mu.Unlock()
	var content []map[string]any
	for _, f := range s.filters {
		if f.Name == name {
			content = append(content, map[string]any{"id": f.ID, "name": f.Name})
		}
	}
	writeJSON(w, http.StatusOK, page(content))
}

func (s *Server) createFilter(w http.ResponseWriter, r *http.Request) {
	var rq struct {
		Elements []map[string]any `json:"elements"`
	}
	if !decode(w, r, &rq) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]any
	for _, el := range rq.Elements {
		name, _ := el["name"].(string)
		f := named{ID: s.nextID(), Name: name, Body: el}
		s.filters = append(s.filters, f)
		out = append(out, map[string]any{"id": f.ID})
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) searchWidgets(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	s.mu.Lock()
	defer s.mu.Unlock()
	var content []map[string]any
	for _, wd := range s.widgets {
		if strings.Contains(wd.Name, term) {
			content = append(content, map[string]any{"id": wd.ID, "name": wd.Name})
		}
	}
	writeJSON(w, http.StatusOK, page(content))
}

func (s *Server) createWidget(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !decode(w, r, &body) {
		return
	}
	name, _ := body["name"].(string)
	s.mu.Lock()
	wd := named{ID: s.nextID(), Name: name, Body: body}
	s.widgets = append(s.widgets, wd)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": wd.ID})
}

func (s *Server) listDashboards(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var content []map[string]any
	for _, d := range s.dashboards {
		content = append(content, map[string]any{"id": d.ID, "name": d.Name})
	}
	writeJSON(w, http.StatusOK, page(content))
}

func (s *Server) createDashboard(w http.ResponseWriter, r *http.Request) {
	var rq rp.DashboardRQ
	if !decode(w, r, &rq) {
		return
	}
	s.mu.Lock()
	d := &Dashboard{ID: s.nextID(), Name: rq.Name}
	s.dashboards = append(s.dashboards, d)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"id": d.ID})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) *Dashboard {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	for _, d := range s.dashboards {
		if d.ID == id {
			return d
		}
	}
	writeJSON(w, http.StatusNotFound, rp.ErrorRS{ErrorCode: 40421, Message: "Dashboard not found"})
	return nil
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dashboard(w, r)
	if d == nil {
		return
	}
	widgets := []map[string]any{}
	for _, id := range d.Widgets {
		widgets = append(widgets, map[string]any{"widgetId": id})
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": d.ID, "name": d.Name, "widgets": widgets})
}

func (s *Server) updateDashboard(w http.ResponseWriter, r *http.Request) {
	var rq struct {
		AddWidget struct {
			WidgetID int `json:"widgetId"`
		} `json:"addWidget"`
	}
	if !decode(w, r, &rq) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dashboard(w, r)
	if d == nil {
		return
	}
	d.Widgets = append(d.Widgets, rq.AddWidget.WidgetID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Dashboard updated"})
}
