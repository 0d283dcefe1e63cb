package rp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// DashboardScope provides dashboard operations within a project.
type DashboardScope struct {
	project *ProjectScope
}

// sharedDashboardPageSize bounds the shared dashboard listing used for name lookup.
const sharedDashboardPageSize = "300"

// DashboardRQ is the body of POST dashboard.
type DashboardRQ struct {
	Description string `json:"description"`
	Name        string `json:"name"`
	Share       bool   `json:"share"`
}

// AddWidget places a widget on a dashboard.
type AddWidget struct {
	WidgetID       FlexID `json:"widgetId"`
	WidgetPosition []int  `json:"widgetPosition"`
	WidgetSize     []int  `json:"widgetSize"`
}

// UpdateDashboardRQ is the body of PUT dashboard/{id}.
type UpdateDashboardRQ struct {
	AddWidget   AddWidget `json:"addWidget"`
	Description string    `json:"description"`
	Name        string    `json:"name"`
	Share       bool      `json:"share"`
}

// DashboardWidget is a widget placed on a dashboard.
type DashboardWidget struct {
	WidgetID   FlexID `json:"widgetId"`
	WidgetName string `json:"widgetName,omitempty"`
}

// DashboardResource is a dashboard with its widgets.
type DashboardResource struct {
	ID      FlexID            `json:"id"`
	Name    string            `json:"name"`
	Widgets []DashboardWidget `json:"widgets"`
}

// HasWidget reports whether a widget with id is already placed on d.
func (d *DashboardResource) HasWidget(id FlexID) bool {
	for _, w := range d.Widgets {
		if w.WidgetID == id {
			return true
		}
	}
	return false
}

// FindByName lists shared dashboards and returns the id of the one named exactly name.
func (s *DashboardScope) FindByName(ctx context.Context, name string) (FlexID, bool, error) {
	q := url.Values{}
	q.Set("page.size", sharedDashboardPageSize)
	var page Page[NamedResource]
	if err := s.project.getJSON(ctx, "find dashboard", "dashboard/shared", q, &page); err != nil {
		return "", false, err
	}
	return findNamed(page.Content, name)
}

// Get returns the dashboard with the given id.
func (s *DashboardScope) Get(ctx context.Context, id FlexID) (*DashboardResource, error) {
	var d DashboardResource
	if err := s.project.getJSON(ctx, "get dashboard", "dashboard/"+id.String(), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create posts a dashboard and returns its id.
func (s *DashboardScope) Create(ctx context.Context, rq DashboardRQ) (FlexID, error) {
	var rs EntryCreatedRS
	if err := s.project.sendJSON(ctx, http.MethodPost, "create dashboard", "dashboard", rq, &rs); err != nil {
		return "", err
	}
	if rs.ID == "" {
		return "", parseError("create dashboard", nil, fmt.Errorf("no dashboard id"))
	}
	return rs.ID, nil
}

// Update applies rq to the dashboard with the given id.
func (s *DashboardScope) Update(ctx context.Context, id FlexID, rq UpdateDashboardRQ) error {
	return s.project.sendJSON(ctx, http.MethodPut, "update dashboard", "dashboard/"+id.String(), rq, nil)
}

// URL returns the UI address of the dashboard with the given id.
func (s *DashboardScope) URL(id FlexID) string {
	return fmt.Sprintf("%s/ui/#%s/dashboard/%s", s.project.client.baseURL, s.project.projectName, id)
}
