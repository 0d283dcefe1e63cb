package rp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// WidgetScope provides widget operations within a project.
type WidgetScope struct {
	project *ProjectScope
}

// ContentParameters configures what a widget renders.
type ContentParameters struct {
	ContentFields  []string       `json:"content_fields"`
	Gadget         string         `json:"gadget"`
	ItemsCount     int            `json:"itemsCount"`
	MetadataFields []string       `json:"metadata_fields"`
	Type           string         `json:"type"`
	WidgetOptions  map[string]any `json:"widgetOptions"`
}

// CreateWidgetRQ is the body of POST widget.
type CreateWidgetRQ struct {
	ContentParameters ContentParameters `json:"content_parameters"`
	Description       string            `json:"description"`
	FilterID          FlexID            `json:"filter_id"`
	Name              string            `json:"name"`
	Share             bool              `json:"share"`
}

// FindByName searches shared widgets for term and returns the id of the one
// named exactly name. The server search is a substring match.
func (s *WidgetScope) FindByName(ctx context.Context, name string) (FlexID, bool, error) {
	q := url.Values{}
	q.Set("term", name)
	var page Page[NamedResource]
	if err := s.project.getJSON(ctx, "find widget", "widget/shared/search", q, &page); err != nil {
		return "", false, err
	}
	return findNamed(page.Content, name)
}

// Create posts a widget and returns its id.
func (s *WidgetScope) Create(ctx context.Context, rq CreateWidgetRQ) (FlexID, error) {
	var rs EntryCreatedRS
	if err := s.project.sendJSON(ctx, http.MethodPost, "create widget", "widget", rq, &rs); err != nil {
		return "", err
	}
	if rs.ID == "" {
		return "", parseError("create widget", nil, fmt.Errorf("no widget id"))
	}
	return rs.ID, nil
}
