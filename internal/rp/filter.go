package rp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// FilterScope provides launch filter operations within a project.
type FilterScope struct {
	project *ProjectScope
}

// FilterEntity is one filtering condition of a filter.
type FilterEntity struct {
	Condition      string `json:"condition"`
	FilteringField string `json:"filtering_field"`
	Value          string `json:"value"`
}

// FilterOrder is one sort column of a filter.
type FilterOrder struct {
	IsAsc         bool   `json:"is_asc"`
	SortingColumn string `json:"sorting_column"`
}

// SelectionParameters holds the sort order and page of a filter.
type SelectionParameters struct {
	Orders     []FilterOrder `json:"orders"`
	PageNumber int           `json:"page_number"`
}

// FilterElement describes one filter to create.
type FilterElement struct {
	Description         string              `json:"description"`
	Entities            []FilterEntity      `json:"entities"`
	IsLink              bool                `json:"is_link"`
	Name                string              `json:"name"`
	SelectionParameters SelectionParameters `json:"selection_parameters"`
	Share               bool                `json:"share"`
	Type                string              `json:"type"`
}

// CreateFilterRQ is the bulk body of POST filter.
type CreateFilterRQ struct {
	Elements []FilterElement `json:"elements"`
}

// FindByName returns the id of the filter whose name equals name.
func (s *FilterScope) FindByName(ctx context.Context, name string) (FlexID, bool, error) {
	q := url.Values{}
	q.Set("filter.eq.name", name)
	var page Page[NamedResource]
	if err := s.project.getJSON(ctx, "find filter", "filter", q, &page); err != nil {
		return "", false, err
	}
	return findNamed(page.Content, name)
}

// Create posts a filter and returns the id of the first created element.
// The server answers either with a list of entries or a single entry.
func (s *FilterScope) Create(ctx context.Context, rq CreateFilterRQ) (FlexID, error) {
	const operation = "create filter"
	resp, err := s.project.Post(ctx, "filter", rq, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := checkResponse(operation, resp)
	if err != nil {
		return "", err
	}
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var list []EntryCreatedRS
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", parseError(operation, body, err)
		}
		if len(list) == 0 || list[0].ID == "" {
			return "", parseError(operation, body, fmt.Errorf("no filter id"))
		}
		return list[0].ID, nil
	}
	var rs EntryCreatedRS
	if err := json.Unmarshal(trimmed, &rs); err != nil {
		return "", parseError(operation, body, err)
	}
	if rs.ID == "" {
		return "", parseError(operation, body, fmt.Errorf("no filter id"))
	}
	return rs.ID, nil
}

// findNamed returns the id of the first resource named exactly name.
func findNamed(content []NamedResource, name string) (FlexID, bool, error) {
	for _, r := range content {
		if r.Name == name {
			return r.ID, true, nil
		}
	}
	return "", false, nil
}

