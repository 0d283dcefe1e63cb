package rp

import (
	"context"
	"fmt"
	"net/http"
)

// ItemScope provides test item lifecycle operations within a project.
type ItemScope struct {
	project *ProjectScope
}

// Start opens a test item. An empty parentID starts a root item of the launch;
// otherwise the item is nested under parentID.
func (s *ItemScope) Start(ctx context.Context, parentID string, rq StartTestItemRQ) (string, error) {
	path := "item"
	if parentID != "" {
		path = "item/" + parentID
	}
	var rs EntryCreatedRS
	if err := s.project.sendJSON(ctx, http.MethodPost, "start item", path, rq, &rs); err != nil {
		return "", err
	}
	if rs.ID == "" {
		return "", parseError("start item", nil, fmt.Errorf("empty item id"))
	}
	return rs.ID.String(), nil
}

// Finish closes the test item with the given id.
func (s *ItemScope) Finish(ctx context.Context, id string, rq FinishTestItemRQ) error {
	return s.project.sendJSON(ctx, http.MethodPut, "finish item", "item/"+id, rq, nil)
}
