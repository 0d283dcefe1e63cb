package rp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

// LaunchScope provides launch lifecycle, import and merge operations within a project.
type LaunchScope struct {
	project *ProjectScope
}

// Start opens a launch and returns the id the server assigned to it.
func (l *LaunchScope) Start(ctx context.Context, rq StartLaunchRQ) (string, error) {
	var rs EntryCreatedRS
	if err := l.project.sendJSON(ctx, http.MethodPost, "start launch", "launch", rq, &rs); err != nil {
		return "", err
	}
	if rs.ID == "" {
		return "", parseError("start launch", nil, fmt.Errorf("empty launch id"))
	}
	return rs.ID.String(), nil
}

// Finish closes the launch with the given id.
func (l *LaunchScope) Finish(ctx context.Context, id string, rq FinishExecutionRQ) error {
	return l.project.sendJSON(ctx, http.MethodPut, "finish launch", "launch/"+id+"/finish", rq, nil)
}

// Import uploads a zipped xUnit report to launch/import and returns the
// server's completion message.
func (l *LaunchScope) Import(ctx context.Context, zipPath string) (string, error) {
	const operation = "import launch"
	resp, err := l.project.Post(ctx, "launch/import", nil, zipPath)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := checkResponse(operation, resp)
	if err != nil {
		return "", err
	}
	var rs OperationCompletionRS
	if err := json.Unmarshal(body, &rs); err != nil {
		return "", parseError(operation, body, err)
	}
	return rs.Text(), nil
}

// Merge combines launches and returns the id of the merged launch.
func (l *LaunchScope) Merge(ctx context.Context, rq MergeLaunchesRQ) (string, error) {
	var rs EntryCreatedRS
	if err := l.project.sendJSON(ctx, http.MethodPost, "merge launches", "launch/merge", rq, &rs); err != nil {
		return "", err
	}
	if rs.ID == "" {
		return "", parseError("merge launches", nil, fmt.Errorf("missing merged launch id"))
	}
	return rs.ID.String(), nil
}

// importedIDPattern is the textual contract of the launch/import completion
// message: "Launch with id = <id> is successfully imported."
var importedIDPattern = regexp.MustCompile(`^.*id = (.*) is.*`)

// ParseImportedLaunchID extracts the launch id from a launch/import message.
func ParseImportedLaunchID(msg string) (string, error) {
	m := importedIDPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", fmt.Errorf("parse imported launch id from %q: %w", msg, ErrParse)
	}
	return m[1], nil
}
