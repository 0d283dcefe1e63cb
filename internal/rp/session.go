package rp

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Session is one processing run against a Report Portal project. It owns the
// registry of launches created during the run and a run id unique to it.
type Session struct {
	client   *Client
	project  *ProjectScope
	runID    string
	registry *Registry
	logger   *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) SessionOption {
	return func(s *Session) { s.runID = id }
}

// WithSessionLogger configures structured logging for session operations.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession opens a session on project.
func NewSession(client *Client, project string, opts ...SessionOption) *Session {
	s := &Session{
		client:   client,
		project:  client.Project(project),
		registry: &Registry{},
		logger:   client.logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = newRunID()
	}
	s.logger = s.logger.With("project", project, "run_id", s.runID)
	return s
}

// newRunID returns a hex time-based UUID, falling back to a random one.
func newRunID() string {
	id, err := uuid.NewUUID()
	if err != nil {
		id = uuid.New()
	}
	return strings.ReplaceAll(id.String(), "-", "")
}

// Project returns the project scope of the session.
func (s *Session) Project() *ProjectScope { return s.project }

// Registry returns the launches registered so far.
func (s *Session) Registry() *Registry { return s.registry }

// RunID returns the unique id of this run.
func (s *Session) RunID() string { return s.runID }

// Endpoint returns the Report Portal base URL.
func (s *Session) Endpoint() string { return s.client.baseURL }

// StartLaunch opens a launch.
func (s *Session) StartLaunch(ctx context.Context, rq StartLaunchRQ) (string, error) {
	return s.project.Launches().Start(ctx, rq)
}

// FinishLaunch closes a launch.
func (s *Session) FinishLaunch(ctx context.Context, id string, rq FinishExecutionRQ) error {
	return s.project.Launches().Finish(ctx, id, rq)
}

// StartItem opens a test item under parentID, or at the launch root when empty.
func (s *Session) StartItem(ctx context.Context, parentID string, rq StartTestItemRQ) (string, error) {
	return s.project.Items().Start(ctx, parentID, rq)
}

// FinishItem closes a test item.
func (s *Session) FinishItem(ctx context.Context, id string, rq FinishTestItemRQ) error {
	return s.project.Items().Finish(ctx, id, rq)
}

// Log saves a log entry.
func (s *Session) Log(ctx context.Context, rq SaveLogRQ) error {
	return s.project.Logs().Save(ctx, rq)
}

// Attach saves a log entry carrying the file at path.
func (s *Session) Attach(ctx context.Context, rq SaveLogRQ, path string) error {
	return s.project.Logs().Attach(ctx, rq, path)
}

// ImportResultsArchive zips the result file at xmlPath, sends it to
// launch/import and registers the launch id parsed from the reply.
// A reply without a recognizable id yields ErrParse.
func (s *Session) ImportResultsArchive(ctx context.Context, xmlPath string) (string, error) {
	zipPath, err := zipFile(xmlPath)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", xmlPath, err)
	}
	defer os.Remove(zipPath)

	msg, err := s.project.Launches().Import(ctx, zipPath)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", xmlPath, err)
	}
	id, err := ParseImportedLaunchID(msg)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", xmlPath, err)
	}
	s.logger.DebugContext(ctx, "launch imported", "file", xmlPath, "launch_id", id)
	s.registry.Add(id)
	return id, nil
}

// MergeLaunches merges every registered launch into one. Callers must skip
// the call when fewer than two launches are registered.
func (s *Session) MergeLaunches(ctx context.Context, name, description, mergeType string) (string, error) {
	ids := s.registry.IDs()
	s.logger.DebugContext(ctx, "merging launches", "launches", ids, "merge_type", mergeType)
	return s.project.Launches().Merge(ctx, MergeLaunchesRQ{
		Description:             description,
		ExtendSuitesDescription: true,
		Launches:                ids,
		MergeType:               mergeType,
		Mode:                    "DEFAULT",
		Name:                    name,
	})
}

// zipFile writes src into a fresh temporary zip archive and returns its path.
func zipFile(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "rppp_import_*.zip")
	if err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	zipPath := out.Name()

	zw := zip.NewWriter(out)
	w, err := zw.Create(filepath.Base(src))
	if err == nil {
		_, err = io.Copy(w, in)
	}
	if err == nil {
		err = zw.Close()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(zipPath)
		return "", fmt.Errorf("write zip: %w", err)
	}
	return zipPath, nil
}
