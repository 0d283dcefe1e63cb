package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"rppreproc/internal/payload"
	"rppreproc/internal/rp"
)

// ImportReply is the body of a successful single-file import.
type ImportReply struct {
	APIURI   string `json:"api uri"`
	Project  string `json:"project"`
	LaunchID string `json:"launch id"`
}

func (s *Server) importXunit(w http.ResponseWriter, r *http.Request) {
	s.importFile(w, r, func(ctx context.Context, client *rp.Client, project, path string) (string, error) {
		return rp.NewSession(client, project, rp.WithSessionLogger(s.logger)).ImportResultsArchive(ctx, path)
	})
}

func (s *Server) importZipped(w http.ResponseWriter, r *http.Request) {
	s.importFile(w, r, func(ctx context.Context, client *rp.Client, project, path string) (string, error) {
		msg, err := client.Project(project).Launches().Import(ctx, path)
		if err != nil {
			return "", err
		}
		return rp.ParseImportedLaunchID(msg)
	})
}

type importFunc func(ctx context.Context, client *rp.Client, project, path string) (string, error)

// importFile saves the uploaded file and hands it to fn with a client built
// from the form's endpoint and token.
func (s *Server) importFile(w http.ResponseWriter, r *http.Request, fn importFunc) {
	reply, err := s.runImport(r, fn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

func (s *Server) runImport(r *http.Request, fn importFunc) (*ImportReply, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, badRequestf("parse form: %v", err)
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	fields, err := requiredFields(r, "endpoint", "project", "api_token")
	if err != nil {
		return nil, err
	}
	endpoint, project, token := baseEndpoint(fields[0]), fields[1], fields[2]

	tmp, err := payload.NewTempDir(s.tmpBase, "rppp_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	path, err := saveUpload(r, "file", tmp)
	if err != nil {
		return nil, err
	}

	opts := append([]rp.Option{
		rp.WithLogger(s.logger),
		rp.WithInsecureSkipVerify(true),
	}, s.rpOptions...)
	client, err := rp.New(endpoint, token, opts...)
	if err != nil {
		return nil, badRequestf("endpoint: %v", err)
	}
	id, err := fn(r.Context(), client, project, path)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(r.Context(), "xunit imported", "project", project, "launch_id", id, "file", filepath.Base(path))
	return &ImportReply{
		APIURI:   fmt.Sprintf("%s/api/v1/%s/launch/import", client.BaseURL(), project),
		Project:  project,
		LaunchID: id,
	}, nil
}

// baseEndpoint accepts a host URL with or without the /api/v1 suffix.
func baseEndpoint(endpoint string) string {
	return strings.TrimSuffix(strings.TrimSuffix(endpoint, "/"), "/api/v1")
}
