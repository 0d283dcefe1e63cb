package service

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"rppreproc/internal/config"
	"rppreproc/internal/payload"
	"rppreproc/internal/preproc"
)

// PayloadDirName is where an uploaded bundle is extracted inside the
// request temp dir.
const PayloadDirName = "uploaded_rp_preproc_results"

var payloadFlags = []string{"simple_xml", "merge_launches", "auto_dashboard", "debug"}

// processPayload runs the full pipeline on an uploaded config and bundle.
func (s *Server) processPayload(w http.ResponseWriter, r *http.Request) {
	result, err := s.runPayload(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) runPayload(r *http.Request) (*preproc.Result, error) {
	ctx := r.Context()
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, badRequestf("parse form: %v", err)
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	cli, err := formBools(r, payloadFlags...)
	if err != nil {
		return nil, err
	}

	tmp, err := payload.NewTempDir(s.tmpBase, "rppp_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)
	logger := s.logger.With("request_dir", filepath.Base(tmp))

	configPath, err := saveUpload(r, "config_file", tmp)
	if err != nil {
		return nil, err
	}
	bundlePath, err := saveUpload(r, "payload_file", tmp)
	if err != nil {
		return nil, err
	}
	payloadDir := filepath.Join(tmp, PayloadDirName)
	if err := payload.Extract(bundlePath, payloadDir); err != nil {
		return nil, badRequestf("payload_file: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	doc, err := config.Parse(data, filepath.Ext(configPath))
	if err != nil {
		return nil, badRequestf("config_file: %v", err)
	}
	cli["config_file"] = configPath
	settings := config.Load(cli, doc).WithPayloadDir(payloadDir)
	logger.InfoContext(ctx, "payload received",
		"simple_xml", settings.SimpleXML,
		"merge_launches", settings.MergeLaunches,
		"auto_dashboard", settings.AutoDashboard)

	result, err := preproc.Run(ctx, settings, logger, s.rpOptions...)
	if errors.Is(err, config.ErrConfig) {
		return nil, &badRequest{err}
	}
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "import complete", "launches", len(result.Launches))
	return result, nil
}
