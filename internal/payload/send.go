package payload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rppreproc/internal/config"
)

// ProcessPath is the service route accepting payload bundles.
const ProcessPath = "api/v1/process/payload/"

// Reply is the service answer. Body is kept raw so it can be embedded in the
// CLI summary unchanged.
type Reply struct {
	StatusCode int
	Body       json.RawMessage
}

// OK reports a 200 reply.
func (r *Reply) OK() bool { return r.StatusCode == http.StatusOK }

// Sender posts payloads to an rp-preproc service.
type Sender struct {
	httpClient *http.Client
	tmpBase    string
	logger     *slog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) { s.httpClient = c }
}

// WithTempBase sets where client bundles are staged.
func WithTempBase(dir string) Option {
	return func(s *Sender) { s.tmpBase = dir }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sender) { s.logger = l }
}

// NewSender returns a Sender.
func NewSender(opts ...Option) *Sender {
	s := &Sender{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Forward bundles settings.PayloadDir, sends it with the config file to
// settings.ServiceURL and removes the staged bundle afterwards.
func (s *Sender) Forward(ctx context.Context, settings config.Settings) (*Reply, error) {
	if settings.PayloadDir == "" || settings.ConfigPath == "" {
		return nil, fmt.Errorf("%w: must specify a payload directory and config file", config.ErrConfig)
	}
	dir, err := NewTempDir(s.tmpBase, "rppp_client_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	bundle := filepath.Join(dir, BundleName)
	if err := Bundle(settings.PayloadDir, bundle); err != nil {
		return nil, err
	}
	form := map[string]string{
		"simple_xml":     strconv.FormatBool(settings.SimpleXML),
		"merge_launches": strconv.FormatBool(settings.MergeLaunches),
		"auto_dashboard": strconv.FormatBool(settings.AutoDashboard),
		"debug":          strconv.FormatBool(settings.Debug),
	}
	return s.Send(ctx, ServiceEndpoint(settings.ServiceURL), settings.ConfigPath, bundle, form)
}

// ServiceEndpoint joins a service base URL and ProcessPath.
func ServiceEndpoint(serviceURL string) string {
	return strings.TrimSuffix(serviceURL, "/") + "/" + ProcessPath
}

// Send posts the config file, the bundle and form to endpoint as
// multipart/form-data.
func (s *Sender) Send(ctx context.Context, endpoint, configPath, bundlePath string, form map[string]string) (*Reply, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range []struct{ field, path string }{
		{"config_file", configPath},
		{"payload_file", bundlePath},
	} {
		if err := copyFilePart(mw, f.field, f.path); err != nil {
			return nil, fmt.Errorf("send payload: %w", err)
		}
	}
	for k, v := range form {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("send payload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("send payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("send payload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	s.logger.DebugContext(ctx, "sending payload", "url", endpoint, "bundle", bundlePath)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send payload to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read service reply: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("service reply HTTP %d is not JSON: %.200q", resp.StatusCode, body)
	}
	return &Reply{StatusCode: resp.StatusCode, Body: body}, nil
}

func copyFilePart(mw *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
