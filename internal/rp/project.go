package rp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ProjectScope provides access to resources within a specific Report Portal project.
type ProjectScope struct {
	client      *Client
	projectName string
}

// Project returns a ProjectScope for the named project.
func (c *Client) Project(name string) *ProjectScope {
	return &ProjectScope{client: c, projectName: name}
}

// Name returns the project name.
func (p *ProjectScope) Name() string { return p.projectName }

// Launches returns a LaunchScope for starting, finishing, importing and merging launches.
func (p *ProjectScope) Launches() *LaunchScope {
	return &LaunchScope{project: p}
}

// Items returns an ItemScope for starting and finishing test items.
func (p *ProjectScope) Items() *ItemScope {
	return &ItemScope{project: p}
}

// Logs returns a LogScope for log entries and attachments.
func (p *ProjectScope) Logs() *LogScope {
	return &LogScope{project: p}
}

// Filters returns a FilterScope for launch filters.
func (p *ProjectScope) Filters() *FilterScope {
	return &FilterScope{project: p}
}

// Widgets returns a WidgetScope for dashboard widgets.
func (p *ProjectScope) Widgets() *WidgetScope {
	return &WidgetScope{project: p}
}

// Dashboards returns a DashboardScope for dashboards.
func (p *ProjectScope) Dashboards() *DashboardScope {
	return &DashboardScope{project: p}
}

func (p *ProjectScope) logger() *slog.Logger {
	return p.client.logger.With("project", p.projectName)
}

// url builds {endpoint}/api/v1/{project}/{path}[?query].
func (p *ProjectScope) url(path string, query url.Values) string {
	u := fmt.Sprintf("%s/api/v1/%s/%s",
		p.client.baseURL, p.projectName, strings.TrimPrefix(path, "/"))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get issues a GET against path. The caller owns the response body and is
// responsible for status and JSON handling.
func (p *ProjectScope) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	return p.client.do(ctx, http.MethodGet, p.url(path, query), "GET "+path, nil, "")
}

// Post issues a POST against path. body is sent as JSON unless filePath is
// set, in which case the file is sent as the multipart field "file".
func (p *ProjectScope) Post(ctx context.Context, path string, body any, filePath string) (*http.Response, error) {
	operation := "POST " + path
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("%s: open file: %w", operation, err)
		}
		defer f.Close()
		buf, contentType, err := encodeMultipart(formPart{
			field:    "file",
			filename: filepath.Base(filePath),
			data:     f,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		return p.client.do(ctx, http.MethodPost, p.url(path, nil), operation, buf, contentType)
	}

	r, contentType, err := jsonBody(operation, body)
	if err != nil {
		return nil, err
	}
	return p.client.do(ctx, http.MethodPost, p.url(path, nil), operation, r, contentType)
}

// Put issues a PUT with a JSON body against path.
func (p *ProjectScope) Put(ctx context.Context, path string, body any) (*http.Response, error) {
	operation := "PUT " + path
	r, contentType, err := jsonBody(operation, body)
	if err != nil {
		return nil, err
	}
	return p.client.do(ctx, http.MethodPut, p.url(path, nil), operation, r, contentType)
}

// getJSON GETs path and decodes the response into dst.
func (p *ProjectScope) getJSON(ctx context.Context, operation, path string, query url.Values, dst any) error {
	return p.client.doJSON(ctx, http.MethodGet, p.url(path, query), operation, nil, "", dst)
}

// sendJSON sends body as JSON with method and decodes the response into dst.
func (p *ProjectScope) sendJSON(ctx context.Context, method, operation, path string, body, dst any) error {
	r, contentType, err := jsonBody(operation, body)
	if err != nil {
		return err
	}
	return p.client.doJSON(ctx, method, p.url(path, nil), operation, r, contentType, dst)
}
