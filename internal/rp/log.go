package rp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
)

// LogScope provides log entry operations within a project.
type LogScope struct {
	project *ProjectScope
}

// Save posts a plain log entry.
func (s *LogScope) Save(ctx context.Context, rq SaveLogRQ) error {
	return s.project.sendJSON(ctx, http.MethodPost, "save log", "log", rq, nil)
}

// Attach posts a log entry carrying the file at filePath. The entry message
// defaults to the file name.
func (s *LogScope) Attach(ctx context.Context, rq SaveLogRQ, filePath string) error {
	const operation = "attach file"

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s: open: %w", operation, err)
	}
	defer f.Close()

	name := filepath.Base(filePath)
	if rq.Message == "" {
		rq.Message = name
	}
	rq.File = &LogFile{Name: name}

	meta, err := json.Marshal([]SaveLogRQ{rq})
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", operation, err)
	}

	body, contentType, err := encodeMultipart(
		formPart{field: "json_request_part", contentType: "application/json", data: bytes.NewReader(meta)},
		formPart{field: "file", filename: name, contentType: mimeType(name), data: f},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}

	s.project.logger().DebugContext(ctx, "attaching file", "file", filePath, "item", rq.ItemUUID)
	return s.project.client.doJSON(ctx, http.MethodPost, s.project.url("log", nil), operation, body, contentType, nil)
}

// mimeType guesses the content type of an attachment from its extension.
func mimeType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
