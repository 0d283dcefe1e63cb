package service

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// saveUpload writes the multipart file field into dir as uploaded_<name>
// and returns its path.
func saveUpload(r *http.Request, field, dir string) (string, error) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return "", badRequestf("%s is required: %v", field, err)
	}
	defer f.Close()
	return writeUpload(f, hdr, dir)
}

func writeUpload(f multipart.File, hdr *multipart.FileHeader, dir string) (string, error) {
	name := filepath.Base(hdr.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "file"
	}
	path := filepath.Join(dir, "uploaded_"+name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

// formBools collects the boolean form fields that were sent into a CLI
// source map. Absent fields stay out so lower sources still apply.
func formBools(r *http.Request, fields ...string) (map[string]any, error) {
	out := map[string]any{}
	for _, field := range fields {
		v, ok := r.MultipartForm.Value[field]
		if !ok || len(v) == 0 || v[0] == "" {
			continue
		}
		b, err := strconv.ParseBool(v[0])
		if err != nil {
			return nil, badRequestf("%s: invalid boolean %q", field, v[0])
		}
		out[field] = b
	}
	return out, nil
}

// requiredFields returns the named form values, failing on the first empty one.
func requiredFields(r *http.Request, fields ...string) ([]string, error) {
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = r.FormValue(field)
		if out[i] == "" {
			return nil, badRequestf("%s is required", field)
		}
	}
	return out, nil
}
