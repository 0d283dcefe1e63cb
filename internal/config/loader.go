package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReadFile reads a config document (YAML or JSON) from path.
// Format is detected by extension (.yaml/.yml → YAML, .json → JSON) or by content.
func ReadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes a config document. ext is a format hint; an unknown or empty
// ext tries JSON and then YAML, which also accepts the single-quoted
// pseudo-JSON older clients upload.
func Parse(data []byte, ext string) (map[string]any, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	switch ext {
	case ".yaml":
		return parseYAML(data)
	case ".json":
		return parseJSON(data)
	}
	if doc, err := parseJSON(data); err == nil {
		return doc, nil
	}
	return parseYAML(data)
}

func parseJSON(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse config json: %v", ErrConfig, err)
	}
	return orEmpty(doc), nil
}

func parseYAML(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse config yaml: %v", ErrConfig, err)
	}
	return orEmpty(doc), nil
}

func orEmpty(doc map[string]any) map[string]any {
	if doc == nil {
		return map[string]any{}
	}
	return doc
}
