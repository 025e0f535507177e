package world

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ags/internal/ir"
)

// Load reads a world document from a .json, .yaml or .yml file.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes a world document. Unknown fields are rejected so that
// typos in hand-written fixtures fail loudly.
func ParseJSON(data []byte) (*World, error) {
	var w World
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("failed to parse world JSON: %w", err)
	}
	if w.SchemaVersion > 0 && w.SchemaVersion != ir.SchemaVersion {
		return nil, fmt.Errorf("unsupported world schema version %d", w.SchemaVersion)
	}
	w.normalize()
	return &w, nil
}

// ParseYAML decodes a YAML world fixture. The YAML is converted to JSON
// first so both formats share one field schema.
func ParseYAML(data []byte) (*World, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse world YAML: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert world YAML: %w", err)
	}
	return ParseJSON(js)
}

// Marshal encodes the world as indented JSON.
func Marshal(w *World) ([]byte, error) {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal world: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the world to path as JSON, replacing any existing file.
func Save(path string, w *World) error {
	data, err := Marshal(w)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write world file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace world file: %w", err)
	}
	return nil
}
