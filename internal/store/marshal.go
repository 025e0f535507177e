package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/ags/internal/world"
)

// marshalJSON encodes v as compact JSON TEXT with HTML escaping
// disabled, so stored documents match what the CLI prints.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func marshalEntry(entry world.LogEntry) (string, error) {
	s, err := marshalJSON(entry)
	if err != nil {
		return "", fmt.Errorf("marshal turn %s: %w", entry.TurnID, err)
	}
	return s, nil
}

func unmarshalEntry(data string) (world.LogEntry, error) {
	var entry world.LogEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return world.LogEntry{}, fmt.Errorf("unmarshal turn: %w", err)
	}
	return entry, nil
}

func marshalWorld(w *world.World) (string, error) {
	s, err := marshalJSON(w)
	if err != nil {
		return "", fmt.Errorf("marshal world %s: %w", w.ID, err)
	}
	return s, nil
}
