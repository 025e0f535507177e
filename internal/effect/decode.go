package effect

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Parse decodes a JSON effect list.
func Parse(data []byte) ([]Atom, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Effects []Atom `json:"effects"`
		}
		if err := strictUnmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse effects: %w", err)
		}
		return wrapper.Effects, nil
	}
	var atoms []Atom
	if err := strictUnmarshal(trimmed, &atoms); err != nil {
		return nil, fmt.Errorf("failed to parse effects: %w", err)
	}
	return atoms, nil
}
