package backend

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Encode renders v as block-style YAML with two-space indentation, the layout
// every backend stores
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// decode parses data into out. Blank or null documents report found=false.
func decode(data []byte, out any) (bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "~" {
		return false, nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return true, nil
}
