package prompts

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode re-encodes a GenerateJSON result into out, rejecting keys out does not declare.
func Decode(obj map[string]any, out any) error {
	if obj == nil {
		return fmt.Errorf("empty model output")
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("re-encode model output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}
