package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/memcheck/internal/canonical"
)

// marshalJSON converts v to canonical JSON TEXT for storage.
func marshalJSON(what string, v any) (string, error) {
	data, err := canonical.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// unmarshalJSON decodes a JSON TEXT column into v.
func unmarshalJSON(what, text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
