package util

import (
	"encoding/json"
	"fmt"

	"github.com/sitepulse/tracking-server-go/internal/config"
)

// ValidateEventData bounds the opaque event payload. Tracking clients send
// arbitrary JSON objects; anything oversized, too deep, or too wide is
// rejected at the boundary instead of being persisted.
func ValidateEventData(data json.RawMessage) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) > config.EventDataMaxBytes {
		return fmt.Errorf("payload exceeds %d bytes", config.EventDataMaxBytes)
	}

	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("payload is not valid JSON: %w", err)
	}

	if obj, ok := decoded.(map[string]any); ok {
		if len(obj) > config.EventDataMaxKeys {
			return fmt.Errorf("payload has more than %d top-level keys", config.EventDataMaxKeys)
		}
	}

	if depth := jsonDepth(decoded); depth > config.EventDataMaxDepth {
		return fmt.Errorf("payload nesting exceeds depth %d", config.EventDataMaxDepth)
	}

	return nil
}

func jsonDepth(v any) int {
	switch val := v.(type) {
	case map[string]any:
		max := 0
		for _, child := range val {
			if d := jsonDepth(child); d > max {
				max = d
			}
		}
		return max + 1
	case []any:
		max := 0
		for _, child := range val {
			if d := jsonDepth(child); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 0
	}
}
