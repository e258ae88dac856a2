// FILE: src/internal/core/record.go
package core

import (
	"fmt"
	"time"
)

// Caps on caller-supplied extra data. The buffer holds records for the
// full TTL, so unbounded payloads translate directly into resident memory.
const (
	MaxExtraKeys  = 64
	MaxExtraDepth = 4
)

// LogRecord is a single buffered log entry. Immutable once created:
// producers build it, the store only ever copies it.
type LogRecord struct {
	Time    time.Time      `json:"time"`
	Level   Level          `json:"level"`
	Client  string         `json:"client"`
	Message string         `json:"message,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// ValidateExtra enforces the bounded value union on caller-supplied
// extra data: string, bool, nil, numeric, and nested maps/slices of
// those up to MaxExtraDepth levels, MaxExtraKeys top-level keys.
func ValidateExtra(extra map[string]any) error {
	if len(extra) > MaxExtraKeys {
		return fmt.Errorf("extra data has %d keys, limit is %d", len(extra), MaxExtraKeys)
	}
	for k, v := range extra {
		if err := validateExtraValue(v, 1); err != nil {
			return fmt.Errorf("extra key %q: %w", k, err)
		}
	}
	return nil
}

func validateExtraValue(v any, depth int) error {
	if depth > MaxExtraDepth {
		return fmt.Errorf("nesting exceeds depth limit %d", MaxExtraDepth)
	}

	switch val := v.(type) {
	case nil, string, bool, float64, int, int64, uint64:
		return nil
	case map[string]any:
		for k, nested := range val {
			if err := validateExtraValue(nested, depth+1); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		return nil
	case []any:
		for i, nested := range val {
			if err := validateExtraValue(nested, depth+1); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}
