// FILE: src/internal/format/logline.go
package format

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"rsslogfeed/src/internal/core"
)

// Timestamp layout for archived log lines
const timestampLayout = "2006-01-02 15:04:05"

// Reserved extra keys consumed by the feed renderer, excluded from the
// extra-data suffix.
const linkKey = "link"

// MessageOnly renders a record's message with a deterministic extra-data
// suffix when non-reserved extra fields exist. Repeated calls on the same
// record produce byte-identical output: keys are sorted lexicographically
// at every nesting level and value formatting is stable.
func MessageOnly(rec core.LogRecord) string {
	extra := withoutReservedKeys(rec.Extra)
	if len(extra) == 0 {
		return rec.Message
	}

	var sb strings.Builder
	if rec.Message != "" {
		sb.WriteString(strings.TrimRight(rec.Message, "."))
		sb.WriteString(". ")
	}
	sb.WriteString("Extra data: ")
	appendValue(&sb, extra)
	return sb.String()
}

// Line renders the full archival line: local timestamp, bracketed level,
// client and message rendering, tab-separated.
func Line(rec core.LogRecord) string {
	return strings.Join([]string{
		rec.Time.Local().Format(timestampLayout),
		"[" + rec.Level.String() + "]",
		rec.Client,
		MessageOnly(rec),
	}, "\t")
}

func withoutReservedKeys(extra map[string]any) map[string]any {
	if _, ok := extra[linkKey]; !ok {
		return extra
	}
	filtered := make(map[string]any, len(extra)-1)
	for k, v := range extra {
		if k != linkKey {
			filtered[k] = v
		}
	}
	return filtered
}

// appendValue serializes a bounded extra value as JSON with sorted keys
// and ", " / ": " separators, so output is stable across calls.
func appendValue(sb *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(val))
	case string:
		appendQuoted(sb, val)
	case int:
		sb.WriteString(strconv.Itoa(val))
	case int64:
		sb.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		sb.WriteString(strconv.FormatUint(val, 10))
	case float64:
		sb.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			appendQuoted(sb, k)
			sb.WriteString(": ")
			appendValue(sb, val[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteString(", ")
			}
			appendValue(sb, item)
		}
		sb.WriteByte(']')
	default:
		// Outside the bounded union, fall back to a quoted rendering
		appendQuoted(sb, stringify(val))
	}
}

func appendQuoted(sb *strings.Builder, s string) {
	quoted, err := json.Marshal(s)
	if err != nil {
		// json.Marshal cannot fail for a string
		sb.WriteString(strconv.Quote(s))
		return
	}
	sb.Write(quoted)
}

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "<unserializable>"
	}
	return string(b)
}
