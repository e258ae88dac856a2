// FILE: src/internal/format/logline_test.go
package format

import (
	"strings"
	"testing"
	"time"

	"rsslogfeed/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() core.LogRecord {
	return core.LogRecord{
		Time:    time.Date(2023, 10, 27, 10, 30, 0, 0, time.Local),
		Level:   core.Info,
		Client:  "sensor1",
		Message: "disk low",
		Extra:   map[string]any{"free_pct": int64(5)},
	}
}

func TestMessageOnly(t *testing.T) {
	t.Run("MessageWithExtra", func(t *testing.T) {
		got := MessageOnly(testRecord())
		assert.Equal(t, `disk low. Extra data: {"free_pct": 5}`, got)
	})

	t.Run("MessageWithoutExtra", func(t *testing.T) {
		rec := testRecord()
		rec.Extra = nil
		assert.Equal(t, "disk low", MessageOnly(rec))
	})

	t.Run("TrailingDotCollapsed", func(t *testing.T) {
		rec := testRecord()
		rec.Message = "disk low..."
		got := MessageOnly(rec)
		assert.Equal(t, `disk low. Extra data: {"free_pct": 5}`, got)
	})

	t.Run("EmptyMessageSuffixOnly", func(t *testing.T) {
		rec := testRecord()
		rec.Message = ""
		assert.Equal(t, `Extra data: {"free_pct": 5}`, MessageOnly(rec))
	})

	t.Run("LinkKeyExcluded", func(t *testing.T) {
		rec := testRecord()
		rec.Extra = map[string]any{"link": "http://example.com"}
		assert.Equal(t, "disk low", MessageOnly(rec))

		rec.Extra = map[string]any{"link": "http://example.com", "free_pct": int64(5)}
		assert.Equal(t, `disk low. Extra data: {"free_pct": 5}`, MessageOnly(rec))
	})

	t.Run("KeysSorted", func(t *testing.T) {
		rec := testRecord()
		rec.Extra = map[string]any{
			"zebra": int64(1),
			"alpha": "a",
			"mid":   map[string]any{"z": int64(2), "a": int64(1)},
		}
		got := MessageOnly(rec)
		assert.Equal(t, `disk low. Extra data: {"alpha": "a", "mid": {"a": 1, "z": 2}, "zebra": 1}`, got)
	})

	t.Run("Deterministic", func(t *testing.T) {
		rec := testRecord()
		rec.Extra = map[string]any{
			"b": []any{int64(1), "two", false, nil},
			"a": map[string]any{"y": 1.5, "x": "v"},
			"c": true,
		}
		first := MessageOnly(rec)
		for i := 0; i < 20; i++ {
			assert.Equal(t, first, MessageOnly(rec))
		}
	})
}

func TestLine(t *testing.T) {
	got := Line(testRecord())
	parts := strings.Split(got, "\t")
	require.Len(t, parts, 4)

	assert.Equal(t, "2023-10-27 10:30:00", parts[0])
	assert.Equal(t, "[INFO]", parts[1])
	assert.Equal(t, "sensor1", parts[2])
	assert.Equal(t, `disk low. Extra data: {"free_pct": 5}`, parts[3])
}

func TestLine_Deterministic(t *testing.T) {
	rec := testRecord()
	rec.Extra = map[string]any{"b": int64(2), "a": int64(1), "c": int64(3)}

	first := Line(rec)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Line(rec))
	}
}
