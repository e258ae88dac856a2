// FILE: src/internal/core/record_test.go
package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateExtra(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		assert.NoError(t, ValidateExtra(nil))
		assert.NoError(t, ValidateExtra(map[string]any{}))
	})

	t.Run("ScalarsAndNesting", func(t *testing.T) {
		extra := map[string]any{
			"str":   "value",
			"num":   int64(5),
			"float": 2.5,
			"flag":  true,
			"none":  nil,
			"nested": map[string]any{
				"list": []any{"a", int64(1), map[string]any{"deep": "ok"}},
			},
		}
		assert.NoError(t, ValidateExtra(extra))
	})

	t.Run("TooManyKeys", func(t *testing.T) {
		extra := make(map[string]any, MaxExtraKeys+1)
		for i := 0; i <= MaxExtraKeys; i++ {
			extra[fmt.Sprintf("key%d", i)] = i
		}
		err := ValidateExtra(extra)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit")
	})

	t.Run("TooDeep", func(t *testing.T) {
		v := any("leaf")
		for i := 0; i <= MaxExtraDepth; i++ {
			v = map[string]any{"nest": v}
		}
		err := ValidateExtra(map[string]any{"root": v})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "depth")
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		err := ValidateExtra(map[string]any{"ch": make(chan int)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}
