package dev

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeBlock(t *testing.T) {
	assert.Equal(t, "1 + 1", stripCodeBlock("```go\n1 + 1\n```"))
	assert.Equal(t, "x", stripCodeBlock("```x```"))
	assert.Equal(t, "len(\"abc\")", stripCodeBlock("  len(\"abc\") "))
}

func TestEvaluateExpression(t *testing.T) {
	out, err := evaluate(context.Background(), "1 + 2", nil)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func TestEvaluateUsesExports(t *testing.T) {
	out, err := evaluate(context.Background(), "Answer * 2", map[string]interface{}{
		"Answer":  21,
		"Missing": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}

func TestEvaluateTruncates(t *testing.T) {
	out, err := evaluate(context.Background(), "Long", map[string]interface{}{
		"Long": strings.Repeat("a", 5000),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "... (truncado)"))
	assert.Equal(t, maxOutput+len("... (truncado)"), len(out))
}

func TestEvaluateError(t *testing.T) {
	_, err := evaluate(context.Background(), "undefinedThing + 1", nil)
	assert.Error(t, err)
}
