package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashTextEncoder_DeterministicAndUnitLength(t *testing.T) {
	e := NewHashTextEncoder()
	ctx := context.Background()

	v1, err := e.EmbedText(ctx, "func parseConfig(path string) error")
	require.NoError(t, err)
	v2, err := e.EmbedText(ctx, "func parseConfig(path string) error")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, TextDimensions)

	var sumSq float64
	for _, x := range v1 {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-4)
}

func TestHashTextEncoder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewHashTextEncoder()
	v, err := e.EmbedText(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestHashTextEncoder_DifferentTextDiffers(t *testing.T) {
	e := NewHashTextEncoder()
	ctx := context.Background()

	v1, err := e.EmbedText(ctx, "database connection pool")
	require.NoError(t, err)
	v2, err := e.EmbedText(ctx, "image preprocessing pipeline")
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
}

func TestHashTextEncoder_ClosedRejectsCalls(t *testing.T) {
	e := NewHashTextEncoder()
	require.NoError(t, e.Close())

	_, err := e.EmbedText(context.Background(), "hello")
	assert.Error(t, err)
}

func TestSplitCamelCase(t *testing.T) {
	assert.Equal(t, []string{"parse", "Config", "Path"}, splitCamelCase("parseConfigPath"))
	assert.Equal(t, []string{"HTTP"}, splitCamelCase("HTTP"))
}

func TestTokenize_SplitsSnakeAndCamel(t *testing.T) {
	tokens := tokenize("parseConfigPath read_file_bytes")
	assert.Contains(t, tokens, "parse")
	assert.Contains(t, tokens, "config")
	assert.Contains(t, tokens, "read")
	assert.Contains(t, tokens, "file")
	assert.Contains(t, tokens, "bytes")
}

func TestHashToIndex_WithinRange(t *testing.T) {
	for _, s := range []string{"a", "hello", "parseConfig"} {
		idx := hashToIndex(s, TextDimensions)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, TextDimensions)
	}
}
