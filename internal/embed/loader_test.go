package embed

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_FallsBackToHashEncoders(t *testing.T) {
	loader := NewLoader(t.TempDir(), false)
	text, image, err := loader.Load()
	require.NoError(t, err)
	require.NotNil(t, text)
	require.NotNil(t, image)

	assert.Equal(t, "hash-text-v1", text.ModelName())
	assert.Equal(t, TextDimensions, text.Dimensions())
	assert.Equal(t, ImageDimensions, image.Dimensions())
}

func TestLoader_Load_MemoizesAcrossCalls(t *testing.T) {
	loader := NewLoader(t.TempDir(), false)
	text1, image1, err := loader.Load()
	require.NoError(t, err)
	text2, image2, err := loader.Load()
	require.NoError(t, err)

	assert.Same(t, text1, text2, "second Load should return the memoized encoder")
	assert.Same(t, image1, image2)
}

func TestLoader_Load_SeparateLoadersDoNotShareInstances(t *testing.T) {
	dir := t.TempDir()
	a := NewLoader(filepath.Join(dir, "a"), false)
	b := NewLoader(filepath.Join(dir, "b"), false)

	textA, _, err := a.Load()
	require.NoError(t, err)
	textB, _, err := b.Load()
	require.NoError(t, err)

	assert.NotSame(t, textA, textB)
}

func TestLoader_Load_RequireNativeFailsWhenNoNativeLibraryPresent(t *testing.T) {
	loader := NewLoader(t.TempDir(), true)
	text, image, err := loader.Load()
	assert.Error(t, err, "requireNative should surface MODEL_LOAD_ERROR rather than silently falling back")
	assert.Nil(t, text)
	assert.Nil(t, image)
}

func TestLoader_Load_RequireNativeErrorIsMemoized(t *testing.T) {
	loader := NewLoader(t.TempDir(), true)
	_, _, err1 := loader.Load()
	_, _, err2 := loader.Load()
	require.Error(t, err1)
	assert.Equal(t, err1, err2)
}
