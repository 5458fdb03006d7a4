package embed

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, fill color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, fill)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestHashImageEncoder_EmbedImage_UnitLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "red.png")
	writeTestPNG(t, path, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	e := NewHashImageEncoder()
	v, err := e.EmbedImage(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, v, ImageDimensions)

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-3)
}

func TestHashImageEncoder_EmbedImage_DiffersByColor(t *testing.T) {
	dir := t.TempDir()
	redPath := filepath.Join(dir, "red.png")
	bluePath := filepath.Join(dir, "blue.png")
	writeTestPNG(t, redPath, color.RGBA{R: 220, G: 10, B: 10, A: 255})
	writeTestPNG(t, bluePath, color.RGBA{R: 10, G: 10, B: 220, A: 255})

	e := NewHashImageEncoder()
	ctx := context.Background()
	red, err := e.EmbedImage(ctx, redPath)
	require.NoError(t, err)
	blue, err := e.EmbedImage(ctx, bluePath)
	require.NoError(t, err)

	assert.NotEqual(t, red, blue)
}

func TestHashImageEncoder_EmbedQuery_SharesDimensionWithImages(t *testing.T) {
	e := NewHashImageEncoder()
	v, err := e.EmbedQuery(context.Background(), "a photo of a red sports car")
	require.NoError(t, err)
	assert.Len(t, v, ImageDimensions)
}

func TestHashImageEncoder_EmbedQuery_EmptyIsZeroVector(t *testing.T) {
	e := NewHashImageEncoder()
	v, err := e.EmbedQuery(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}
