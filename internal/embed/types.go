// Package embed turns extracted text and preprocessed images into
// fixed-dimension unit vectors for the semantic and cross-modal search
// paths. Every encoder here runs locally; there is no network call on
// the query or indexing path.
package embed

import (
	"context"
	"math"
)

// TextDimensions is the output width of the text encoder.
const TextDimensions = 384

// ImageDimensions is the output width of the cross-modal (CLIP-style) encoder.
const ImageDimensions = 512

// TextEncoder turns a chunk of text into a semantic embedding.
type TextEncoder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// ImageEncoder turns a preprocessed image and arbitrary query text into
// the same cross-modal vector space, so a text query can be compared
// directly against an image's embedding.
type ImageEncoder interface {
	EmbedImage(ctx context.Context, path string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// normalizeVector L2-normalizes v in place and returns it. A zero
// vector is returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sumSquares)
	for i, val := range v {
		v[i] = float32(float64(val) * inv)
	}
	return v
}
