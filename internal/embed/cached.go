package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of text embeddings kept in memory.
const DefaultCacheSize = 2000

// CachedTextEncoder wraps a TextEncoder with an LRU cache keyed on the
// SHA-256 of the input text, so re-embedding an unchanged chunk during
// a reindex is a cache hit instead of a recompute.
type CachedTextEncoder struct {
	inner TextEncoder
	cache *lru.Cache[string, []float32]
}

func NewCachedTextEncoder(inner TextEncoder, cacheSize int) *CachedTextEncoder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedTextEncoder{inner: inner, cache: cache}
}

func (c *CachedTextEncoder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(c.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *CachedTextEncoder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

func (c *CachedTextEncoder) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(text)); ok {
			results[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	computed, err := c.inner.EmbedTextBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		results[idx] = computed[j]
		c.cache.Add(c.cacheKey(texts[idx]), computed[j])
	}
	return results, nil
}

func (c *CachedTextEncoder) Dimensions() int   { return c.inner.Dimensions() }
func (c *CachedTextEncoder) ModelName() string { return c.inner.ModelName() }
func (c *CachedTextEncoder) Close() error      { return c.inner.Close() }

var _ TextEncoder = (*CachedTextEncoder)(nil)
