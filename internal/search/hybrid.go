package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kaipakiran/hybridsearch/internal/embed"
	"github.com/kaipakiran/hybridsearch/internal/errs"
	"github.com/kaipakiran/hybridsearch/internal/store"
)

// HybridSearcher is the query-side entry point over the three stores.
type HybridSearcher struct {
	Metadata    store.MetadataStore
	FullText    store.FullTextIndex
	TextVectors store.VectorStore
	ImgVectors  store.VectorStore
	TextEncoder embed.TextEncoder
	ImgEncoder  embed.ImageEncoder
}

// KeywordSearch runs BM25 search and hydrates the top k hits.
func (hs *HybridSearcher) KeywordSearch(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, errs.InvalidInput("k must be positive")
	}
	hits, err := hs.FullText.Search(query, k)
	if err != nil {
		return nil, errs.Store("keyword search", err)
	}
	return hs.hydrate(ctx, hits, SourceKeyword)
}

// SemanticSearch embeds query with the text encoder and runs a
// nearest-neighbor search over the text VectorStore.
func (hs *HybridSearcher) SemanticSearch(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, errs.InvalidInput("k must be positive")
	}
	if hs.TextEncoder == nil {
		return nil, errs.ModelLoad("semantic search requested with no text encoder loaded", nil)
	}
	vec, err := hs.TextEncoder.EmbedText(ctx, query)
	if err != nil {
		return nil, errs.Encode("embed query", err)
	}
	return hs.semanticSearchVector(ctx, vec, k)
}

func (hs *HybridSearcher) semanticSearchVector(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	hits, err := hs.TextVectors.Search(vec, k)
	if err != nil {
		return nil, errs.Store("semantic search", err)
	}
	sh := make([]store.SearchHit, len(hits))
	for i, h := range hits {
		sh[i] = store.SearchHit{FileID: h.FileID, Score: float64(h.Similarity)}
	}
	return hs.hydrate(ctx, sh, SourceSemantic)
}

// ImageSearch embeds query with the cross-modal text projection and
// searches the image VectorStore.
func (hs *HybridSearcher) ImageSearch(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, errs.InvalidInput("k must be positive")
	}
	if hs.ImgEncoder == nil {
		return nil, errs.ModelLoad("image search requested with no image encoder loaded", nil)
	}
	vec, err := hs.ImgEncoder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errs.Encode("embed image query", err)
	}
	hits, err := hs.ImgVectors.Search(vec, k)
	if err != nil {
		return nil, errs.Store("image search", err)
	}
	sh := make([]store.SearchHit, len(hits))
	for i, h := range hits {
		sh[i] = store.SearchHit{FileID: h.FileID, Score: float64(h.Similarity)}
	}
	return hs.hydrate(ctx, sh, SourceImage)
}

// HybridSearch dispatches keyword and semantic search in parallel over
// an oversampled pool, then fuses with RRF weighted by keywordWeight.
func (hs *HybridSearcher) HybridSearch(ctx context.Context, query string, keywordWeight float64, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, errs.InvalidInput("k must be positive")
	}
	if keywordWeight < 0 || keywordWeight > 1 {
		return nil, errs.InvalidInput("keyword_weight must be in [0,1]")
	}

	pool := k * oversampleFactor

	var keywordHits []store.SearchHit
	var semanticHits []store.SearchHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := hs.FullText.Search(query, pool)
		if err != nil {
			return errs.Store("keyword search", err)
		}
		keywordHits = hits
		return nil
	})
	g.Go(func() error {
		if hs.TextEncoder == nil {
			return nil // semantic pool empty, hybrid degrades to keyword-only
		}
		vec, err := hs.TextEncoder.EmbedText(gctx, query)
		if err != nil {
			return errs.Encode("embed query", err)
		}
		hits, err := hs.TextVectors.Search(vec, pool)
		if err != nil {
			return errs.Store("semantic search", err)
		}
		semanticHits = make([]store.SearchHit, len(hits))
		for i, h := range hits {
			semanticHits[i] = store.SearchHit{FileID: h.FileID, Score: float64(h.Similarity)}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := Fuse(toRanked(keywordHits), toRanked(semanticHits), keywordWeight, k)
	hits := make([]store.SearchHit, len(fused))
	for i, r := range fused {
		hits[i] = store.SearchHit{FileID: r.FileID, Score: r.Score}
	}
	return hs.hydrate(ctx, hits, SourceHybrid)
}

func toRanked(hits []store.SearchHit) []Ranked {
	out := make([]Ranked, len(hits))
	for i, h := range hits {
		out[i] = Ranked{FileID: h.FileID, Score: h.Score}
	}
	return out
}

// hydrate resolves each hit's FileRecord via the metadata store,
// silently dropping hits whose file has since disappeared (store
// drift), per §4.7.
func (hs *HybridSearcher) hydrate(ctx context.Context, hits []store.SearchHit, source Source) ([]Hit, error) {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		rec, err := hs.Metadata.GetFile(ctx, h.FileID)
		if err != nil {
			return nil, errs.Store("hydrate hit", err)
		}
		if rec == nil {
			continue
		}
		out = append(out, Hit{
			FileID:   rec.FileID,
			Score:    h.Score,
			Source:   source,
			Path:     rec.Path,
			Filename: rec.Filename,
			FileType: rec.FileType,
		})
	}
	return out, nil
}
