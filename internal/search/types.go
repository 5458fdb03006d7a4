// Package search implements the hybrid retrieval surface: keyword,
// semantic, image, and RRF-fused search over the three on-disk
// stores, with results hydrated against the metadata store.
package search

import "github.com/kaipakiran/hybridsearch/internal/store"

// Source identifies which backend produced a Hit.
type Source string

const (
	SourceKeyword  Source = "keyword"
	SourceSemantic Source = "semantic"
	SourceImage    Source = "image"
	SourceHybrid   Source = "hybrid"
)

// Hit is a single hydrated search result.
type Hit struct {
	FileID   int64
	Score    float64
	Source   Source
	Path     string
	Filename string
	FileType store.FileType
	Preview  string
}

// previewLen bounds how much extracted text is copied into a Hit.Preview.
const previewLen = 240

func preview(text string) string {
	if len(text) <= previewLen {
		return text
	}
	return text[:previewLen]
}
