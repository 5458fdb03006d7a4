// Package store provides the three on-disk stores behind the search
// engine: a relational MetadataStore, a BM25 FullTextIndex, and a
// cosine-similarity VectorStore.
package store

import (
	"context"
	"fmt"
)

// FileType is the closed tag set a file is classified into.
type FileType string

const (
	FileTypeText     FileType = "text"
	FileTypeCode     FileType = "code"
	FileTypeMarkdown FileType = "markdown"
	FileTypePDF      FileType = "pdf"
	FileTypeDocx     FileType = "docx"
	FileTypeImage    FileType = "image"
	FileTypeOther    FileType = "other"
)

// ParseFileType maps an on-disk string to the closed tag set, tolerant
// of unrecognized values on read (they map to FileTypeOther) but never
// produced on write.
func ParseFileType(s string) FileType {
	switch FileType(s) {
	case FileTypeText, FileTypeCode, FileTypeMarkdown, FileTypePDF, FileTypeDocx, FileTypeImage:
		return FileType(s)
	default:
		return FileTypeOther
	}
}

// VectorType distinguishes the text and image vector spaces.
type VectorType string

const (
	VectorTypeText  VectorType = "text"
	VectorTypeImage VectorType = "image"
)

// FileRecord is the canonical row for a tracked file.
type FileRecord struct {
	FileID     int64
	Path       string
	Filename   string
	FileType   FileType
	MimeType   string
	SizeBytes  int64
	Hash       string
	CreatedAt  int64
	ModifiedAt int64
	IndexedAt  int64
}

// ContentRecord is the 1:1 extracted-text companion of a FileRecord.
type ContentRecord struct {
	FileID    int64
	Text      string
	WordCount int
	Language  string
}

// VectorRef links a FileRecord to an entry in one of the VectorStores.
type VectorRef struct {
	FileID     int64
	VectorType VectorType
	VectorID   int64
	ChunkIndex int
}

// Stats summarizes the contents of the MetadataStore.
type Stats struct {
	TotalFiles     int
	BytesTotal     int64
	FilesByType    map[FileType]int
	VectorsByType  map[VectorType]int
}

// OrphanedVectors maps vector type to the vector_ids that lost their
// owning FileRecord and must be removed from the corresponding VectorStore.
type OrphanedVectors map[VectorType][]int64

// MetadataStore is the relational store of record: FileRecord,
// ContentRecord, and VectorRef rows, plus the schema and cascade rules
// that keep them coherent.
type MetadataStore interface {
	// UpsertFile inserts a FileRecord by path or updates the existing
	// row, returning a stable file_id. If the stored hash and size are
	// unchanged, it returns the existing id without touching indexed_at.
	UpsertFile(ctx context.Context, rec *FileRecord) (fileID int64, fastPath bool, err error)

	// UpsertContent replaces the ContentRecord for file_id.
	UpsertContent(ctx context.Context, fileID int64, text string, wordCount int, language string) error

	// UpsertVector inserts or replaces the VectorRef for (file_id, type, chunk_index).
	UpsertVector(ctx context.Context, fileID int64, vt VectorType, vectorID int64, chunkIndex int) error

	// DeleteFile removes a FileRecord (cascading to content and vectors)
	// and returns the vector_ids that are now orphaned, by type.
	DeleteFile(ctx context.Context, fileID int64) (OrphanedVectors, error)

	GetFile(ctx context.Context, fileID int64) (*FileRecord, error)
	GetByPath(ctx context.Context, path string) (*FileRecord, error)
	ListAll(ctx context.Context) ([]*FileRecord, error)
	Stats(ctx context.Context) (*Stats, error)

	// ListPathsUnder returns every stored path that is equal to root or
	// nested under it, used by the ingestor's reap pass.
	ListPathsUnder(ctx context.Context, root string) ([]*FileRecord, error)

	// VectorIDsPresent returns every (vector_type, vector_id) pair still
	// referenced by a VectorRef row, used by the reconciliation sweep.
	VectorIDsPresent(ctx context.Context) (map[VectorType]map[int64]struct{}, error)

	// DeleteOrphanVectorRefs removes VectorRef rows of the given type
	// whose vector_id is not present in the corresponding VectorStore's
	// snapshot, used by the reconciliation sweep after a crash leaves
	// the relational store ahead of a vector snapshot.
	DeleteOrphanVectorRefs(ctx context.Context, vt VectorType, liveIDs map[int64]struct{}) (removed int, err error)

	Close() error
}

// SearchHit is a single ranked result from one retrieval backend.
type SearchHit struct {
	FileID int64
	Score  float64
}

// FullTextIndex is the BM25 engine over (path, filename, body).
type FullTextIndex interface {
	// UpsertDocument deletes any existing document for file_id then adds
	// the new one, making the writer idempotent per file.
	UpsertDocument(fileID int64, path, filename, body string) error

	DeleteDocument(fileID int64) error

	// Commit flushes the writer; durable once it returns.
	Commit() error

	// Search returns up to k hits ordered by descending score. Never
	// errors on malformed query syntax; falls back to a tokenized match.
	Search(query string, k int) ([]SearchHit, error)

	Close() error
}

// VectorStore is a fixed-dimension cosine-similarity nearest-neighbor
// index over unit-length vectors.
type VectorStore interface {
	Dim() int

	// Upsert L2-normalizes vector if needed, asserts len(vector) == Dim(),
	// and returns an opaque handle. Replacing an existing file_id reuses
	// its handle.
	Upsert(fileID int64, vector []float32) (vectorID int64, err error)

	// Remove is idempotent.
	Remove(vectorID int64) error

	// Search asserts len(query) == Dim() and returns the top k hits by
	// descending cosine similarity, ties broken by ascending vector_id.
	Search(query []float32, k int) ([]VectorHit, error)

	// Save performs an atomic snapshot: write to path+".tmp" then rename.
	Save(path string) error

	Count() int
	Close() error
}

// VectorHit is a single VectorStore search result.
type VectorHit struct {
	FileID     int64
	VectorID   int64
	Similarity float32
}

// ErrDimensionMismatch is returned when loading a vector snapshot whose
// declared dimension does not match the store being loaded into.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
