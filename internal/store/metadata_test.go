package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetadataStore(t *testing.T) *SQLiteMetadataStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.sqlite")
	s, err := OpenMetadataStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleFile(path string) *FileRecord {
	return &FileRecord{
		Path:       path,
		Filename:   filepath.Base(path),
		FileType:   FileTypeCode,
		MimeType:   "text/x-go",
		SizeBytes:  42,
		Hash:       "deadbeef",
		CreatedAt:  1000,
		ModifiedAt: 1000,
		IndexedAt:  1000,
	}
}

func TestSQLiteMetadataStore_UpsertFile_InsertsThenFastPaths(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	rec := sampleFile("/repo/main.go")
	id, existed, err := s.UpsertFile(ctx, rec)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotZero(t, id)

	rec2 := sampleFile("/repo/main.go")
	rec2.IndexedAt = 9999
	id2, existed2, err := s.UpsertFile(ctx, rec2)
	require.NoError(t, err)
	assert.True(t, existed2, "unchanged hash+size should take the fast path")
	assert.Equal(t, id, id2)

	stored, err := s.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stored.IndexedAt, "fast path must not touch indexed_at")
}

func TestSQLiteMetadataStore_UpsertFile_ChangedHashUpdatesInPlace(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	rec := sampleFile("/repo/main.go")
	id, _, err := s.UpsertFile(ctx, rec)
	require.NoError(t, err)

	changed := sampleFile("/repo/main.go")
	changed.Hash = "newhash"
	changed.SizeBytes = 99
	changed.IndexedAt = 2000
	id2, existed, err := s.UpsertFile(ctx, changed)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, id, id2)

	stored, err := s.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "newhash", stored.Hash)
	assert.Equal(t, int64(99), stored.SizeBytes)
	assert.Equal(t, int64(2000), stored.IndexedAt)
}

func TestSQLiteMetadataStore_UpsertContent_MirrorsIntoFTS(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	id, _, err := s.UpsertFile(ctx, sampleFile("/repo/billing.go"))
	require.NoError(t, err)
	require.NoError(t, s.UpsertContent(ctx, id, "func ChargeCard() {}", 3, "go"))

	var matched int64
	row := s.db.QueryRowContext(ctx, `SELECT rowid FROM content_fts WHERE content_fts MATCH 'ChargeCard'`)
	require.NoError(t, row.Scan(&matched))
	assert.Equal(t, id, matched)

	require.NoError(t, s.UpsertContent(ctx, id, "func RefundCard() {}", 3, "go"))
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_fts WHERE content_fts MATCH 'ChargeCard'`)
	var count int
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 0, count, "updating content should remove the stale fts entry")
}

func TestSQLiteMetadataStore_DeleteFile_CascadesAndReturnsOrphans(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	id, _, err := s.UpsertFile(ctx, sampleFile("/repo/a.go"))
	require.NoError(t, err)
	require.NoError(t, s.UpsertContent(ctx, id, "package a", 1, "go"))
	require.NoError(t, s.UpsertVector(ctx, id, VectorTypeText, 7, 0))
	require.NoError(t, s.UpsertVector(ctx, id, VectorTypeImage, 11, 0))

	orphans, err := s.DeleteFile(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{7}, orphans[VectorTypeText])
	assert.ElementsMatch(t, []int64{11}, orphans[VectorTypeImage])

	rec, err := s.GetFile(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, rec)

	var contentCount int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content WHERE file_id = ?`, id).Scan(&contentCount))
	assert.Zero(t, contentCount, "content row should cascade delete")

	var vectorCount int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors WHERE file_id = ?`, id).Scan(&vectorCount))
	assert.Zero(t, vectorCount, "vector rows should cascade delete")
}

func TestSQLiteMetadataStore_ListPathsUnder(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	for _, p := range []string{"/repo/src/a.go", "/repo/src/nested/b.go", "/repo/docs/c.md", "/other/d.go"} {
		_, _, err := s.UpsertFile(ctx, sampleFile(p))
		require.NoError(t, err)
	}

	recs, err := s.ListPathsUnder(ctx, "/repo/src")
	require.NoError(t, err)
	var paths []string
	for _, r := range recs {
		paths = append(paths, r.Path)
	}
	assert.ElementsMatch(t, []string{"/repo/src/a.go", "/repo/src/nested/b.go"}, paths)
}

func TestSQLiteMetadataStore_Stats(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	id1, _, err := s.UpsertFile(ctx, sampleFile("/repo/a.go"))
	require.NoError(t, err)
	rec2 := sampleFile("/repo/readme.md")
	rec2.FileType = FileTypeMarkdown
	_, _, err = s.UpsertFile(ctx, rec2)
	require.NoError(t, err)
	require.NoError(t, s.UpsertVector(ctx, id1, VectorTypeText, 1, 0))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalFiles)
	assert.Equal(t, 1, stats.FilesByType[FileTypeCode])
	assert.Equal(t, 1, stats.FilesByType[FileTypeMarkdown])
	assert.Equal(t, 1, stats.VectorsByType[VectorTypeText])
}

func TestSQLiteMetadataStore_VectorIDsPresentAndDeleteOrphans(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	id, _, err := s.UpsertFile(ctx, sampleFile("/repo/a.go"))
	require.NoError(t, err)
	require.NoError(t, s.UpsertVector(ctx, id, VectorTypeText, 1, 0))
	require.NoError(t, s.UpsertVector(ctx, id, VectorTypeText, 2, 1))

	present, err := s.VectorIDsPresent(ctx)
	require.NoError(t, err)
	assert.Contains(t, present[VectorTypeText], int64(1))
	assert.Contains(t, present[VectorTypeText], int64(2))

	liveIDs := map[int64]struct{}{1: {}}
	removed, err := s.DeleteOrphanVectorRefs(ctx, VectorTypeText, liveIDs)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	present2, err := s.VectorIDsPresent(ctx)
	require.NoError(t, err)
	assert.NotContains(t, present2[VectorTypeText], int64(2))
	assert.Contains(t, present2[VectorTypeText], int64(1))
}

func TestSQLiteMetadataStore_GetByPath_MissingReturnsNilNoError(t *testing.T) {
	s := newTestMetadataStore(t)
	rec, err := s.GetByPath(context.Background(), "/does/not/exist.go")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
