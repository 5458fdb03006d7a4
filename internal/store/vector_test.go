package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineVectorStore_UpsertAndSearch(t *testing.T) {
	s := NewVectorStore(3)

	id1, err := s.Upsert(1, []float32{1, 0, 0})
	require.NoError(t, err)
	id2, err := s.Upsert(2, []float32{0, 1, 0})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	hits, err := s.Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(1), hits[0].FileID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestCosineVectorStore_UpsertReplacesExistingFile(t *testing.T) {
	s := NewVectorStore(2)

	id1, err := s.Upsert(1, []float32{1, 0})
	require.NoError(t, err)

	id2, err := s.Upsert(1, []float32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "re-upserting the same file_id reuses its vector_id")
	assert.Equal(t, 1, s.Count())
}

func TestCosineVectorStore_RejectsDimensionMismatch(t *testing.T) {
	s := NewVectorStore(3)
	_, err := s.Upsert(1, []float32{1, 0})
	require.Error(t, err)
	assert.IsType(t, ErrDimensionMismatch{}, err)
}

func TestCosineVectorStore_RemoveIsIdempotent(t *testing.T) {
	s := NewVectorStore(2)
	id, err := s.Upsert(1, []float32{1, 0})
	require.NoError(t, err)

	require.NoError(t, s.Remove(id))
	require.NoError(t, s.Remove(id)) // second removal is a no-op, not an error
	assert.Equal(t, 0, s.Count())
}

func TestCosineVectorStore_SaveAndLoadRoundTrip(t *testing.T) {
	s := NewVectorStore(3)
	_, err := s.Upsert(10, []float32{1, 2, 3})
	require.NoError(t, err)
	_, err = s.Upsert(20, []float32{4, 5, 6})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vectors.json")
	require.NoError(t, s.Save(path))

	loaded, err := LoadVectorStore(path, 3)
	require.NoError(t, err)
	assert.Equal(t, s.Count(), loaded.Count())

	ids := loaded.VectorIDs()
	assert.Len(t, ids, 2)
}

func TestLoadVectorStore_RejectsDimensionMismatch(t *testing.T) {
	s := NewVectorStore(3)
	_, err := s.Upsert(1, []float32{1, 2, 3})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "vectors.json")
	require.NoError(t, s.Save(path))

	_, err = LoadVectorStore(path, 5)
	require.Error(t, err)
}

func TestCosineVectorStore_VectorIDsReflectsLiveSet(t *testing.T) {
	s := NewVectorStore(2)
	id1, err := s.Upsert(1, []float32{1, 0})
	require.NoError(t, err)
	id2, err := s.Upsert(2, []float32{0, 1})
	require.NoError(t, err)

	require.NoError(t, s.Remove(id1))

	live := s.VectorIDs()
	_, stillPresent := live[id2]
	_, removed := live[id1]
	assert.True(t, stillPresent)
	assert.False(t, removed)
}
