package filesearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_IndexAndHybridSearch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "billing.go"),
		[]byte("package billing\n\nfunc ChargeCard(amount int) error { return nil }"), 0o644))

	indexDir := t.TempDir()
	engine, err := Open(indexDir)
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	result, err := engine.IndexDirectory(ctx, root, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)

	hits, err := engine.Search.HybridSearch(ctx, "ChargeCard", 0.5, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "billing.go", hits[0].Filename)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFiles)

	recs, err := engine.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "billing.go", recs[0].Filename)
}

func TestEngine_ClearRemovesArtifacts(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))

	indexDir := t.TempDir()
	engine, err := Open(indexDir)
	require.NoError(t, err)

	_, err = engine.IndexDirectory(context.Background(), root, false, false)
	require.NoError(t, err)

	require.NoError(t, engine.Clear())

	_, statErr := os.Stat(filepath.Join(indexDir, dbFilename))
	assert.True(t, os.IsNotExist(statErr))
}
