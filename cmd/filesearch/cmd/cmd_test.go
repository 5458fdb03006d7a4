package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_IndexSearchStatsClear(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "auth.go"),
		[]byte("package auth\n\nfunc ValidateToken(token string) error { return nil }"), 0o644))

	indexDirFlag := filepath.Join(t.TempDir(), "idx")

	out, err := runRoot(t, "index", root, "--index-dir", indexDirFlag, "--semantic=false")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 1")

	out, err = runRoot(t, "search", "ValidateToken", "--index-dir", indexDirFlag, "--mode", "keyword")
	require.NoError(t, err)
	assert.Contains(t, out, "auth.go")

	out, err = runRoot(t, "stats", "--index-dir", indexDirFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "files:  1")

	out, err = runRoot(t, "list", "--index-dir", indexDirFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "auth.go")

	out, err = runRoot(t, "clear", "--index-dir", indexDirFlag)
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	_, statErr := os.Stat(filepath.Join(indexDirFlag, "db.sqlite"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCLI_Search_UnknownModeIsInvalidInput(t *testing.T) {
	indexDirFlag := filepath.Join(t.TempDir(), "idx")
	_, err := runRoot(t, "search", "whatever", "--index-dir", indexDirFlag, "--mode", "bogus")
	assert.Error(t, err)
}

func TestCLI_Index_DefaultsToCurrentDirWithNoArgs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	indexDirFlag := filepath.Join(t.TempDir(), "idx")
	out, err := runRoot(t, "index", "--index-dir", indexDirFlag, "--semantic=false")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 1")
}
