package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaipakiran/hybridsearch/internal/store"
)

func TestPlainTextExtractor_ExtractsCodeAndGuessesLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644))

	e := NewPlainTextExtractor()
	res, err := e.Extract(path, store.FileTypeCode)
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {}\n", res.Text)
	assert.Equal(t, "go", res.Language)
}

func TestPlainTextExtractor_TextFileHasNoLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some notes"), 0o644))

	e := NewPlainTextExtractor()
	res, err := e.Extract(path, store.FileTypeText)
	require.NoError(t, err)
	assert.Equal(t, "just some notes", res.Text)
	assert.Empty(t, res.Language)
}

func TestPlainTextExtractor_MarkdownExtractsRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readme.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nbody text"), 0o644))

	e := NewPlainTextExtractor()
	res, err := e.Extract(path, store.FileTypeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody text", res.Text)
}

func TestPlainTextExtractor_UnsupportedTypesReturnEmptyResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	e := NewPlainTextExtractor()
	for _, ft := range []store.FileType{store.FileTypePDF, store.FileTypeDocx, store.FileTypeImage, store.FileTypeOther} {
		res, err := e.Extract(path, ft)
		require.NoError(t, err)
		assert.Equal(t, Result{}, res, "file type %s should yield an empty result, not an error", ft)
	}
}

func TestPlainTextExtractor_InvalidUTF8IsRepaired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	content := append([]byte("hello "), 0xff, 0xfe)
	content = append(content, []byte(" world")...)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	e := NewPlainTextExtractor()
	res, err := e.Extract(path, store.FileTypeText)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Text, "hello "))
	assert.Contains(t, res.Text, "world")
}

func TestPlainTextExtractor_MissingFileIsError(t *testing.T) {
	e := NewPlainTextExtractor()
	_, err := e.Extract("/nonexistent/path/does/not/exist.txt", store.FileTypeText)
	assert.Error(t, err)
}

func TestGuessLanguage_UnknownExtensionIsEmpty(t *testing.T) {
	assert.Equal(t, "", guessLanguage("file.xyz"))
	assert.Equal(t, "", guessLanguage("noext"))
	assert.Equal(t, "python", guessLanguage("script.PY"))
}
