// Package extract turns a file on disk into the plain text fed to the
// full-text index and the text embedder.
package extract

import (
	"bufio"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/kaipakiran/hybridsearch/internal/errs"
	"github.com/kaipakiran/hybridsearch/internal/store"
)

// Result is the output of a successful extraction.
type Result struct {
	Text     string
	Language string
}

// Extractor turns file content into text, or reports why it couldn't.
// Unsupported formats are not an error: they return an empty Result so
// the file is still tracked and searchable by filename alone.
type Extractor interface {
	Extract(path string, ft store.FileType) (Result, error)
}

// maxExtractBytes bounds how much of a single file is read into memory
// for extraction and indexing.
const maxExtractBytes = 16 * 1024 * 1024

// PlainTextExtractor handles text, code, and markdown files by reading
// them directly, validating UTF-8 and guessing a language tag for code
// files from their extension.
type PlainTextExtractor struct{}

func NewPlainTextExtractor() *PlainTextExtractor { return &PlainTextExtractor{} }

func (e *PlainTextExtractor) Extract(path string, ft store.FileType) (Result, error) {
	switch ft {
	case store.FileTypeText, store.FileTypeCode, store.FileTypeMarkdown:
		return e.extractPlain(path, ft)
	default:
		// PDFs, docx, images and anything unrecognized: no text extractor
		// wired for them, so the file is indexed by name/path only.
		return Result{}, nil
	}
}

func (e *PlainTextExtractor) extractPlain(path string, ft store.FileType) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, errs.Extract("open file for extraction", err)
	}
	defer f.Close()

	var sb strings.Builder
	reader := bufio.NewReaderSize(f, 64*1024)
	buf := make([]byte, 64*1024)
	total := 0
	for total < maxExtractBytes {
		n, readErr := reader.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
			total += n
		}
		if readErr != nil {
			break
		}
	}

	text := sb.String()
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}

	lang := ""
	if ft == store.FileTypeCode {
		lang = guessLanguage(path)
	}

	return Result{Text: text, Language: lang}, nil
}

var extToLang = map[string]string{
	".go": "go", ".py": "python", ".js": "javascript", ".ts": "typescript",
	".tsx": "typescript", ".jsx": "javascript", ".java": "java", ".c": "c",
	".h": "c", ".cpp": "cpp", ".cc": "cpp", ".hpp": "cpp", ".rs": "rust",
	".rb": "ruby", ".php": "php", ".cs": "csharp", ".swift": "swift",
	".kt": "kotlin", ".sh": "shell", ".sql": "sql", ".yaml": "yaml",
	".yml": "yaml", ".json": "json", ".toml": "toml",
}

func guessLanguage(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return ""
	}
	return extToLang[strings.ToLower(path[i:])]
}

var _ Extractor = (*PlainTextExtractor)(nil)
