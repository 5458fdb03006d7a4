// Package fingerprint computes stable content hashes and classifies
// file types for change detection.
package fingerprint

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaipakiran/hybridsearch/internal/errs"
	"github.com/kaipakiran/hybridsearch/internal/store"
)

const readChunkSize = 64 * 1024

// Hash computes the SHA-256 of path's byte stream, rendered as 64
// lowercase hex characters, reading in bounded 64 KiB chunks.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errs.IO("open file for hashing", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, readChunkSize)
	reader := bufio.NewReaderSize(f, readChunkSize)
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", errs.IO("read file for hashing", readErr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var extensionMap = map[string]store.FileType{
	".go": store.FileTypeCode, ".py": store.FileTypeCode, ".js": store.FileTypeCode,
	".ts": store.FileTypeCode, ".tsx": store.FileTypeCode, ".jsx": store.FileTypeCode,
	".java": store.FileTypeCode, ".c": store.FileTypeCode, ".h": store.FileTypeCode,
	".cpp": store.FileTypeCode, ".cc": store.FileTypeCode, ".hpp": store.FileTypeCode,
	".rs": store.FileTypeCode, ".rb": store.FileTypeCode, ".php": store.FileTypeCode,
	".cs": store.FileTypeCode, ".swift": store.FileTypeCode, ".kt": store.FileTypeCode,
	".sh": store.FileTypeCode, ".sql": store.FileTypeCode, ".yaml": store.FileTypeCode,
	".yml": store.FileTypeCode, ".json": store.FileTypeCode, ".toml": store.FileTypeCode,

	".md": store.FileTypeMarkdown, ".markdown": store.FileTypeMarkdown,

	".txt": store.FileTypeText, ".text": store.FileTypeText, ".log": store.FileTypeText,

	".pdf": store.FileTypePDF,
	".docx": store.FileTypeDocx, ".doc": store.FileTypeDocx,

	".png": store.FileTypeImage, ".jpg": store.FileTypeImage, ".jpeg": store.FileTypeImage,
	".gif": store.FileTypeImage, ".bmp": store.FileTypeImage, ".webp": store.FileTypeImage,
}

// Classify returns the closed FileType tag for path. Precedence is:
// extension → sniffed magic → other.
func Classify(path string) store.FileType {
	ext := strings.ToLower(filepath.Ext(path))
	if ft, ok := extensionMap[ext]; ok {
		return ft
	}
	if ft, ok := sniff(path); ok {
		return ft
	}
	return store.FileTypeOther
}

func sniff(path string) (store.FileType, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]
	if n == 0 {
		return "", false
	}

	mime := http.DetectContentType(head)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return store.FileTypeImage, true
	case strings.HasPrefix(mime, "application/pdf"):
		return store.FileTypePDF, true
	case strings.HasPrefix(mime, "text/"):
		return store.FileTypeText, true
	default:
		return "", false
	}
}
