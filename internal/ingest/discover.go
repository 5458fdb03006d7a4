package ingest

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/kaipakiran/hybridsearch/internal/fingerprint"
	"github.com/kaipakiran/hybridsearch/internal/privacy"
	"github.com/kaipakiran/hybridsearch/internal/store"
)

// DiscoveredFile is a single file discover yields.
type DiscoveredFile struct {
	Path     string
	FileType store.FileType
	Size     int64
	ModTime  int64
}

// discover walks root depth-first, consulting filter at every entry
// and skipping files over maxFileBytes, streaming results on a
// channel so the caller can start processing before the walk
// finishes. The channel is closed when the walk completes or ctx is
// canceled.
func discover(ctx context.Context, root string, filter *privacy.Filter, maxFileBytes int64) (<-chan DiscoveredFile, <-chan error) {
	out := make(chan DiscoveredFile, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // best-effort: skip unreadable entries, don't abort the walk
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if !filter.Allowed(path, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if maxFileBytes > 0 && info.Size() > maxFileBytes {
				return nil
			}

			select {
			case out <- DiscoveredFile{
				Path:     path,
				FileType: fingerprint.Classify(path),
				Size:     info.Size(),
				ModTime:  info.ModTime().Unix(),
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if walkErr != nil && walkErr != context.Canceled {
			errs <- walkErr
		}
	}()

	return out, errs
}
