// Package ingest orchestrates discovery, extraction, fingerprinting,
// and the three-store upsert that brings the metadata store, inverted
// index, and vector stores into agreement with a directory on disk.
package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kaipakiran/hybridsearch/internal/embed"
	"github.com/kaipakiran/hybridsearch/internal/errs"
	"github.com/kaipakiran/hybridsearch/internal/extract"
	"github.com/kaipakiran/hybridsearch/internal/fingerprint"
	"github.com/kaipakiran/hybridsearch/internal/logx"
	"github.com/kaipakiran/hybridsearch/internal/privacy"
	"github.com/kaipakiran/hybridsearch/internal/store"
)

// Options configures a single Index call.
type Options struct {
	// Prune, when true, deletes FileRecords under root that were not
	// visited by this walk and propagates their orphaned vector_ids.
	Prune bool

	// Semantic enables text and image embedding during ingestion.
	Semantic bool
}

// Result summarizes the outcome of one Index call.
type Result struct {
	Indexed int
	Skipped int
	Failed  int
}

// Ingestor is the only mutator of the three stores during indexing.
type Ingestor struct {
	Metadata    store.MetadataStore
	FullText    store.FullTextIndex
	TextVectors store.VectorStore
	ImgVectors  store.VectorStore
	TextEncoder embed.TextEncoder
	ImgEncoder  embed.ImageEncoder
	Extractor   extract.Extractor
	Filter      *privacy.Filter

	MaxFileBytes int64
	Workers      int

	TextSnapshotPath  string
	ImageSnapshotPath string

	mu sync.Mutex // serializes writes across the three stores per file_id, per §5
}

// Index advances the three stores to reflect the current state of
// root, per the discover -> extract -> fingerprint -> upsert -> embed
// -> reap -> commit pipeline.
func (ig *Ingestor) Index(ctx context.Context, root string, opts Options) (Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Result{}, errs.IO("resolve root", err)
	}

	if err := ig.Reconcile(ctx); err != nil {
		return Result{}, err
	}

	files, discErr := discover(ctx, absRoot, ig.Filter, ig.MaxFileBytes)

	var result Result
	var resMu sync.Mutex
	visited := make(map[string]struct{})
	var visitedMu sync.Mutex

	workers := ig.Workers
	if workers <= 0 {
		workers = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for f := range files {
		f := f
		g.Go(func() error {
			outcome, ferr := ig.indexOneFile(gctx, f, opts)
			resMu.Lock()
			switch outcome {
			case outcomeIndexed:
				result.Indexed++
			case outcomeSkipped:
				result.Skipped++
			case outcomeFailed:
				result.Failed++
			}
			resMu.Unlock()
			if ferr != nil {
				logx.Default().Warn("index file failed", "path", f.Path, "error", ferr)
			}
			visitedMu.Lock()
			visited[f.Path] = struct{}{}
			visitedMu.Unlock()
			return nil // per-file errors never abort the batch, §7
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	if walkErr := <-discErr; walkErr != nil {
		return result, errs.IO("discover files", walkErr)
	}

	if opts.Prune {
		if err := ig.reap(ctx, absRoot, visited); err != nil {
			return result, err
		}
	}

	if err := ig.commit(); err != nil {
		return result, err
	}
	return result, nil
}

type outcome int

const (
	outcomeIndexed outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (ig *Ingestor) indexOneFile(ctx context.Context, f DiscoveredFile, opts Options) (outcome, error) {
	hash, err := fingerprint.Hash(f.Path)
	if err != nil {
		return outcomeFailed, err
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	existing, err := ig.Metadata.GetByPath(ctx, f.Path)
	if err != nil {
		return outcomeFailed, errs.Store("lookup existing file", err)
	}

	createdAt := f.ModTime
	if existing != nil {
		createdAt = existing.CreatedAt
	}

	rec := &store.FileRecord{
		Path:       f.Path,
		Filename:   filepath.Base(f.Path),
		FileType:   f.FileType,
		SizeBytes:  f.Size,
		Hash:       hash,
		CreatedAt:  createdAt,
		ModifiedAt: f.ModTime,
		IndexedAt:  f.ModTime,
	}

	fileID, fastPath, err := ig.Metadata.UpsertFile(ctx, rec)
	if err != nil {
		return outcomeFailed, errs.Store("upsert file", err)
	}
	if fastPath {
		return outcomeSkipped, nil
	}

	result, err := ig.Extractor.Extract(f.Path, f.FileType)
	if err != nil {
		// extraction failure: keep metadata, skip content per §7
		logx.Default().Warn("extraction failed", "path", f.Path, "error", err)
		result = extract.Result{}
	}

	wordCount := 0
	if result.Text != "" {
		wordCount = len(strings.Fields(result.Text))
	}
	if err := ig.Metadata.UpsertContent(ctx, fileID, result.Text, wordCount, result.Language); err != nil {
		return outcomeFailed, errs.Store("upsert content", err)
	}

	if err := ig.FullText.UpsertDocument(fileID, f.Path, rec.Filename, result.Text); err != nil {
		return outcomeFailed, errs.Store("upsert full text document", err)
	}

	if opts.Semantic && result.Text != "" && ig.TextEncoder != nil {
		vec, err := ig.TextEncoder.EmbedText(ctx, result.Text)
		if err != nil {
			logx.Default().Warn("text embedding failed", "path", f.Path, "error", err)
		} else {
			vectorID, err := ig.TextVectors.Upsert(fileID, vec)
			if err != nil {
				return outcomeFailed, errs.Store("upsert text vector", err)
			}
			if err := ig.Metadata.UpsertVector(ctx, fileID, store.VectorTypeText, vectorID, 0); err != nil {
				return outcomeFailed, errs.Store("upsert text vector ref", err)
			}
		}
	}

	if opts.Semantic && f.FileType == store.FileTypeImage && ig.ImgEncoder != nil {
		vec, err := ig.ImgEncoder.EmbedImage(ctx, f.Path)
		if err != nil {
			logx.Default().Warn("image embedding failed", "path", f.Path, "error", err)
		} else {
			vectorID, err := ig.ImgVectors.Upsert(fileID, vec)
			if err != nil {
				return outcomeFailed, errs.Store("upsert image vector", err)
			}
			if err := ig.Metadata.UpsertVector(ctx, fileID, store.VectorTypeImage, vectorID, 0); err != nil {
				return outcomeFailed, errs.Store("upsert image vector ref", err)
			}
		}
	}

	return outcomeIndexed, nil
}

func (ig *Ingestor) reap(ctx context.Context, root string, visited map[string]struct{}) error {
	stored, err := ig.Metadata.ListPathsUnder(ctx, root)
	if err != nil {
		return errs.Store("list paths under root", err)
	}

	for _, rec := range stored {
		if _, ok := visited[rec.Path]; ok {
			continue
		}
		orphans, err := ig.Metadata.DeleteFile(ctx, rec.FileID)
		if err != nil {
			return errs.Store("delete reaped file", err)
		}
		if err := ig.FullText.DeleteDocument(rec.FileID); err != nil {
			return errs.Store("delete reaped full text document", err)
		}
		for _, vid := range orphans[store.VectorTypeText] {
			if err := ig.TextVectors.Remove(vid); err != nil {
				return errs.Store("remove orphaned text vector", err)
			}
		}
		for _, vid := range orphans[store.VectorTypeImage] {
			if err := ig.ImgVectors.Remove(vid); err != nil {
				return errs.Store("remove orphaned image vector", err)
			}
		}
	}
	return nil
}

// commit flushes the inverted index then both vector snapshots, in
// that order, so a crash between them always leaves the inverted
// index ahead of (never behind) the vector snapshots, per §4.6 step 4.
func (ig *Ingestor) commit() error {
	if err := ig.FullText.Commit(); err != nil {
		return errs.Store("commit full text index", err)
	}
	if ig.TextSnapshotPath != "" {
		if err := ig.TextVectors.Save(ig.TextSnapshotPath); err != nil {
			return errs.Store("save text vector snapshot", err)
		}
	}
	if ig.ImageSnapshotPath != "" {
		if err := ig.ImgVectors.Save(ig.ImageSnapshotPath); err != nil {
			return errs.Store("save image vector snapshot", err)
		}
	}
	return nil
}

// Reconcile runs the crash-recovery sweep described in §7, in both
// directions: vector refs whose vector_id is absent from a live
// VectorStore snapshot are dropped (metadata ahead of a vector
// snapshot), and VectorStore entries no VectorRef row points to
// anymore are removed (a vector snapshot ahead of metadata, e.g. a
// crash after Save but before the metadata commit that should have
// preceded it). The second direction is read from
// Metadata.VectorIDsPresent rather than left to the next Save's
// full-table rewrite, so a sweep with no subsequent indexing still
// converges the vector stores.
func (ig *Ingestor) Reconcile(ctx context.Context) error {
	metadataLive, err := ig.Metadata.VectorIDsPresent(ctx)
	if err != nil {
		return errs.Store("query live vector refs", err)
	}

	if textStoreLive := liveVectorIDs(ig.TextVectors); textStoreLive != nil {
		if _, err := ig.Metadata.DeleteOrphanVectorRefs(ctx, store.VectorTypeText, textStoreLive); err != nil {
			return errs.Store("reconcile text vector refs", err)
		}
	}
	if err := removeUnreferencedVectors(ig.TextVectors, metadataLive[store.VectorTypeText]); err != nil {
		return errs.Store("remove unreferenced text vectors", err)
	}

	if imgStoreLive := liveVectorIDs(ig.ImgVectors); imgStoreLive != nil {
		if _, err := ig.Metadata.DeleteOrphanVectorRefs(ctx, store.VectorTypeImage, imgStoreLive); err != nil {
			return errs.Store("reconcile image vector refs", err)
		}
	}
	if err := removeUnreferencedVectors(ig.ImgVectors, metadataLive[store.VectorTypeImage]); err != nil {
		return errs.Store("remove unreferenced image vectors", err)
	}
	return nil
}

// removeUnreferencedVectors drops every entry from vs whose vector_id
// has no corresponding VectorRef row, per liveMetadataIDs. A store that
// doesn't implement vectorIDLister skips this direction of the sweep.
func removeUnreferencedVectors(vs store.VectorStore, liveMetadataIDs map[int64]struct{}) error {
	lister, ok := vs.(vectorIDLister)
	if !ok {
		return nil
	}
	for vid := range lister.VectorIDs() {
		if _, ok := liveMetadataIDs[vid]; ok {
			continue
		}
		if err := vs.Remove(vid); err != nil {
			return err
		}
	}
	return nil
}

// liveVectorIDs asks for the vector_ids actually present in vs. This
// is an optional capability beyond the core VectorStore interface;
// a store that doesn't implement it yields nil, so Reconcile skips the
// refs-ahead-of-snapshot half of the sweep and relies on Save's own
// rewrite to drop the opposite direction (snapshot entries whose file_id
// has been deleted).
func liveVectorIDs(vs store.VectorStore) map[int64]struct{} {
	if lister, ok := vs.(vectorIDLister); ok {
		return lister.VectorIDs()
	}
	return nil
}

type vectorIDLister interface {
	VectorIDs() map[int64]struct{}
}
