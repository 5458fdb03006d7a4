// Package filesearch is the public entry point: Open a directory and
// get back an Engine wired over the metadata store, inverted index,
// text and image vector stores, embedding loader, ingestor, and hybrid
// searcher described in the internal packages.
package filesearch

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaipakiran/hybridsearch/internal/config"
	"github.com/kaipakiran/hybridsearch/internal/embed"
	"github.com/kaipakiran/hybridsearch/internal/errs"
	"github.com/kaipakiran/hybridsearch/internal/extract"
	"github.com/kaipakiran/hybridsearch/internal/ingest"
	"github.com/kaipakiran/hybridsearch/internal/logx"
	"github.com/kaipakiran/hybridsearch/internal/privacy"
	"github.com/kaipakiran/hybridsearch/internal/search"
	"github.com/kaipakiran/hybridsearch/internal/store"
)

const (
	dbFilename       = "db.sqlite"
	fullTextDirname  = "tantivy"
	textVectorFile   = "vectors.json"
	imageVectorFile  = "image_vectors.json"
	embedLockDirname = "locks"
)

// Engine is an opened index: the three stores, the embedding pair, the
// ingestor, and the hybrid searcher, all rooted at one index directory.
type Engine struct {
	indexDir string
	cfg      *config.Config

	metadata store.MetadataStore
	fullText store.FullTextIndex
	textVecs store.VectorStore
	imgVecs  store.VectorStore

	textEncoder embed.TextEncoder
	imgEncoder  embed.ImageEncoder

	Ingestor *ingest.Ingestor
	Search   *search.HybridSearcher
}

// Option configures Open.
type Option func(*config.Config)

// WithConfig replaces the baked-in defaults outright.
func WithConfig(cfg *config.Config) Option {
	return func(c *config.Config) { *c = *cfg }
}

// WithExclude appends privacy-filter exclude patterns to the defaults.
func WithExclude(patterns ...string) Option {
	return func(c *config.Config) { c.Paths.Exclude = append(c.Paths.Exclude, patterns...) }
}

// WithMaxFileBytes overrides the discovery size ceiling.
func WithMaxFileBytes(n int64) Option {
	return func(c *config.Config) { c.Paths.MaxFileBytes = n }
}

// Open creates or reuses the on-disk index under indexDir, wiring the
// metadata store, inverted index, text/image vector stores, embedding
// encoders, ingestor, and hybrid searcher together.
func Open(indexDir string, opts ...Option) (*Engine, error) {
	cfg := config.Default()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errs.InvalidInput(err.Error())
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, errs.IO("create index directory", err)
	}

	metadata, err := store.OpenMetadataStore(filepath.Join(indexDir, dbFilename))
	if err != nil {
		return nil, errs.Store("open metadata store", err)
	}

	fullText, err := store.OpenFullTextIndex(filepath.Join(indexDir, fullTextDirname))
	if err != nil {
		metadata.Close()
		return nil, errs.Store("open full text index", err)
	}

	textVecPath := filepath.Join(indexDir, textVectorFile)
	textVecs, err := loadOrCreateVectorStore(textVecPath, cfg.Embeddings.TextDim)
	if err != nil {
		metadata.Close()
		fullText.Close()
		return nil, err
	}

	imgVecPath := filepath.Join(indexDir, imageVectorFile)
	imgVecs, err := loadOrCreateVectorStore(imgVecPath, cfg.Embeddings.ImageDim)
	if err != nil {
		metadata.Close()
		fullText.Close()
		return nil, err
	}

	loader := embed.NewLoader(filepath.Join(indexDir, embedLockDirname), strings.EqualFold(cfg.Embeddings.Provider, "native"))
	textEncoder, imgEncoder, err := loader.Load()
	if err != nil {
		metadata.Close()
		fullText.Close()
		return nil, errs.ModelLoad("load embedding backend", err)
	}
	cachedText := embed.NewCachedTextEncoder(textEncoder, cfg.Embeddings.CacheSize)

	ingestor := &ingest.Ingestor{
		Metadata:          metadata,
		FullText:          fullText,
		TextVectors:       textVecs,
		ImgVectors:        imgVecs,
		TextEncoder:       cachedText,
		ImgEncoder:        imgEncoder,
		Extractor:         &extract.PlainTextExtractor{},
		MaxFileBytes:      cfg.Paths.MaxFileBytes,
		Workers:           cfg.Store.IndexWorkers,
		TextSnapshotPath:  textVecPath,
		ImageSnapshotPath: imgVecPath,
	}

	searcher := &search.HybridSearcher{
		Metadata:    metadata,
		FullText:    fullText,
		TextVectors: textVecs,
		ImgVectors:  imgVecs,
		TextEncoder: cachedText,
		ImgEncoder:  imgEncoder,
	}

	logx.Default().Info("opened index", "dir", indexDir)

	return &Engine{
		indexDir:    indexDir,
		cfg:         cfg,
		metadata:    metadata,
		fullText:    fullText,
		textVecs:    textVecs,
		imgVecs:     imgVecs,
		textEncoder: cachedText,
		imgEncoder:  imgEncoder,
		Ingestor:    ingestor,
		Search:      searcher,
	}, nil
}

func loadOrCreateVectorStore(path string, dim int) (store.VectorStore, error) {
	if _, statErr := os.Stat(path); statErr == nil {
		vs, err := store.LoadVectorStore(path, dim)
		if err != nil {
			return nil, errs.Store("load vector snapshot", err)
		}
		return vs, nil
	}
	return store.NewVectorStore(dim), nil
}

// IndexDirectory walks root and brings the three stores into agreement
// with it, per the ingestion pipeline. The privacy filter is rebuilt
// against root on every call, since a single Engine can index more
// than one directory over its lifetime.
func (e *Engine) IndexDirectory(ctx context.Context, root string, semantic, prune bool) (ingest.Result, error) {
	filter, err := privacy.New(root, e.cfg.Paths.Exclude)
	if err != nil {
		return ingest.Result{}, errs.IO("build privacy filter", err)
	}
	e.Ingestor.Filter = filter
	return e.Ingestor.Index(ctx, root, ingest.Options{Semantic: semantic, Prune: prune})
}

// Reconcile runs the crash-recovery sweep over the vector refs.
func (e *Engine) Reconcile(ctx context.Context) error {
	return e.Ingestor.Reconcile(ctx)
}

// Stats reports the current size of the metadata store.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.metadata.Stats(ctx)
}

// ListAll returns every tracked FileRecord, ordered by file_id.
func (e *Engine) ListAll(ctx context.Context) ([]*store.FileRecord, error) {
	return e.metadata.ListAll(ctx)
}

// Close releases the stores' file handles. It does not flush pending
// writes; call IndexDirectory's implicit commit first.
func (e *Engine) Close() error {
	var firstErr error
	for _, c := range []func() error{e.fullText.Close, e.metadata.Close, e.textEncoder.Close, e.imgEncoder.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Clear drops every on-disk artifact under the index directory: the
// relational database, the inverted index, and both vector snapshots.
// The Engine must not be used afterward.
func (e *Engine) Clear() error {
	if err := e.Close(); err != nil {
		return err
	}
	targets := []string{
		filepath.Join(e.indexDir, dbFilename),
		filepath.Join(e.indexDir, dbFilename+"-wal"),
		filepath.Join(e.indexDir, dbFilename+"-shm"),
		filepath.Join(e.indexDir, fullTextDirname),
		filepath.Join(e.indexDir, textVectorFile),
		filepath.Join(e.indexDir, imageVectorFile),
	}
	for _, t := range targets {
		if err := os.RemoveAll(t); err != nil {
			return errs.IO("clear index artifact", err)
		}
	}
	return nil
}
