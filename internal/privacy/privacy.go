// Package privacy implements the PrivacyFilter collaborator: it decides
// whether a discovered path should ever reach the ingestion pipeline,
// combining .gitignore-style rules with explicit include/exclude lists.
package privacy

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kaipakiran/hybridsearch/internal/gitignore"
)

// Filter decides whether a path is eligible for indexing.
type Filter struct {
	root    string
	exclude *gitignore.Matcher
	include []string

	mu    sync.Mutex
	cache *lru.Cache[string, bool]
}

// Option configures a Filter.
type Option func(*Filter)

// WithInclude restricts indexing to paths matching at least one of the
// given gitignore-style patterns. An empty list includes everything.
func WithInclude(patterns []string) Option {
	return func(f *Filter) { f.include = patterns }
}

// WithCacheSize bounds the number of decisions cached. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(f *Filter) {
		if n <= 0 {
			f.cache = nil
			return
		}
		c, err := lru.New[string, bool](n)
		if err == nil {
			f.cache = c
		}
	}
}

// New builds a Filter rooted at root, seeded with the given exclude
// patterns plus any .gitignore files found under root.
func New(root string, excludePatterns []string, opts ...Option) (*Filter, error) {
	root = filepath.Clean(root)
	matcher := gitignore.New()
	for _, p := range excludePatterns {
		matcher.AddPattern(p)
	}
	if err := loadGitignoreFiles(root, matcher); err != nil {
		return nil, err
	}

	cache, _ := lru.New[string, bool](1000)
	f := &Filter{root: root, exclude: matcher, cache: cache}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// loadGitignoreFiles walks root looking for .gitignore files and
// registers their patterns scoped to the directory they were found in.
func loadGitignoreFiles(root string, matcher *gitignore.Matcher) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		if d.IsDir() || d.Name() != ".gitignore" {
			return nil
		}
		rel, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			rel = ""
		}
		if rel == "." {
			rel = ""
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			matcher.AddPatternWithBase(scanner.Text(), filepath.ToSlash(rel))
		}
		return nil
	})
}

// Allowed reports whether path (absolute, under root) should be indexed.
func (f *Filter) Allowed(path string, isDir bool) bool {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	f.mu.Lock()
	if f.cache != nil {
		if v, ok := f.cache.Get(rel); ok {
			f.mu.Unlock()
			return v
		}
	}
	f.mu.Unlock()

	allowed := f.evaluate(rel, isDir)

	f.mu.Lock()
	if f.cache != nil {
		f.cache.Add(rel, allowed)
	}
	f.mu.Unlock()
	return allowed
}

func (f *Filter) evaluate(rel string, isDir bool) bool {
	if len(f.include) > 0 {
		matched := false
		for _, pat := range f.include {
			m := gitignore.New()
			m.AddPattern(pat)
			if m.Match(rel, isDir) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.exclude.Match(rel, isDir) {
		return false
	}
	return true
}

// IsHidden reports whether any path component starts with a dot, the
// default Unix convention for hidden files. Discovery treats hidden
// files like any other unless excluded by a pattern.
func IsHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
