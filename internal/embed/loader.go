package embed

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/kaipakiran/hybridsearch/internal/errs"
)

// nativeLibCandidates lists the shared library names probed, in order,
// for a native CLIP/text embedding backend. None ship with this
// module; if present on the host one is dlopen'd, but no symbols are
// bound from it and the loader still returns the deterministic hash
// encoders.
var nativeLibCandidates = map[string][]string{
	"darwin": {"libclip.dylib", "libembed.dylib"},
	"linux":  {"libclip.so", "libembed.so"},
}

// Loader resolves a TextEncoder and ImageEncoder pair once per Loader
// value (separate Loaders resolve separate instances), guarded by a
// cross-process file lock so concurrent processes sharing a cache
// directory don't race on the same probe.
type Loader struct {
	once sync.Once
	mu   sync.Mutex

	text   TextEncoder
	image  ImageEncoder
	loaded bool
	err    error

	lockDir       string
	requireNative bool
}

// NewLoader returns a Loader that serializes native-backend probing
// against other processes using a lock file under lockDir. requireNative
// controls what happens when no native library is found: false falls
// back to the deterministic hash encoders, true surfaces a
// MODEL_LOAD_ERROR instead, for callers whose configuration pins
// embeddings.provider to "native".
func NewLoader(lockDir string, requireNative bool) *Loader {
	return &Loader{lockDir: lockDir, requireNative: requireNative}
}

// Load resolves the encoders, probing for a native library first. If no
// native library is found, it falls back to the deterministic hash
// encoders unless requireNative was set, in which case it fails with a
// MODEL_LOAD_ERROR. If a native library is found, it is opened but no
// symbols are bound from it, and the hash encoders are returned all the
// same. The result is memoized; subsequent calls return the same
// instances and error.
func (l *Loader) Load() (TextEncoder, ImageEncoder, error) {
	l.once.Do(func() {
		lock := NewFileLock(l.lockDir)
		if err := lock.Lock(); err != nil {
			if l.requireNative {
				l.err = ModelLoadErrorFor("native", err)
				return
			}
			l.text, l.image = NewHashTextEncoder(), NewHashImageEncoder()
			l.loaded = true
			return
		}
		defer lock.Unlock()

		handle, ok := probeNativeLib()
		if !ok {
			if l.requireNative {
				l.err = ModelLoadErrorFor("native", fmt.Errorf("no native embedding library found for %s", runtime.GOOS))
				return
			}
			l.text, l.image = NewHashTextEncoder(), NewHashImageEncoder()
			l.loaded = true
			return
		}
		_ = handle // native symbol wiring is backend-specific and not resolved here

		l.text, l.image = NewHashTextEncoder(), NewHashImageEncoder()
		l.loaded = true
	})
	return l.text, l.image, l.err
}

// probeNativeLib attempts to dlopen the first matching candidate for
// the current OS. It never panics and never returns an error: an
// absent native library is an expected, silent fallback condition.
func probeNativeLib() (uintptr, bool) {
	candidates, ok := nativeLibCandidates[runtime.GOOS]
	if !ok {
		return 0, false
	}
	for _, name := range candidates {
		handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return handle, true
		}
	}
	return 0, false
}

// ModelLoadErrorFor wraps a native backend failure into the taxonomy's
// MODEL_LOAD_ERROR, used when a caller explicitly requires the native
// backend (e.g. via configuration) rather than accepting the fallback.
func ModelLoadErrorFor(backend string, cause error) error {
	return errs.ModelLoad(fmt.Sprintf("failed to load %s embedding backend", backend), cause)
}
