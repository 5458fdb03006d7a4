package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// annThreshold is the vector count at or above which Search switches from
// brute-force dot product to the HNSW graph.
const annThreshold = 10_000

// CosineVectorStore is the VectorStore implementation: brute-force
// below annThreshold vectors, coder/hnsw above it, both reading from
// the same in-memory vector table so the on-disk snapshot format never
// depends on which search strategy is active.
type CosineVectorStore struct {
	mu   sync.RWMutex
	dim  int
	vecs map[int64]entry // vector_id -> entry
	byFile map[int64]int64 // file_id -> vector_id
	nextID int64

	graph      *hnsw.Graph[int64]
	graphDirty bool
}

type entry struct {
	fileID int64
	vec    []float32
}

// NewVectorStore returns an empty store of the declared dimension.
func NewVectorStore(dim int) *CosineVectorStore {
	g := hnsw.NewGraph[int64]()
	g.Distance = hnsw.CosineDistance
	return &CosineVectorStore{
		dim:    dim,
		vecs:   make(map[int64]entry),
		byFile: make(map[int64]int64),
		graph:  g,
	}
}

func (s *CosineVectorStore) Dim() int { return s.dim }

func (s *CosineVectorStore) Upsert(fileID int64, vector []float32) (int64, error) {
	if len(vector) != s.dim {
		return 0, ErrDimensionMismatch{Expected: s.dim, Got: len(vector)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]float32, len(vector))
	copy(v, vector)
	normalize(v)

	if existing, ok := s.byFile[fileID]; ok {
		s.vecs[existing] = entry{fileID: fileID, vec: v}
		s.graphDirty = true
		return existing, nil
	}

	id := s.nextID
	s.nextID++
	s.vecs[id] = entry{fileID: fileID, vec: v}
	s.byFile[fileID] = id
	s.graphDirty = true
	return id, nil
}

// Remove is idempotent: removing an absent vector_id is a no-op.
func (s *CosineVectorStore) Remove(vectorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.vecs[vectorID]
	if !ok {
		return nil
	}
	delete(s.vecs, vectorID)
	if s.byFile[e.fileID] == vectorID {
		delete(s.byFile, e.fileID)
	}
	s.graphDirty = true
	return nil
}

func (s *CosineVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vecs)
}

// VectorIDs returns the set of vector_ids currently live in the store,
// used by the ingestor's reconciliation sweep to find VectorRef rows
// whose vector_id no longer resolves.
func (s *CosineVectorStore) VectorIDs() map[int64]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]struct{}, len(s.vecs))
	for id := range s.vecs {
		out[id] = struct{}{}
	}
	return out
}

func (s *CosineVectorStore) Search(query []float32, k int) ([]VectorHit, error) {
	if len(query) != s.dim {
		return nil, ErrDimensionMismatch{Expected: s.dim, Got: len(query)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	q := make([]float32, len(query))
	copy(q, query)
	normalize(q)

	if len(s.vecs) == 0 {
		return nil, nil
	}
	if len(s.vecs) >= annThreshold {
		return s.searchANN(q, k), nil
	}
	return s.searchBruteForce(q, k), nil
}

func (s *CosineVectorStore) searchBruteForce(q []float32, k int) []VectorHit {
	hits := make([]VectorHit, 0, len(s.vecs))
	for id, e := range s.vecs {
		hits = append(hits, VectorHit{FileID: e.fileID, VectorID: id, Similarity: dot(q, e.vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].VectorID < hits[j].VectorID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

func (s *CosineVectorStore) searchANN(q []float32, k int) []VectorHit {
	s.rebuildGraphLocked()
	nodes := s.graph.Search(q, k)
	hits := make([]VectorHit, 0, len(nodes))
	for _, n := range nodes {
		e, ok := s.vecs[n.Key]
		if !ok {
			continue
		}
		hits = append(hits, VectorHit{FileID: e.fileID, VectorID: n.Key, Similarity: dot(q, e.vec)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].VectorID < hits[j].VectorID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

func (s *CosineVectorStore) rebuildGraphLocked() {
	if !s.graphDirty {
		return
	}
	g := hnsw.NewGraph[int64]()
	g.Distance = hnsw.CosineDistance
	for id, e := range s.vecs {
		g.Add(hnsw.MakeNode(id, e.vec))
	}
	s.graph = g
	s.graphDirty = false
}

// snapshot mirrors the authoritative on-disk vector format.
type snapshot struct {
	Dim     int              `json:"dim"`
	Entries []snapshotEntry  `json:"entries"`
}

type snapshotEntry struct {
	FileID   int64     `json:"file_id"`
	VectorID int64     `json:"vector_id"`
	V        []float32 `json:"v"`
}

// Save performs an atomic snapshot: write to path+".tmp" then rename.
func (s *CosineVectorStore) Save(path string) error {
	s.mu.RLock()
	snap := snapshot{Dim: s.dim, Entries: make([]snapshotEntry, 0, len(s.vecs))}
	for id, e := range s.vecs {
		snap.Entries = append(snap.Entries, snapshotEntry{FileID: e.fileID, VectorID: id, V: e.vec})
	}
	s.mu.RUnlock()

	sort.Slice(snap.Entries, func(i, j int) bool { return snap.Entries[i].VectorID < snap.Entries[j].VectorID })

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}

	tmp := path + ".tmp"
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadVectorStore loads a snapshot from path, rejecting a dimension
// mismatch against the caller's expected dim without mutating anything.
func LoadVectorStore(path string, expectedDim int) (*CosineVectorStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Dim != expectedDim {
		return nil, ErrDimensionMismatch{Expected: expectedDim, Got: snap.Dim}
	}

	store := NewVectorStore(expectedDim)
	var maxVecID int64 = -1
	for _, e := range snap.Entries {
		if len(e.V) != expectedDim {
			return nil, ErrDimensionMismatch{Expected: expectedDim, Got: len(e.V)}
		}
		store.vecs[e.VectorID] = entry{fileID: e.FileID, vec: e.V}
		store.byFile[e.FileID] = e.VectorID
		if e.VectorID > maxVecID {
			maxVecID = e.VectorID
		}
	}
	store.nextID = maxVecID + 1
	store.graphDirty = true
	return store, nil
}

func (s *CosineVectorStore) Close() error { return nil }

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= inv
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

var _ VectorStore = (*CosineVectorStore)(nil)
