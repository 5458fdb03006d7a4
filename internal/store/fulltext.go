package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	codeTokenizerName = "code_tokenizer"
	codeStopFilterName = "code_stop"
	codeAnalyzerName  = "code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopFilterName, codeStopFilterConstructor)
}

// bleveDoc is the document shape indexed for each file.
type bleveDoc struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	Body     string `json:"body"`
	FileID   int64  `json:"file_id"`
}

// BleveFullTextIndex is the BM25 FullTextIndex backed by bleve/v2.
type BleveFullTextIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// OpenFullTextIndex opens or creates the on-disk index at dir.
func OpenFullTextIndex(dir string) (*BleveFullTextIndex, error) {
	idxMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build index mapping: %w", err)
	}

	idx, err := bleve.Open(dir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(dir, idxMapping)
	}
	if err != nil {
		return nil, fmt.Errorf("open full text index: %w", err)
	}
	return &BleveFullTextIndex{index: idx}, nil
}

func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	if err := m.AddCustomAnalyzer(codeAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilterName,
		},
	}); err != nil {
		return nil, err
	}
	m.DefaultAnalyzer = codeAnalyzerName

	doc := bleve.NewDocumentMapping()

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = codeAnalyzerName
	doc.AddFieldMappingsAt("path", pathField)

	filenameField := bleve.NewTextFieldMapping()
	filenameField.Analyzer = codeAnalyzerName
	doc.AddFieldMappingsAt("filename", filenameField)

	bodyField := bleve.NewTextFieldMapping()
	bodyField.Analyzer = codeAnalyzerName
	doc.AddFieldMappingsAt("body", bodyField)

	fileIDField := bleve.NewNumericFieldMapping()
	fileIDField.Index = false
	fileIDField.Store = true
	doc.AddFieldMappingsAt("file_id", fileIDField)

	m.DefaultMapping = doc
	return m, nil
}

func docID(fileID int64) string { return fmt.Sprintf("%d", fileID) }

// UpsertDocument deletes any existing document for fileID then adds the
// new one, so repeated calls for the same file are idempotent.
func (b *BleveFullTextIndex) UpsertDocument(fileID int64, path, filename, body string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := docID(fileID)
	if err := b.index.Delete(id); err != nil && err != bleve.ErrorIndexClosed {
		// Delete of a non-existent doc is not an error in bleve; ignore.
	}
	doc := bleveDoc{Path: path, Filename: filename, Body: body, FileID: fileID}
	if err := b.index.Index(id, doc); err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	return nil
}

func (b *BleveFullTextIndex) DeleteDocument(fileID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Delete(docID(fileID)); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Commit is a no-op beyond what bleve already guarantees: every Index
// and Delete call above is synchronously durable against the
// bolt-backed store before it returns, so there is nothing left to
// flush here. The method exists to satisfy the writer-barrier contract
// callers rely on.
func (b *BleveFullTextIndex) Commit() error {
	return nil
}

// Search runs query as a disjunction of bleve match queries over the
// filename, path and body fields (each match query uses bleve's default
// OR operator, so a document matching any query term is a hit; filename
// matches are weighted higher), and never errors on malformed syntax.
func (b *BleveFullTextIndex) Search(query string, k int) ([]SearchHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	filenameQ := bleve.NewMatchQuery(query)
	filenameQ.SetField("filename")
	filenameQ.SetBoost(2.0)

	pathQ := bleve.NewMatchQuery(query)
	pathQ.SetField("path")
	pathQ.SetBoost(1.0)

	bodyQ := bleve.NewMatchQuery(query)
	bodyQ.SetField("body")
	bodyQ.SetBoost(1.0)

	disjunction := bleve.NewDisjunctionQuery(filenameQ, pathQ, bodyQ)

	req := bleve.NewSearchRequest(disjunction)
	req.Size = k
	req.Fields = []string{"file_id"}

	result, err := b.index.Search(req)
	if err != nil {
		// Contract: never throw on malformed syntax; fall back to a
		// plain tokenized match across all fields.
		fallback := bleve.NewMatchQuery(query)
		req2 := bleve.NewSearchRequest(fallback)
		req2.Size = k
		result, err = b.index.Search(req2)
		if err != nil {
			return nil, nil
		}
	}

	hits := make([]SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		var fileID int64
		if _, err := fmt.Sscanf(hit.ID, "%d", &fileID); err != nil {
			continue
		}
		hits = append(hits, SearchHit{FileID: fileID, Score: hit.Score})
	}
	return hits, nil
}

func (b *BleveFullTextIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

var _ FullTextIndex = (*BleveFullTextIndex)(nil)

func codeTokenizerConstructor(config map[string]any, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &codeTokenizer{}, nil
}

type codeTokenizer struct{}

func (t *codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)
		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func codeStopFilterConstructor(config map[string]any, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &codeStopFilter{stopWords: BuildStopWordMap(defaultStopWords)}, nil
}

type codeStopFilter struct {
	stopWords map[string]struct{}
}

func (f *codeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

var defaultStopWords = []string{
	"the", "a", "an", "and", "or", "of", "to", "in", "is", "it", "for",
}
