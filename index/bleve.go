package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// documentAnalyzerName splits on Unicode word boundaries and lowercases.
// No stop words and no stemming: every word stays findable.
const documentAnalyzerName = "docindex_text"

// bleveBatchSize is the number of hits fetched per page while confirming matches.
const bleveBatchSize = 100

// BleveStore persists documents in a Bleve index. The full record is kept in
// a stored, unindexed "raw" field so lookups never touch the filesystem.
type BleveStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// bleveDocument is the document structure stored in Bleve.
type bleveDocument struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	Raw      string `json:"raw"`
}

// NewBleveStore opens the index at path, creating it if needed. An empty path
// creates an in-memory index. A corrupt on-disk index is cleared and recreated;
// the next reindex run repopulates it.
func NewBleveStore(path string, logger *slog.Logger) (*BleveStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("creating index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		idx, err = openOrCreateBleve(path, indexMapping, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("opening bleve index: %w", err)
	}
	return &BleveStore{index: idx, path: path}, nil
}

func openOrCreateBleve(path string, indexMapping *mapping.IndexMappingImpl, logger *slog.Logger) (bleve.Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}

	if validErr := validateIndexIntegrity(path); validErr != nil {
		logger.Warn("index corrupted, clearing", "path", path, "error", validErr)
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("clearing corrupted index %s: %w (corruption: %v)", path, err, validErr)
		}
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return bleve.New(path, indexMapping)
	}
	if err != nil && isCorruptionError(err) {
		logger.Warn("index open failed, recreating", "path", path, "error", err)
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, fmt.Errorf("clearing corrupted index %s: %w (open error: %v)", path, removeErr, err)
		}
		return bleve.New(path, indexMapping)
	}
	return idx, err
}

// validateIndexIntegrity checks index_meta.json before opening an existing index.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("reading index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if errors.Is(err, bleve.ErrorIndexMetaCorrupt) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment") ||
		strings.Contains(msg, "error opening bolt")
}

// buildIndexMapping creates the Bleve index mapping for extracted documents.
func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	err := indexMapping.AddCustomAnalyzer(documentAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodetokenizer.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("adding analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = documentAnalyzerName

	docMapping := bleve.NewDocumentMapping()

	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = documentAnalyzerName
	contentFieldMapping.Store = false // the raw field carries the text
	contentFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("content", contentFieldMapping)

	pathFieldMapping := bleve.NewKeywordFieldMapping()
	pathFieldMapping.Store = true
	pathFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)

	fileNameFieldMapping := bleve.NewTextFieldMapping()
	fileNameFieldMapping.Analyzer = documentAnalyzerName
	fileNameFieldMapping.Store = false
	fileNameFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("file_name", fileNameFieldMapping)

	statusFieldMapping := bleve.NewKeywordFieldMapping()
	statusFieldMapping.Store = false
	statusFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("status", statusFieldMapping)

	rawFieldMapping := bleve.NewTextFieldMapping()
	rawFieldMapping.Index = false
	rawFieldMapping.Store = true
	rawFieldMapping.IncludeInAll = false
	rawFieldMapping.DocValues = false
	docMapping.AddFieldMappingsAt("raw", rawFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

// Upsert indexes or replaces a document. Bleve applies the update as one batch.
func (bs *BleveStore) Upsert(ctx context.Context, doc *Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %s: %w", doc.Path, err)
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.closed {
		return unavailable("upsert "+doc.Path, errClosed)
	}
	bdoc := bleveDocument{
		Content:  doc.Content,
		Path:     doc.Path,
		FileName: doc.FileName,
		Status:   string(doc.Status),
		Raw:      string(raw),
	}
	if err := bs.index.Index(doc.Path, bdoc); err != nil {
		return unavailable("indexing "+doc.Path, err)
	}
	return nil
}

// FindByPath returns the stored record for path.
func (bs *BleveStore) FindByPath(ctx context.Context, path string) (*Document, bool, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if bs.closed {
		return nil, false, unavailable("find "+path, errClosed)
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{path}))
	req.Size = 1
	req.Fields = []string{"raw"}
	res, err := bs.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, false, unavailable("find "+path, err)
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}
	doc, err := decodeRaw(res.Hits[0].Fields)
	if err != nil {
		return nil, false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return doc, true, nil
}

// QueryContent finds candidates with one "*token*" wildcard per query token,
// boosted by an exact phrase match, then keeps only records whose content
// contains the whole term. Hits are ordered by score, then path.
func (bs *BleveStore) QueryContent(ctx context.Context, term string, limit int) ([]*Document, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if bs.closed {
		return nil, unavailable("query content", errClosed)
	}

	bleveQuery := buildContentQuery(term)
	pageSize := bleveBatchSize
	if limit > 0 && limit*2 > pageSize {
		pageSize = limit * 2
	}

	var results []*Document
	for from := 0; ; {
		req := bleve.NewSearchRequestOptions(bleveQuery, pageSize, from, false)
		req.Fields = []string{"raw"}
		req.SortBy([]string{"-_score", "path"})

		res, err := bs.index.SearchInContext(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, unavailable("query content", err)
		}
		for _, hit := range res.Hits {
			doc, err := decodeRaw(hit.Fields)
			if err != nil || !ContainsFold(doc.Content, term) {
				continue
			}
			results = append(results, doc)
			if limit > 0 && len(results) >= limit {
				return results, nil
			}
		}
		from += len(res.Hits)
		if len(res.Hits) < pageSize || uint64(from) >= res.Total {
			return results, nil
		}
	}
}

// buildContentQuery maps a literal term onto the analyzed content field.
func buildContentQuery(term string) query.Query {
	tokens := queryTokens(term)
	if len(tokens) == 0 {
		// Punctuation-only terms have no tokens; fall back to confirming every record.
		return bleve.NewMatchAllQuery()
	}

	wildcards := make([]query.Query, 0, len(tokens))
	for _, token := range tokens {
		wildcard := bleve.NewWildcardQuery("*" + token + "*")
		wildcard.SetField("content")
		wildcards = append(wildcards, wildcard)
	}
	phrase := bleve.NewMatchPhraseQuery(term)
	phrase.SetField("content")

	candidates := bleve.NewConjunctionQuery(wildcards...)
	boosted := bleve.NewDisjunctionQuery(candidates, phrase)
	// The phrase only raises the score; candidates must satisfy every wildcard.
	return bleve.NewConjunctionQuery(candidates, boosted)
}

// queryTokens lowercases term and splits it on anything that is not a letter
// or digit. Wildcard metacharacters never survive. Ideographs and kana become
// one token each, matching how the unicode tokenizer indexes them.
func queryTokens(term string) []string {
	fields := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	var tokens []string
	for _, field := range fields {
		for _, token := range splitIdeographs(field) {
			if !seen[token] {
				seen[token] = true
				tokens = append(tokens, token)
			}
		}
	}
	return tokens
}

func isIdeographic(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r)
}

// splitIdeographs cuts field into single ideograph or kana runes and the runs
// of other characters between them.
func splitIdeographs(field string) []string {
	var parts []string
	runStart := 0
	for i, r := range field {
		if !isIdeographic(r) {
			continue
		}
		if i > runStart {
			parts = append(parts, field[runStart:i])
		}
		parts = append(parts, string(r))
		runStart = i + utf8.RuneLen(r)
	}
	if runStart < len(field) {
		parts = append(parts, field[runStart:])
	}
	return parts
}

func decodeRaw(fields map[string]interface{}) (*Document, error) {
	raw, ok := fields["raw"].(string)
	if !ok {
		return nil, fmt.Errorf("stored record missing")
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Remove deletes a document from the index.
func (bs *BleveStore) Remove(ctx context.Context, path string) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.closed {
		return unavailable("remove "+path, errClosed)
	}
	if err := bs.index.Delete(path); err != nil {
		return unavailable("removing "+path, err)
	}
	return nil
}

// Paths returns every document ID in ascending order.
func (bs *BleveStore) Paths(ctx context.Context) ([]string, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if bs.closed {
		return nil, unavailable("paths", errClosed)
	}

	var paths []string
	for from := 0; ; {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), bleveBatchSize*10, from, false)
		req.Fields = []string{}
		res, err := bs.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, unavailable("paths", err)
		}
		for _, hit := range res.Hits {
			paths = append(paths, hit.ID)
		}
		from += len(res.Hits)
		if len(res.Hits) == 0 || uint64(from) >= res.Total {
			break
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Count returns the number of documents in the Bleve index.
func (bs *BleveStore) Count(ctx context.Context) (int, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	if bs.closed {
		return 0, unavailable("count", errClosed)
	}
	count, err := bs.index.DocCount()
	if err != nil {
		return 0, unavailable("count", err)
	}
	return int(count), nil
}

// Close closes the Bleve index. Later calls fail with ErrUnavailable.
func (bs *BleveStore) Close() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.closed {
		return nil
	}
	bs.closed = true
	return bs.index.Close()
}

var _ Store = (*BleveStore)(nil)
