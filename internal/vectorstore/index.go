package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/ishaan812/gitinsight/internal/constants"
	"github.com/ishaan812/gitinsight/internal/fsutil"
	"github.com/ishaan812/gitinsight/internal/logger"
)

// FileName is the index file created inside the repository's .git directory.
const FileName = "gitinsight_vectors.json"

type Entry struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Text      string    `json:"text"`
	Metadata  Metadata  `json:"metadata"`
}

type Result struct {
	Entry
	Similarity float64
}

// Index is a flat, file-backed vector index. The file maps embedding model
// names to entry lists; an Index only reads and writes its own model's list.
type Index struct {
	path  string
	model string
	log   *logger.Logger

	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int
}

// Open loads the namespace for model from path. A missing or unreadable
// file yields an empty index.
func Open(path, model string, log *logger.Logger) *Index {
	ix := &Index{
		path:  path,
		model: model,
		log:   logger.OrNop(log),
		byID:  make(map[string]int),
	}
	ix.load()
	return ix
}

func readNamespaces(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spaces map[string]json.RawMessage
	if err := json.Unmarshal(data, &spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

func (ix *Index) load() {
	spaces, err := readNamespaces(ix.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ix.log.Warn("vector index unreadable, starting empty", "path", ix.path, "error", err)
		}
		return
	}
	raw, ok := spaces[ix.model]
	if !ok {
		return
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		ix.log.Warn("vector namespace malformed, starting empty", "model", ix.model, "error", err)
		return
	}
	for _, e := range entries {
		if e.ID == "" || len(e.Embedding) == 0 {
			continue
		}
		ix.put(e)
	}
}

func (ix *Index) put(e Entry) {
	if i, ok := ix.byID[e.ID]; ok {
		ix.entries[i] = e
		return
	}
	ix.byID[e.ID] = len(ix.entries)
	ix.entries = append(ix.entries, e)
}

func (ix *Index) Model() string {
	return ix.model
}

func (ix *Index) Path() string {
	return ix.path
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

func (ix *Index) Has(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.byID[id]
	return ok
}

// IDs returns the set of indexed entry ids.
func (ix *Index) IDs() map[string]bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]bool, len(ix.byID))
	for id := range ix.byID {
		out[id] = true
	}
	return out
}

// Entries returns a copy of every entry in insertion order.
func (ix *Index) Entries() []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Entry, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Upsert inserts or replaces entries by id and persists the namespace.
func (ix *Index) Upsert(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ix.mu.Lock()
	for _, e := range entries {
		if e.ID == "" {
			ix.mu.Unlock()
			return fmt.Errorf("vector entry without id")
		}
		ix.put(e)
	}
	ix.mu.Unlock()
	return ix.Save()
}

// Search ranks entries by cosine similarity to query, best first. Ties keep
// insertion order.
func (ix *Index) Search(query []float32, topK int) []Result {
	if topK <= 0 {
		topK = constants.DefaultTopK
	}

	ix.mu.RLock()
	results := make([]Result, len(ix.entries))
	for i, e := range ix.entries {
		results[i] = Result{Entry: e, Similarity: CosineSimilarity(query, e.Embedding)}
	}
	ix.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Save rewrites the file with this namespace replaced and every other
// namespace carried over untouched.
func (ix *Index) Save() error {
	spaces, err := readNamespaces(ix.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			ix.log.Warn("overwriting unreadable vector index", "path", ix.path, "error", err)
		}
		spaces = make(map[string]json.RawMessage)
	}

	ix.mu.RLock()
	n := len(ix.entries)
	raw, err := json.Marshal(ix.entries)
	ix.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal vector entries: %w", err)
	}
	if n == 0 {
		delete(spaces, ix.model)
	} else {
		spaces[ix.model] = raw
	}

	data, err := json.Marshal(spaces)
	if err != nil {
		return fmt.Errorf("failed to marshal vector index: %w", err)
	}
	if err := fsutil.WriteFileAtomic(ix.path, data, 0644); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}

// Reset drops this model's namespace.
func (ix *Index) Reset() error {
	ix.mu.Lock()
	ix.entries = nil
	ix.byID = make(map[string]int)
	ix.mu.Unlock()
	return ix.Save()
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either has zero magnitude or the dimensions differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
