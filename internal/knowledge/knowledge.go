package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// GlobalScope marks a chunk as visible to every profile.
const GlobalScope int64 = 0

// Chunk is one embedded span of reference material bound to a profile
// scope (or GlobalScope).
type Chunk struct {
	ID        string
	ScopeID   int64
	Content   string
	Source    string
	Embedding []float32
}

// Result is one retrieval hit.
type Result struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// Embedder turns text into a vector. Implemented against the model
// provider's embedding endpoint; tests inject a fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is an in-memory similarity index over chunks. Safe for
// concurrent use.
type Index struct {
	embedder Embedder

	mu     sync.RWMutex
	chunks []Chunk
}

// NewIndex creates an empty index.
func NewIndex(embedder Embedder) *Index {
	if embedder == nil {
		panic("knowledge: embedder is required")
	}
	return &Index{embedder: embedder}
}

// Add inserts chunks into the index.
func (idx *Index) Add(chunks ...Chunk) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = append(idx.chunks, chunks...)
}

// Len reports the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Search embeds the query and returns up to topK chunks whose cosine
// similarity is at least minScore, highest first. Eligible chunks are
// those bound to scopeID or to the global scope.
func (idx *Index) Search(ctx context.Context, query string, scopeID int64, topK int, minScore float64) ([]Result, error) {
	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]Result, 0)
	for _, c := range idx.chunks {
		if c.ScopeID != scopeID && c.ScopeID != GlobalScope {
			continue
		}
		score := cosineSimilarity(queryVec, c.Embedding)
		if score < minScore {
			continue
		}
		results = append(results, Result{Content: c.Content, Source: c.Source, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
