package rag

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ManojINaik/manimAnimationAgent/llm"
)

// DocIndex answers similarity queries over a reference corpus.
type DocIndex interface {
	Query(ctx context.Context, queries []string, k int) ([]Document, error)
}

const chunkSize = 1500

// EmbeddingIndex is a DocIndex over plaintext files in a directory, embedded
// lazily on first query and ranked by cosine similarity.
type EmbeddingIndex struct {
	docsDir  string
	embedder llm.Embedder

	once     sync.Once
	buildErr error
	chunks   []chunk
}

type chunk struct {
	source  string
	content string
	vector  []float32
}

// NewEmbeddingIndex creates an index over all .txt and .md files under docsDir.
func NewEmbeddingIndex(docsDir string, embedder llm.Embedder) *EmbeddingIndex {
	return &EmbeddingIndex{docsDir: docsDir, embedder: embedder}
}

func (ix *EmbeddingIndex) build(ctx context.Context) error {
	var texts []string
	var metas []chunk

	err := filepath.WalkDir(ix.docsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".txt" && ext != ".md" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, part := range splitChunks(string(data), chunkSize) {
			texts = append(texts, part)
			metas = append(metas, chunk{source: filepath.Base(path), content: part})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk docs dir: %w", err)
	}
	if len(texts) == 0 {
		return fmt.Errorf("no documents found under %s", ix.docsDir)
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	for i := range metas {
		metas[i].vector = vectors[i]
	}
	ix.chunks = metas
	log.Printf("Indexed %d document chunks from %s", len(metas), ix.docsDir)
	return nil
}

// Query embeds the queries and returns the top-k chunks per query, deduplicated.
func (ix *EmbeddingIndex) Query(ctx context.Context, queries []string, k int) ([]Document, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	ix.once.Do(func() { ix.buildErr = ix.build(ctx) })
	if ix.buildErr != nil {
		return nil, ix.buildErr
	}

	queryVectors, err := ix.embedder.Embed(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embed queries: %w", err)
	}

	seen := make(map[string]bool)
	var docs []Document
	for _, qv := range queryVectors {
		scored := make([]Document, 0, len(ix.chunks))
		for _, c := range ix.chunks {
			scored = append(scored, Document{
				Source:  c.source,
				Content: c.content,
				Score:   CosineSimilarity(qv, c.vector),
			})
		}
		sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		for i := 0; i < k && i < len(scored); i++ {
			key := scored[i].Source + "\x00" + scored[i].Content[:min(64, len(scored[i].Content))]
			if !seen[key] {
				seen[key] = true
				docs = append(docs, scored[i])
			}
		}
	}
	return docs, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func splitChunks(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > size {
		cut := size
		// Prefer breaking on a paragraph boundary
		if idx := strings.LastIndex(text[:size], "\n\n"); idx > size/2 {
			cut = idx
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = text[cut:]
	}
	if t := strings.TrimSpace(text); t != "" {
		chunks = append(chunks, t)
	}
	return chunks
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
