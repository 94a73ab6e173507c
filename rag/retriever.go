package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ManojINaik/manimAnimationAgent/llm"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

var jsonFenceRe = regexp.MustCompile("(?s)```json(.*?)```")

// IndexRetriever generates search queries with a helper model, resolves them
// against a DocIndex, and caches both per (topic, scene, purpose) so warm runs
// are deterministic and free.
type IndexRetriever struct {
	Helper    llm.Generator
	Index     DocIndex
	OutputDir string
	K         int
	Plugins   []string
}

// NewIndexRetriever builds a retriever returning k documents per query set.
func NewIndexRetriever(helper llm.Generator, index DocIndex, outputDir string, k int) *IndexRetriever {
	if k <= 0 {
		k = 2
	}
	return &IndexRetriever{Helper: helper, Index: index, OutputDir: outputDir, K: k}
}

// SetPlugins records the plugins detected for the current run; they are
// mentioned in query-generation prompts to steer retrieval.
func (r *IndexRetriever) SetPlugins(plugins []string) {
	r.Plugins = plugins
}

// Retrieve implements Retriever. All failures degrade to nil.
func (r *IndexRetriever) Retrieve(ctx context.Context, implementation, topic string, sceneNumber int, purpose string) []Document {
	cacheDir := filepath.Join(r.OutputDir, session.FilePrefix(topic), fmt.Sprintf("scene%d", sceneNumber), "rag_cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		log.Printf("Warning: cannot create rag cache dir: %v", err)
		return nil
	}

	docsFile := filepath.Join(cacheDir, fmt.Sprintf("rag_docs_%s.json", purpose))
	if data, err := os.ReadFile(docsFile); err == nil {
		var docs []Document
		if err := json.Unmarshal(data, &docs); err == nil {
			log.Printf("Using cached RAG documents for %s scene %d (%s)", topic, sceneNumber, purpose)
			return docs
		}
	}

	queries := r.generateQueries(ctx, implementation, topic, sceneNumber, purpose, cacheDir)
	if len(queries) == 0 {
		return nil
	}

	docs, err := r.Index.Query(ctx, queries, r.K)
	if err != nil {
		log.Printf("Warning: RAG query failed for %s scene %d: %v", topic, sceneNumber, err)
		return nil
	}

	if data, err := json.Marshal(docs); err == nil {
		if err := os.WriteFile(docsFile, data, 0644); err != nil {
			log.Printf("Warning: cannot cache RAG documents: %v", err)
		}
	}
	return docs
}

// generateQueries asks the helper model for a small set of search queries and
// parses them from a ```json fenced array. A parse failure yields no queries:
// retrieval is best-effort and must not propagate.
func (r *IndexRetriever) generateQueries(ctx context.Context, implementation, topic string, sceneNumber int, purpose string, cacheDir string) []string {
	cacheFile := filepath.Join(cacheDir, fmt.Sprintf("rag_queries_%s.json", purpose))
	if data, err := os.ReadFile(cacheFile); err == nil {
		var queries []string
		if err := json.Unmarshal(data, &queries); err == nil {
			log.Printf("Using cached RAG queries for %s scene %d (%s)", topic, sceneNumber, purpose)
			return queries
		}
	}

	pluginNote := "No plugins are relevant."
	if len(r.Plugins) > 0 {
		pluginNote = "Relevant plugins: " + strings.Join(r.Plugins, ", ")
	}

	prompt := fmt.Sprintf(`You are helping retrieve Manim documentation for a scene implementation.

%s

Implementation text:
%s

Write 1-4 short search queries that would find the Manim documentation needed
to implement this. Return them as a JSON array of strings inside a
`+"```json"+` fenced block.`, pluginNote, implementation)

	response, err := r.Helper.Generate(ctx, prompt, llm.Metadata{
		GenerationName: "rag_query_generation_" + purpose,
		Tags:           []string{topic, fmt.Sprintf("scene%d", sceneNumber)},
	})
	if err != nil {
		log.Printf("Warning: RAG query generation failed: %v", err)
		return nil
	}

	queries := ParseQueryList(response)
	if len(queries) == 0 {
		log.Printf("Error when parsing RAG queries for %s: no parseable list in response", purpose)
		return nil
	}

	if data, err := json.Marshal(queries); err == nil {
		if err := os.WriteFile(cacheFile, data, 0644); err != nil {
			log.Printf("Warning: cannot cache RAG queries: %v", err)
		}
	}
	return queries
}

// ParseQueryList extracts a JSON string array from a model response. It
// accepts a ```json fenced block or a bare array; anything else parses to nil.
func ParseQueryList(response string) []string {
	payload := response
	if m := jsonFenceRe.FindStringSubmatch(response); m != nil {
		payload = m[1]
	}
	payload = strings.TrimSpace(strings.ReplaceAll(payload, "```", ""))

	var queries []string
	if err := json.Unmarshal([]byte(payload), &queries); err != nil {
		// Some models return an object with a queries field instead
		var wrapped struct {
			Queries []string `json:"queries"`
		}
		if err2 := json.Unmarshal([]byte(payload), &wrapped); err2 != nil || len(wrapped.Queries) == 0 {
			return nil
		}
		return wrapped.Queries
	}
	return queries
}
