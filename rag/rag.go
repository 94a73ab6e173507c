// Package rag provides best-effort reference retrieval for planning and code
// generation. Retrieval is an augmentation: every failure path degrades to an
// empty result, never an error the caller has to handle.
package rag

import "context"

// Document is one retrieved reference snippet.
type Document struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// Retriever fetches reference snippets for a scene. Implementations must never
// fail loudly; a retriever that cannot retrieve returns nothing.
type Retriever interface {
	Retrieve(ctx context.Context, implementation, topic string, sceneNumber int, purpose string) []Document
}

// Noop is the retriever used when RAG is disabled or unavailable.
type Noop struct{}

func (Noop) Retrieve(ctx context.Context, implementation, topic string, sceneNumber int, purpose string) []Document {
	return nil
}

// FormatDocs renders retrieved documents as a prompt context block.
func FormatDocs(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	out := "## Reference documentation:\n"
	for _, d := range docs {
		out += "### From " + d.Source + ":\n" + d.Content + "\n\n"
	}
	return out
}
