package rag

import (
	"context"
	"reflect"
	"testing"

	"github.com/ManojINaik/manimAnimationAgent/llm"
)

type generatorFunc func(ctx context.Context, prompt string, meta llm.Metadata) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
	return f(ctx, prompt, meta)
}

type indexFunc func(ctx context.Context, queries []string, k int) ([]Document, error)

func (f indexFunc) Query(ctx context.Context, queries []string, k int) ([]Document, error) {
	return f(ctx, queries, k)
}

func TestParseQueryList(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"fenced array", "Here:\n```json\n[\"manim axes\", \"manim plot\"]\n```", []string{"manim axes", "manim plot"}},
		{"bare array", `["manim circle"]`, []string{"manim circle"}},
		{"wrapped object", "```json\n{\"queries\": [\"manim text\"]}\n```", []string{"manim text"}},
		{"prose", "I could not produce queries, sorry.", nil},
		{"empty", "", nil},
		{"malformed json", "```json\n[\"unterminated\n```", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseQueryList(tt.response)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseQueryList = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetrieveCachesDocuments(t *testing.T) {
	modelCalls := 0
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		modelCalls++
		return "```json\n[\"manim axes\"]\n```", nil
	})
	indexCalls := 0
	index := indexFunc(func(ctx context.Context, queries []string, k int) ([]Document, error) {
		indexCalls++
		return []Document{{Source: "axes.md", Content: "Axes usage", Score: 0.9}}, nil
	})

	r := NewIndexRetriever(model, index, t.TempDir(), 2)
	ctx := context.Background()

	first := r.Retrieve(ctx, "plot a graph", "Graphs", 1, "code")
	if len(first) != 1 || first[0].Source != "axes.md" {
		t.Fatalf("first Retrieve = %+v", first)
	}

	second := r.Retrieve(ctx, "plot a graph", "Graphs", 1, "code")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
	if modelCalls != 1 || indexCalls != 1 {
		t.Errorf("warm retrieve hit collaborators: model=%d index=%d calls", modelCalls, indexCalls)
	}
}

func TestRetrieveDegradesOnUnparseableQueries(t *testing.T) {
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		return "no json here", nil
	})
	index := indexFunc(func(ctx context.Context, queries []string, k int) ([]Document, error) {
		t.Fatal("index should not be queried without queries")
		return nil, nil
	})

	r := NewIndexRetriever(model, index, t.TempDir(), 2)
	if docs := r.Retrieve(context.Background(), "anything", "Topic", 1, "code"); docs != nil {
		t.Errorf("Retrieve = %+v, want nil", docs)
	}
}
