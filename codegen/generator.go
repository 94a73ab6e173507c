// Package codegen turns a scene specification into renderable Manim source.
package codegen

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ManojINaik/manimAnimationAgent/llm"
	"github.com/ManojINaik/manimAnimationAgent/memory"
	"github.com/ManojINaik/manimAnimationAgent/planner"
	"github.com/ManojINaik/manimAnimationAgent/rag"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

// CodeArtifact is one version of a scene's source. Versions are append-only;
// the highest version is authoritative for assembly.
type CodeArtifact struct {
	SceneNumber int
	Version     int
	Source      string
}

// Generator produces the initial CodeArtifact for a scene.
type Generator struct {
	Model     llm.Generator
	Retriever rag.Retriever
	Memory    memory.Memory

	ExamplesDir          string
	UseContextLearning   bool
	MaxExtractionRetries int
}

// New creates a Generator. retriever and mem may be the no-op implementations.
func New(model llm.Generator, retriever rag.Retriever, mem memory.Memory) *Generator {
	if retriever == nil {
		retriever = rag.Noop{}
	}
	if mem == nil {
		mem = memory.Noop{}
	}
	return &Generator{
		Model:                model,
		Retriever:            retriever,
		Memory:               mem,
		MaxExtractionRetries: 10,
	}
}

// Generate builds the generation prompt for a scene, calls the model, and
// extracts the code block. Prompt composition order: base implementation
// prompt, few-shot examples, preventive examples from memory, retrieved
// snippets.
func (g *Generator) Generate(ctx context.Context, sc *session.Context, spec *planner.SceneSpec) (*CodeArtifact, error) {
	implementation := spec.Implementation()
	sceneType := InferSceneType(implementation)

	prompt := promptCodeGeneration(sc.Topic, sc.Description, spec)

	if g.UseContextLearning {
		if examples := g.loadCodeExamples(); examples != "" {
			prompt += "\n\n## Example Manim code for reference:\n" + examples
		}
	}

	task := implementation
	if len(task) > 200 {
		task = task[:200]
	}
	if examples := g.Memory.PreventiveExamples(ctx, task, sc.Topic, sceneType, 3); len(examples) > 0 {
		prompt += "\n\n" + formatPreventiveExamples(examples)
		log.Printf("Added %d preventive examples from memory for scene %d", len(examples), spec.Number)
	}

	if docs := g.Retriever.Retrieve(ctx, implementation, sc.Topic, spec.Number, "code"); len(docs) > 0 {
		prompt += "\n\n" + rag.FormatDocs(docs)
	}

	meta := llm.Metadata{
		GenerationName: "code_generation",
		SessionID:      sc.SessionID,
		Tags:           []string{sc.Topic, fmt.Sprintf("scene%d", spec.Number)},
	}
	response, err := g.Model.Generate(ctx, prompt, meta)
	if err != nil {
		return nil, fmt.Errorf("code generation for scene %d: %w", spec.Number, err)
	}

	code, err := ExtractCode(ctx, g.Model, response, g.MaxExtractionRetries, meta)
	if err != nil {
		return nil, fmt.Errorf("scene %d: %w", spec.Number, err)
	}

	// Generation patterns are recorded immediately: there is no render outcome
	// here, so the store-on-success rule for fixes does not apply.
	g.Memory.StoreSuccessfulGeneration(ctx, memory.GenerationRecord{
		Task:      fmt.Sprintf("Scene %d: %s", spec.Number, firstLine(spec.Outline)),
		Code:      code,
		Topic:     sc.Topic,
		SceneType: sceneType,
	})

	return &CodeArtifact{SceneNumber: spec.Number, Version: 0, Source: code}, nil
}

func (g *Generator) loadCodeExamples() string {
	if g.ExamplesDir == "" {
		return ""
	}
	matches, err := filepath.Glob(filepath.Join(g.ExamplesDir, "*.py"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	var out string
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		out += fmt.Sprintf("# Example from %s\n%s\n", filepath.Base(m), data)
	}
	return out
}

func formatPreventiveExamples(examples []memory.Example) string {
	out := "# Previous successful patterns to avoid common errors:\n"
	for i, ex := range examples {
		problem := ex.Problem
		if len(problem) > 100 {
			problem = problem[:100] + "..."
		}
		solution := ex.Solution
		if len(solution) > 300 {
			solution = solution[:300] + "..."
		}
		out += fmt.Sprintf("# Example %d: Avoided error '%s'\n# Successful approach:\n%s\n\n", i+1, problem, solution)
	}
	return out
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
