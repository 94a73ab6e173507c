// Package repair turns a failed render into a new candidate code version. Four
// tiers escalate in cost: deterministic rewrites, memory-assisted model fixes,
// web-search-assisted model fixes, and vision-assisted model fixes.
package repair

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ManojINaik/manimAnimationAgent/codegen"
	"github.com/ManojINaik/manimAnimationAgent/llm"
	"github.com/ManojINaik/manimAnimationAgent/memory"
	"github.com/ManojINaik/manimAnimationAgent/planner"
	"github.com/ManojINaik/manimAnimationAgent/rag"
	"github.com/ManojINaik/manimAnimationAgent/search"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

// extractBudget caps how much of each extracted page is injected into a fix
// prompt.
const extractBudget = 2000

// Request carries everything a fix tier needs about one failed render.
type Request struct {
	Session   *session.Context
	Spec      *planner.SceneSpec
	Code      string
	ErrorText string
	// SnapshotPath is a frame of the latest broken render. Only the
	// vision tier reads it; empty means no frame could be extracted.
	SnapshotPath string
}

// Result is the outcome of one tier's attempt.
type Result struct {
	Code    string
	Changed bool
	Tier    memory.FixTier
}

// Fixer applies fix tiers. Memory, Search and Retriever may be the no-op
// implementations; Vision may be nil, which disables the vision tier.
type Fixer struct {
	Model     llm.Generator
	Vision    llm.VisionGenerator
	Memory    memory.Memory
	Search    search.Client
	Retriever rag.Retriever

	MaxExtractionRetries int
}

// New creates a Fixer with defaults matching the generator's.
func New(model llm.Generator, vision llm.VisionGenerator, mem memory.Memory, sc search.Client, retriever rag.Retriever) *Fixer {
	if mem == nil {
		mem = memory.Noop{}
	}
	if sc == nil {
		sc = search.Unavailable{}
	}
	if retriever == nil {
		retriever = rag.Noop{}
	}
	return &Fixer{
		Model:                model,
		Vision:               vision,
		Memory:               mem,
		Search:               sc,
		Retriever:            retriever,
		MaxExtractionRetries: 10,
	}
}

// Apply runs one tier against the request. Changed reports whether the tier
// produced different code; an unchanged result means the caller should
// escalate to the next tier.
func (f *Fixer) Apply(ctx context.Context, tier memory.FixTier, req Request) (Result, error) {
	switch tier {
	case memory.TierAuto:
		return f.autoFix(req), nil
	case memory.TierMemory:
		return f.memoryFix(ctx, req)
	case memory.TierSearch:
		return f.searchFix(ctx, req)
	case memory.TierVisual:
		return f.visualFix(ctx, req)
	default:
		return Result{}, fmt.Errorf("unknown fix tier %d", tier)
	}
}

func (f *Fixer) autoFix(req Request) Result {
	fixed, fired := applyRules(req.Code, req.ErrorText)
	if len(fired) > 0 {
		log.Printf("Scene %d: auto-fix rules applied: %s", req.Spec.Number, strings.Join(fired, ", "))
	}
	return Result{Code: fixed, Changed: fixed != req.Code, Tier: memory.TierAuto}
}

func (f *Fixer) memoryFix(ctx context.Context, req Request) (Result, error) {
	sceneType := codegen.InferSceneType(req.Spec.Implementation())

	codeContext := req.Code
	if len(codeContext) > 300 {
		codeContext = codeContext[:300]
	}
	fixes := f.Memory.SearchSimilarFixes(ctx, req.ErrorText, codeContext, req.Session.Topic, sceneType, 3)

	var sb strings.Builder
	if len(fixes) > 0 {
		log.Printf("Scene %d: found %d similar error patterns in memory", req.Spec.Number, len(fixes))
		sb.WriteString("# Similar errors fixed previously:\n")
		for i, fix := range fixes {
			fmt.Fprintf(&sb, "# Fix %d: error %q was resolved with:\n%s\n", i+1, fix.ErrorSnippet, fix.FixedCode)
		}
	}
	if docs := f.Retriever.Retrieve(ctx, req.ErrorText, req.Session.Topic, req.Spec.Number, "fix"); len(docs) > 0 {
		sb.WriteString("\n" + rag.FormatDocs(docs))
	}

	return f.modelFix(ctx, req, sb.String(), "fix_error", memory.TierMemory)
}

func (f *Fixer) searchFix(ctx context.Context, req Request) (Result, error) {
	query := f.buildQuery(ctx, req)

	var sb strings.Builder
	if !f.Search.Available() {
		sb.WriteString("# Suggestions (search service unavailable):\n")
		for _, s := range search.FallbackSuggestions(query) {
			sb.WriteString("# " + s + "\n")
		}
		return f.modelFix(ctx, req, sb.String(), "fix_error_search", memory.TierSearch)
	}

	results, err := f.Search.Search(ctx, query, 5)
	if err != nil || len(results) == 0 {
		if err != nil {
			log.Printf("Scene %d: search failed: %v", req.Spec.Number, err)
		}
		sb.WriteString("# Suggestions:\n")
		for _, s := range search.FallbackSuggestions(query) {
			sb.WriteString("# " + s + "\n")
		}
		return f.modelFix(ctx, req, sb.String(), "fix_error_search", memory.TierSearch)
	}

	// Extract full page content for the top prioritized results.
	top := results
	if len(top) > 3 {
		top = top[:3]
	}
	urls := make([]string, len(top))
	for i, r := range top {
		urls[i] = r.URL
	}
	extracted, err := f.Search.Extract(ctx, urls)
	if err != nil {
		log.Printf("Scene %d: content extraction failed: %v", req.Spec.Number, err)
	}

	sb.WriteString("# Relevant documentation and discussions:\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "## %s (%s)\n%s\n", r.Title, r.URL, r.Snippet)
		if content, ok := extracted[r.URL]; ok && content != "" {
			if len(content) > extractBudget {
				content = content[:extractBudget]
			}
			sb.WriteString(content + "\n")
		}
	}

	return f.modelFix(ctx, req, sb.String(), "fix_error_search", memory.TierSearch)
}

// buildQuery asks the model for a search query and falls back to the
// deterministic builder when the model fails or returns junk.
func (f *Fixer) buildQuery(ctx context.Context, req Request) string {
	meta := f.meta(req, "search_query")
	resp, err := f.Model.Generate(ctx, promptSearchQuery(req.ErrorText, req.Code), meta)
	if err == nil {
		query := strings.TrimSpace(strings.Trim(strings.TrimSpace(resp), "\"`"))
		if query != "" && strings.Contains(strings.ToLower(query), "manim") {
			return search.ClampQuery(query)
		}
	}
	return search.BuildFallbackQuery(memory.ErrorType(req.ErrorText), req.ErrorText)
}

func (f *Fixer) visualFix(ctx context.Context, req Request) (Result, error) {
	if f.Vision == nil || req.SnapshotPath == "" {
		return Result{Code: req.Code, Changed: false, Tier: memory.TierVisual}, nil
	}

	response, err := f.Vision.GenerateWithImage(ctx, promptVisualFix(req.Code), req.SnapshotPath, f.meta(req, "visual_fix"))
	if err != nil {
		return Result{}, fmt.Errorf("visual fix for scene %d: %w", req.Spec.Number, err)
	}
	fixed, err := codegen.ExtractCode(ctx, f.Model, response, f.MaxExtractionRetries, f.meta(req, "visual_fix"))
	if err != nil {
		return Result{}, fmt.Errorf("scene %d: %w", req.Spec.Number, err)
	}
	return Result{Code: fixed, Changed: fixed != req.Code, Tier: memory.TierVisual}, nil
}

func (f *Fixer) modelFix(ctx context.Context, req Request, extra, name string, tier memory.FixTier) (Result, error) {
	meta := f.meta(req, name)
	response, err := f.Model.Generate(ctx, promptFixError(req.ErrorText, req.Code, extra), meta)
	if err != nil {
		return Result{}, fmt.Errorf("%s for scene %d: %w", name, req.Spec.Number, err)
	}
	fixed, err := codegen.ExtractCode(ctx, f.Model, response, f.MaxExtractionRetries, meta)
	if err != nil {
		return Result{}, fmt.Errorf("scene %d: %w", req.Spec.Number, err)
	}
	return Result{Code: fixed, Changed: fixed != req.Code, Tier: tier}, nil
}

func (f *Fixer) meta(req Request, name string) llm.Metadata {
	return llm.Metadata{
		GenerationName: name,
		SessionID:      req.Session.SessionID,
		Tags:           []string{req.Session.Topic, fmt.Sprintf("scene%d", req.Spec.Number)},
	}
}
