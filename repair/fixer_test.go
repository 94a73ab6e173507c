package repair

import (
	"context"
	"strings"
	"testing"

	"github.com/ManojINaik/manimAnimationAgent/llm"
	"github.com/ManojINaik/manimAnimationAgent/memory"
	"github.com/ManojINaik/manimAnimationAgent/planner"
	"github.com/ManojINaik/manimAnimationAgent/search"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

type generatorFunc func(ctx context.Context, prompt string, meta llm.Metadata) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
	return f(ctx, prompt, meta)
}

type visionFunc func(ctx context.Context, prompt, imagePath string, meta llm.Metadata) (string, error)

func (f visionFunc) GenerateWithImage(ctx context.Context, prompt, imagePath string, meta llm.Metadata) (string, error) {
	return f(ctx, prompt, imagePath, meta)
}

// recordingMemory serves canned fixes and records lookups.
type recordingMemory struct {
	memory.Noop
	fixes    []memory.FixRecord
	searched int
}

func (m *recordingMemory) SearchSimilarFixes(ctx context.Context, errorMessage, codeExcerpt, topic, sceneType string, limit int) []memory.FixRecord {
	m.searched++
	return m.fixes
}

type fakeSearch struct {
	available bool
	results   []search.Result
	extracted map[string]string
	queries   []string
}

func (s *fakeSearch) Available() bool { return s.available }
func (s *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, nil
}
func (s *fakeSearch) Extract(ctx context.Context, urls []string) (map[string]string, error) {
	return s.extracted, nil
}

func testRequest(code, errText string) Request {
	return Request{
		Session:   &session.Context{Topic: "Pythagorean theorem", SessionID: "s-1"},
		Spec:      &planner.SceneSpec{Number: 1, Storyboard: "draw a triangle"},
		Code:      code,
		ErrorText: errText,
	}
}

func TestApplyTierAuto(t *testing.T) {
	f := New(nil, nil, nil, nil, nil)
	req := testRequest("self.play(Surround(sq))", "NameError: name 'Surround' is not defined")

	res, err := f.Apply(context.Background(), memory.TierAuto, req)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !res.Changed || res.Tier != memory.TierAuto {
		t.Errorf("Changed=%v Tier=%v", res.Changed, res.Tier)
	}
	if !strings.Contains(res.Code, "Circumscribe(sq)") {
		t.Errorf("rule rewrite missing: %q", res.Code)
	}
}

func TestApplyTierAutoUnchanged(t *testing.T) {
	f := New(nil, nil, nil, nil, nil)
	req := testRequest("from manim import *", "SomeError: nothing any rule knows")

	res, err := f.Apply(context.Background(), memory.TierAuto, req)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Changed {
		t.Error("no rule matched, yet the tier reports a change")
	}
	if res.Code != req.Code {
		t.Errorf("code modified: %q", res.Code)
	}
}

func TestMemoryFixFeedsRecordsToModel(t *testing.T) {
	mem := &recordingMemory{fixes: []memory.FixRecord{{
		ErrorSnippet: "TypeError: Angle() takes 2 positional arguments",
		FixedCode:    "angle = Angle(line1, line2, radius=0.5)",
	}}}

	var seenPrompt string
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		seenPrompt = prompt
		return "```python\nfixed = True\n```", nil
	})

	f := New(model, nil, mem, nil, nil)
	req := testRequest("broken = True", "TypeError: Angle() takes 2 positional arguments but 3 were given")

	res, err := f.Apply(context.Background(), memory.TierMemory, req)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if mem.searched != 1 {
		t.Errorf("memory searched %d times, want 1", mem.searched)
	}
	if !strings.Contains(seenPrompt, "Angle(line1, line2, radius=0.5)") {
		t.Errorf("remembered fix not in the prompt")
	}
	if res.Code != "fixed = True" || !res.Changed || res.Tier != memory.TierMemory {
		t.Errorf("result = %+v", res)
	}
}

func TestSearchFixUnavailableUsesFallbackSuggestions(t *testing.T) {
	var prompts []string
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		prompts = append(prompts, prompt)
		if meta.GenerationName == "search_query" {
			return "manim Angle TypeError", nil
		}
		return "```python\nfixed = True\n```", nil
	})

	f := New(model, nil, nil, search.Unavailable{}, nil)
	req := testRequest("broken = True", "TypeError: Angle() takes 2 positional arguments")

	res, err := f.Apply(context.Background(), memory.TierSearch, req)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Code != "fixed = True" || res.Tier != memory.TierSearch {
		t.Errorf("result = %+v", res)
	}
	fixPrompt := prompts[len(prompts)-1]
	if !strings.Contains(fixPrompt, "search service unavailable") {
		t.Errorf("fix prompt should carry the fallback suggestions:\n%s", fixPrompt)
	}
	if !strings.Contains(fixPrompt, "docs.manim.community") {
		t.Errorf("fallback suggestions missing from prompt:\n%s", fixPrompt)
	}
}

func TestSearchFixInjectsExtractedContent(t *testing.T) {
	sc := &fakeSearch{
		available: true,
		results: []search.Result{{
			Title:      "Angle",
			URL:        "https://docs.manim.community/angle",
			Snippet:    "Angle reference",
			SourceType: "official_docs",
		}},
		extracted: map[string]string{
			"https://docs.manim.community/angle": "Angle requires two Line objects.",
		},
	}

	var fixPrompt string
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		if meta.GenerationName == "search_query" {
			return "manim Angle TypeError", nil
		}
		fixPrompt = prompt
		return "```python\nfixed = True\n```", nil
	})

	f := New(model, nil, nil, sc, nil)
	req := testRequest("broken = True", "TypeError: Angle() takes 2 positional arguments")

	if _, err := f.Apply(context.Background(), memory.TierSearch, req); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(sc.queries) != 1 || sc.queries[0] != "manim Angle TypeError" {
		t.Errorf("queries = %v", sc.queries)
	}
	if !strings.Contains(fixPrompt, "Angle requires two Line objects.") {
		t.Errorf("extracted page content missing from prompt:\n%s", fixPrompt)
	}
}

func TestBuildQueryFallsBackOnJunk(t *testing.T) {
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		return "here is a query about animation errors", nil
	})
	f := New(model, nil, nil, nil, nil)
	req := testRequest("broken = True", "TypeError: Angle() takes 2 positional arguments")

	query := f.buildQuery(context.Background(), req)
	if !strings.Contains(query, "manim") {
		t.Errorf("fallback query must name the library: %q", query)
	}
	if !strings.Contains(query, "site:docs.manim.community") {
		t.Errorf("fallback query should target the docs: %q", query)
	}
}

func TestVisualFixWithoutVisionIsNoop(t *testing.T) {
	f := New(nil, nil, nil, nil, nil)
	req := testRequest("code = 1", "some error")
	req.SnapshotPath = "/tmp/frame.png"

	res, err := f.Apply(context.Background(), memory.TierVisual, req)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Changed || res.Code != "code = 1" {
		t.Errorf("result = %+v", res)
	}
}

func TestVisualFixWithoutSnapshotIsNoop(t *testing.T) {
	vision := visionFunc(func(ctx context.Context, prompt, imagePath string, meta llm.Metadata) (string, error) {
		t.Fatal("vision model called without a snapshot")
		return "", nil
	})
	f := New(nil, vision, nil, nil, nil)

	res, err := f.Apply(context.Background(), memory.TierVisual, testRequest("code = 1", "err"))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Changed {
		t.Errorf("result = %+v", res)
	}
}

func TestVisualFixRewritesFromFrame(t *testing.T) {
	vision := visionFunc(func(ctx context.Context, prompt, imagePath string, meta llm.Metadata) (string, error) {
		if imagePath != "/tmp/frame.png" {
			t.Errorf("imagePath = %q", imagePath)
		}
		return "```python\ntext.scale(0.5)\n```", nil
	})
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		t.Fatal("text model should not be needed for a fenced response")
		return "", nil
	})

	f := New(model, vision, nil, nil, nil)
	req := testRequest("text.scale(2)", "err")
	req.SnapshotPath = "/tmp/frame.png"

	res, err := f.Apply(context.Background(), memory.TierVisual, req)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Code != "text.scale(0.5)" || !res.Changed || res.Tier != memory.TierVisual {
		t.Errorf("result = %+v", res)
	}
}
