package planner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ManojINaik/manimAnimationAgent/llm"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

type generatorFunc func(ctx context.Context, prompt string, meta llm.Metadata) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
	return f(ctx, prompt, meta)
}

func stagedModel(calls *int64) llm.Generator {
	return generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		atomic.AddInt64(calls, 1)
		switch {
		case meta.GenerationName == "scene_outline":
			return "<SCENE_OUTLINE><SCENE_1>intro</SCENE_1>\n<SCENE_2>proof</SCENE_2></SCENE_OUTLINE>", nil
		case strings.Contains(meta.GenerationName, "vision_storyboard"):
			return "<SCENE_VISION_STORYBOARD_PLAN>storyboard</SCENE_VISION_STORYBOARD_PLAN>", nil
		case strings.Contains(meta.GenerationName, "technical_implementation"):
			return "<SCENE_TECHNICAL_IMPLEMENTATION_PLAN>technical</SCENE_TECHNICAL_IMPLEMENTATION_PLAN>", nil
		case strings.Contains(meta.GenerationName, "animation_narration"):
			return "<SCENE_ANIMATION_NARRATION_PLAN>narration</SCENE_ANIMATION_NARRATION_PLAN>", nil
		}
		return "", nil
	})
}

func TestPlanProducesOrderedSpecs(t *testing.T) {
	var calls int64
	p := New(stagedModel(&calls), nil)
	sc := session.New("Pythagorean Theorem", "a proof", t.TempDir())

	specs, err := p.Plan(context.Background(), sc, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specs, want 2", len(specs))
	}
	for i, spec := range specs {
		if spec.Number != i+1 {
			t.Errorf("spec %d has Number %d", i, spec.Number)
		}
		if !strings.Contains(spec.Storyboard, "storyboard") {
			t.Errorf("spec %d storyboard = %q", i, spec.Storyboard)
		}
		if !strings.Contains(spec.Implementation(), "technical") {
			t.Errorf("spec %d implementation missing technical plan", i)
		}
	}
	// 1 outline + 3 stages x 2 scenes
	if calls != 7 {
		t.Errorf("cold run made %d model calls, want 7", calls)
	}
}

func TestPlanWarmCacheMakesNoModelCalls(t *testing.T) {
	var calls int64
	model := stagedModel(&calls)
	dir := t.TempDir()

	sc := session.New("Pythagorean Theorem", "a proof", dir)
	if _, err := New(model, nil).Plan(context.Background(), sc, nil); err != nil {
		t.Fatalf("cold Plan: %v", err)
	}
	cold := calls

	// Same topic, fresh run: every stage must come from cache.
	sc2 := session.New("Pythagorean Theorem", "a proof", dir)
	specs, err := New(model, nil).Plan(context.Background(), sc2, nil)
	if err != nil {
		t.Fatalf("warm Plan: %v", err)
	}
	if calls != cold {
		t.Errorf("warm run made %d extra model calls", calls-cold)
	}
	if len(specs) != 2 {
		t.Errorf("warm run produced %d specs, want 2", len(specs))
	}
}

func TestPlanNoScenes(t *testing.T) {
	model := generatorFunc(func(ctx context.Context, prompt string, meta llm.Metadata) (string, error) {
		return "<SCENE_OUTLINE>an outline with no scene markers</SCENE_OUTLINE>", nil
	})
	sc := session.New("Empty Topic", "", t.TempDir())

	_, err := New(model, nil).Plan(context.Background(), sc, nil)
	if !errors.Is(err, ErrNoScenes) {
		t.Fatalf("Plan error = %v, want ErrNoScenes", err)
	}
}

func TestPlanFailedPluginDetectionIsNonFatal(t *testing.T) {
	var calls int64
	p := New(stagedModel(&calls), nil)
	p.DetectPlugins = func(ctx context.Context, topic, description string) ([]string, error) {
		return nil, context.DeadlineExceeded
	}
	sc := session.New("Graph Theory", "", t.TempDir())

	specs, err := p.Plan(context.Background(), sc, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(specs) != 2 {
		t.Errorf("got %d specs, want 2", len(specs))
	}
}
