// Package planner decomposes a topic into ordered scene specifications through
// staged model calls: one outline for the topic, then a storyboard, technical
// plan and narration plan per scene. Every stage result is cached on disk and
// a warm cache short-circuits the model call entirely.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ManojINaik/manimAnimationAgent/llm"
	"github.com/ManojINaik/manimAnimationAgent/rag"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

// ErrNoScenes reports an outline with no scene markers. Planning cannot
// proceed: this is fatal for the run.
var ErrNoScenes = errors.New("no scenes found in outline")

// SceneSpec is the full plan for one scene. Immutable once written to its
// stage caches; a new run supersedes it rather than mutating it.
type SceneSpec struct {
	Number     int
	Outline    string
	Storyboard string
	Technical  string
	Narration  string
	Plugins    []string
}

// Implementation returns the combined implementation text fed to the code
// generator.
func (s *SceneSpec) Implementation() string {
	return s.Storyboard + "\n\n" + s.Technical + "\n\n" + s.Narration
}

// Planner generates scene specifications for a topic.
type Planner struct {
	Model     llm.Generator
	Retriever rag.Retriever

	// DetectPlugins is optional; when set it is called once per run before the
	// outline is generated.
	DetectPlugins func(ctx context.Context, topic, description string) ([]string, error)

	ExamplesDir        string
	UseContextLearning bool
}

// New creates a Planner. retriever may be rag.Noop{}.
func New(model llm.Generator, retriever rag.Retriever) *Planner {
	if retriever == nil {
		retriever = rag.Noop{}
	}
	return &Planner{Model: model, Retriever: retriever}
}

// Plan produces the ordered scene specs for a topic. sem bounds how many
// scenes are planned concurrently; pass nil for unbounded.
func (p *Planner) Plan(ctx context.Context, sc *session.Context, sem chan struct{}) ([]SceneSpec, error) {
	plugins := p.detectPlugins(ctx, sc)

	outline, err := p.GenerateOutline(ctx, sc)
	if err != nil {
		return nil, err
	}

	sceneCount := CountScenes(outline)
	if sceneCount == 0 {
		return nil, fmt.Errorf("planning %q: %w", sc.Topic, ErrNoScenes)
	}
	log.Printf("Outline for %q has %d scenes", sc.Topic, sceneCount)

	specs := make([]SceneSpec, sceneCount)
	errs := make([]error, sceneCount)
	var wg sync.WaitGroup
	for i := 1; i <= sceneCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			spec, err := p.planScene(ctx, sc, outline, i, plugins)
			if err != nil {
				errs[i-1] = err
				return
			}
			specs[i-1] = *spec
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func (p *Planner) detectPlugins(ctx context.Context, sc *session.Context) []string {
	if p.DetectPlugins == nil {
		return nil
	}
	plugins, err := p.DetectPlugins(ctx, sc.Topic, sc.Description)
	if err != nil {
		log.Printf("Warning: plugin detection failed: %v", err)
		return nil
	}
	if len(plugins) > 0 {
		log.Printf("Detected relevant plugins: %v", plugins)
	}
	// Retrievers that scope queries by plugin pick the detection up here.
	if ps, ok := p.Retriever.(interface{ SetPlugins([]string) }); ok {
		ps.SetPlugins(plugins)
	}
	return plugins
}

// GenerateOutline returns the scene outline for the topic, from cache when
// available.
func (p *Planner) GenerateOutline(ctx context.Context, sc *session.Context) (string, error) {
	outlinePath := sc.OutlinePath()
	if data, err := os.ReadFile(outlinePath); err == nil {
		log.Printf("Using cached scene outline for %q", sc.Topic)
		return string(data), nil
	}

	prompt := promptSceneOutline(sc.Topic, sc.Description)
	if examples := p.loadExamples("scene_plan"); examples != "" {
		prompt += "\n\nHere are some example scene plans for reference:\n" + examples
	}

	response, err := p.Model.Generate(ctx, prompt, llm.Metadata{
		GenerationName: "scene_outline",
		SessionID:      sc.SessionID,
		Tags:           []string{sc.Topic, "scene-outline"},
	})
	if err != nil {
		return "", fmt.Errorf("generate scene outline: %w", err)
	}

	outline := extractTag(response, "SCENE_OUTLINE")

	if err := os.MkdirAll(sc.TopicDir(), 0755); err != nil {
		return "", fmt.Errorf("create topic dir: %w", err)
	}
	if err := os.WriteFile(outlinePath, []byte(outline), 0644); err != nil {
		return "", fmt.Errorf("cache scene outline: %w", err)
	}
	log.Printf("Scene outline saved to %s", outlinePath)
	return outline, nil
}

func (p *Planner) planScene(ctx context.Context, sc *session.Context, outline string, i int, plugins []string) (*SceneSpec, error) {
	if err := sc.EnsureDirs(i); err != nil {
		return nil, err
	}
	sceneOutline := sceneSection(outline, i)
	if sceneOutline == "" {
		log.Printf("Warning: outline has no <SCENE_%d> block, using full outline", i)
		sceneOutline = outline
	}

	storyboard, err := p.runStage(ctx, sc, i, "vision_storyboard", "SCENE_VISION_STORYBOARD_PLAN",
		func() string {
			prompt := promptVisionStoryboard(i, sc.Topic, sc.Description, sceneOutline, plugins)
			if examples := p.loadExamples("scene_vision_storyboard"); examples != "" {
				prompt += "\n\nHere are some example storyboards:\n" + examples
			}
			if docs := p.Retriever.Retrieve(ctx, sceneOutline, sc.Topic, i, "storyboard"); len(docs) > 0 {
				prompt += "\n\n" + rag.FormatDocs(docs)
			}
			return prompt
		})
	if err != nil {
		return nil, err
	}

	technical, err := p.runStage(ctx, sc, i, "technical_implementation", "SCENE_TECHNICAL_IMPLEMENTATION_PLAN",
		func() string {
			prompt := promptTechnicalImplementation(i, sc.Topic, sc.Description, sceneOutline, storyboard, plugins)
			if examples := p.loadExamples("technical_implementation"); examples != "" {
				prompt += "\n\nHere are some example technical implementations:\n" + examples
			}
			if docs := p.Retriever.Retrieve(ctx, storyboard, sc.Topic, i, "technical"); len(docs) > 0 {
				prompt += "\n\n" + rag.FormatDocs(docs)
			}
			return prompt
		})
	if err != nil {
		return nil, err
	}

	narration, err := p.runStage(ctx, sc, i, "animation_narration", "SCENE_ANIMATION_NARRATION_PLAN",
		func() string {
			prompt := promptAnimationNarration(i, sc.Topic, sc.Description, sceneOutline, storyboard, technical, plugins)
			if examples := p.loadExamples("scene_animation_narration"); examples != "" {
				prompt += "\n\nHere are some example animation and narration plans:\n" + examples
			}
			if docs := p.Retriever.Retrieve(ctx, storyboard, sc.Topic, i, "narration"); len(docs) > 0 {
				prompt += "\n\n" + rag.FormatDocs(docs)
			}
			return prompt
		})
	if err != nil {
		return nil, err
	}

	spec := &SceneSpec{
		Number:     i,
		Outline:    sceneOutline,
		Storyboard: storyboard,
		Technical:  technical,
		Narration:  narration,
		Plugins:    plugins,
	}

	// Combined plan is written for operators; the stage caches are authoritative.
	planPath := filepath.Join(sc.SceneDir(i), "implementation_plan.txt")
	content := fmt.Sprintf("# Scene %d Implementation Plan\n\n%s", i, spec.Implementation())
	if err := os.WriteFile(planPath, []byte(content), 0644); err != nil {
		log.Printf("Warning: cannot write implementation plan for scene %d: %v", i, err)
	}
	return spec, nil
}

// runStage executes one planning stage with its cache. buildPrompt is only
// invoked on a cache miss, so warm runs make no retrieval or model calls.
func (p *Planner) runStage(ctx context.Context, sc *session.Context, scene int, stage, tag string, buildPrompt func() string) (string, error) {
	cachePath := filepath.Join(sc.SubplanDir(scene), fmt.Sprintf("%s_scene%d_%s_plan.txt", sc.Prefix(), scene, stage))
	if data, err := os.ReadFile(cachePath); err == nil {
		log.Printf("Using cached %s plan for scene %d", stage, scene)
		return string(data), nil
	}

	response, err := p.Model.Generate(ctx, buildPrompt(), llm.Metadata{
		GenerationName: "scene_" + stage,
		SessionID:      sc.SessionID,
		Tags:           []string{sc.Topic, fmt.Sprintf("scene%d", scene)},
	})
	if err != nil {
		return "", fmt.Errorf("scene %d %s: %w", scene, stage, err)
	}

	plan := extractTag(response, tag)
	if err := os.WriteFile(cachePath, []byte(plan), 0644); err != nil {
		return "", fmt.Errorf("cache scene %d %s plan: %w", scene, stage, err)
	}
	log.Printf("Scene %d %s plan saved to %s", scene, stage, cachePath)
	return plan, nil
}

// loadExamples loads few-shot examples for a stage from the example corpus.
func (p *Planner) loadExamples(stage string) string {
	if !p.UseContextLearning || p.ExamplesDir == "" {
		return ""
	}
	pattern := filepath.Join(p.ExamplesDir, "*_"+stage+".txt")
	matches, err := filepath.Glob(pattern)
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

// PluginResponse is the structured output shape for plugin detection.
type PluginResponse struct {
	Plugins []string `json:"plugins" jsonschema_description:"Names of Manim plugins relevant to this topic, empty if none apply"`
}

var pluginResponseSchema = llm.GenerateSchema[PluginResponse]()

// NewLLMPluginDetector returns a DetectPlugins implementation backed by a
// structured model call.
func NewLLMPluginDetector(client *llm.Client) func(ctx context.Context, topic, description string) ([]string, error) {
	return func(ctx context.Context, topic, description string) ([]string, error) {
		resp, err := llm.GenerateStructured[PluginResponse](ctx, client,
			promptDetectPlugins(topic, description), "relevant_plugins", pluginResponseSchema,
			llm.Metadata{GenerationName: "plugin_detection", Tags: []string{topic}})
		if err != nil {
			return nil, err
		}
		return resp.Plugins, nil
	}
}
