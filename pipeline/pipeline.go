// Package pipeline drives one video from topic to combined output: plan the
// scenes, then generate, render and repair each scene under a shared
// concurrency gate, then assemble whatever rendered.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/ManojINaik/manimAnimationAgent/codegen"
	"github.com/ManojINaik/manimAnimationAgent/memory"
	"github.com/ManojINaik/manimAnimationAgent/models"
	"github.com/ManojINaik/manimAnimationAgent/planner"
	"github.com/ManojINaik/manimAnimationAgent/renderer"
	"github.com/ManojINaik/manimAnimationAgent/repair"
	"github.com/ManojINaik/manimAnimationAgent/session"
	"github.com/ManojINaik/manimAnimationAgent/store"
)

// RepairExhaustedError means a scene's repair budget ran out, or a full cycle
// of tiers produced no new code to try.
type RepairExhaustedError struct {
	Scene     int
	Attempts  int
	LastError string
}

func (e *RepairExhaustedError) Error() string {
	return fmt.Sprintf("scene %d: repair exhausted after %d attempts: %s", e.Scene, e.Attempts, e.LastError)
}

// SceneRenderer abstracts the external render tooling for tests.
type SceneRenderer interface {
	Render(ctx context.Context, codePath, mediaDir string) error
	Snapshot(ctx context.Context, videoPath string) (string, error)
}

// VideoAssembler joins rendered scenes into the final output.
type VideoAssembler interface {
	Assemble(ctx context.Context, sc *session.Context) (string, error)
}

// Pipeline wires the stages together. Store, Memory and the fixer's
// collaborators may all be no-op implementations.
type Pipeline struct {
	Planner   *planner.Planner
	Generator *codegen.Generator
	Fixer     *repair.Fixer
	Renderer  SceneRenderer
	Assembler VideoAssembler
	Memory    memory.Memory
	Store     store.StatusStore

	MaxRetries          int
	MaxSceneConcurrency int

	// OnSceneRendered is called after each scene's successful render, e.g.
	// to upload the scene video. Failures are logged, never fatal.
	OnSceneRendered func(scene int, videoPath string)
}

// Run executes the full pipeline for one video. videoID may be zero when no
// metadata store is attached.
func (p *Pipeline) Run(ctx context.Context, videoID uint, sc *session.Context) error {
	st := p.Store
	if st == nil {
		st = store.Noop{}
	}
	mem := p.Memory
	if mem == nil {
		mem = memory.Noop{}
	}

	if err := st.UpdateVideoStatus(ctx, videoID, models.VideoStatusPlanning, ""); err != nil {
		log.Printf("Warning: cannot update video %d status: %v", videoID, err)
	}

	concurrency := p.MaxSceneConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	specs, err := p.Planner.Plan(ctx, sc, sem)
	if err != nil {
		if serr := st.UpdateVideoStatus(ctx, videoID, models.VideoStatusFailed, err.Error()); serr != nil {
			log.Printf("Warning: cannot update video %d status: %v", videoID, serr)
		}
		return fmt.Errorf("plan %q: %w", sc.Topic, err)
	}

	if err := st.CreateScenes(ctx, videoID, len(specs)); err != nil {
		log.Printf("Warning: cannot create scene rows for video %d: %v", videoID, err)
	}
	if err := st.UpdateVideoStatus(ctx, videoID, models.VideoStatusRendering, ""); err != nil {
		log.Printf("Warning: cannot update video %d status: %v", videoID, err)
	}

	// One semaphore slot covers a scene's full generate-render-repair
	// lifetime, so at most cap(sem) scenes hold model or renderer resources
	// at once.
	errs := make([]error, len(specs))
	var wg sync.WaitGroup
	for i := range specs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[i] = p.runScene(ctx, st, mem, videoID, sc, &specs[i])
		}(i)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			log.Printf("Scene %d failed: %v", specs[i].Number, err)
		}
	}
	if failed > 0 {
		log.Printf("Warning: %d of %d scenes failed, assembling available scenes", failed, len(specs))
	}

	outputPath, err := p.Assembler.Assemble(ctx, sc)
	if err != nil {
		if serr := st.UpdateVideoStatus(ctx, videoID, models.VideoStatusFailed, err.Error()); serr != nil {
			log.Printf("Warning: cannot update video %d status: %v", videoID, serr)
		}
		return fmt.Errorf("assemble %q: %w", sc.Topic, err)
	}

	if err := st.SetVideoOutput(ctx, videoID, len(specs), outputPath); err != nil {
		log.Printf("Warning: cannot record output for video %d: %v", videoID, err)
	}
	if err := st.UpdateVideoStatus(ctx, videoID, models.VideoStatusCompleted, ""); err != nil {
		log.Printf("Warning: cannot update video %d status: %v", videoID, err)
	}
	log.Printf("Video for %q completed: %s", sc.Topic, outputPath)
	return nil
}

// pendingFix tracks the last code change so a verified success can be written
// back to memory. Only model-backed tiers are ever persisted.
type pendingFix struct {
	tier         memory.FixTier
	errorText    string
	originalCode string
}

func (p *Pipeline) runScene(ctx context.Context, st store.StatusStore, mem memory.Memory, videoID uint, sc *session.Context, spec *planner.SceneSpec) error {
	scene := spec.Number
	st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusCoding, 0, "")

	artifact, err := p.Generator.Generate(ctx, sc, spec)
	if err != nil {
		st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusFailed, 0, err.Error())
		return err
	}

	version := artifact.Version
	code := artifact.Source
	if err := p.writeCode(sc, scene, version, code); err != nil {
		st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusFailed, version, err.Error())
		return err
	}

	var pending *pendingFix
	attempts := 0
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	for {
		st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusRendering, version, "")
		renderErr := p.Renderer.Render(ctx, sc.CodePath(scene, version), sc.MediaDir())
		if renderErr == nil {
			p.storePendingFix(ctx, mem, sc, spec, pending, code)
			videoPath := renderer.FindVideo(sc.MediaDir(), sc.Prefix(), scene, version)
			st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusCompleted, version, "")
			st.SetScenePath(ctx, videoID, scene, videoPath)
			if p.OnSceneRendered != nil {
				p.OnSceneRendered(scene, videoPath)
			}
			return nil
		}

		errText := renderErr.Error()
		if re, ok := renderErr.(*renderer.RenderError); ok {
			errText = re.Stderr
		}
		p.appendErrorLog(sc, scene, version, attempts, errText)

		attempts++
		if attempts > maxRetries {
			exhausted := &RepairExhaustedError{Scene: scene, Attempts: attempts - 1, LastError: errText}
			st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusFailed, version, exhausted.Error())
			return exhausted
		}
		log.Printf("Scene %d render failed, repair attempt %d of %d", scene, attempts, maxRetries)

		fixed, tier, err := p.repairCycle(ctx, sc, spec, scene, version, code, errText)
		if err != nil {
			st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusFailed, version, err.Error())
			return err
		}
		if fixed == "" {
			exhausted := &RepairExhaustedError{Scene: scene, Attempts: attempts, LastError: errText}
			st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusFailed, version, exhausted.Error())
			return exhausted
		}

		pending = nil
		if tier > memory.TierAuto {
			pending = &pendingFix{tier: tier, errorText: errText, originalCode: code}
		}
		version++
		code = fixed
		if err := p.writeCode(sc, scene, version, code); err != nil {
			st.UpdateSceneStatus(ctx, videoID, scene, models.SceneStatusFailed, version, err.Error())
			return err
		}
	}
}

// repairCycle walks the tiers in order until one changes the code. Returns the
// new code and the tier that produced it, or empty code when a full cycle
// changed nothing.
func (p *Pipeline) repairCycle(ctx context.Context, sc *session.Context, spec *planner.SceneSpec, scene, version int, code, errText string) (string, memory.FixTier, error) {
	req := repair.Request{
		Session:   sc,
		Spec:      spec,
		Code:      code,
		ErrorText: errText,
	}

	for tier := memory.TierAuto; tier <= memory.TierVisual; tier++ {
		if tier == memory.TierVisual {
			req.SnapshotPath = p.snapshot(ctx, sc, scene, version)
		}
		res, err := p.Fixer.Apply(ctx, tier, req)
		if err != nil {
			return "", tier, err
		}
		if res.Changed {
			log.Printf("Scene %d: %s tier produced a fix", scene, tier)
			return res.Code, tier, nil
		}
	}
	return "", memory.TierVisual, nil
}

// snapshot extracts a frame from the current version's partial render, when
// one exists. Failed renders often leave no video at all.
func (p *Pipeline) snapshot(ctx context.Context, sc *session.Context, scene, version int) string {
	videoPath := renderer.FindVideo(sc.MediaDir(), sc.Prefix(), scene, version)
	if videoPath == "" {
		return ""
	}
	path, err := p.Renderer.Snapshot(ctx, videoPath)
	if err != nil {
		log.Printf("Warning: snapshot for scene %d failed: %v", scene, err)
		return ""
	}
	return path
}

func (p *Pipeline) storePendingFix(ctx context.Context, mem memory.Memory, sc *session.Context, spec *planner.SceneSpec, pending *pendingFix, fixedCode string) {
	if pending == nil {
		return
	}
	mem.StoreFix(ctx, memory.FixRecord{
		ErrorSnippet: pending.errorText,
		OriginalCode: pending.originalCode,
		FixedCode:    fixedCode,
		Topic:        sc.Topic,
		SceneType:    codegen.InferSceneType(spec.Implementation()),
		Tier:         pending.tier,
	})
}

func (p *Pipeline) writeCode(sc *session.Context, scene, version int, code string) error {
	if err := sc.EnsureDirs(scene); err != nil {
		return err
	}
	path := sc.CodePath(scene, version)
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return fmt.Errorf("write scene %d code v%d: %w", scene, version, err)
	}
	return nil
}

func (p *Pipeline) appendErrorLog(sc *session.Context, scene, version, attempt int, errText string) {
	f, err := os.OpenFile(sc.ErrorLogPath(scene, version), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Warning: cannot open error log for scene %d: %v", scene, err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "\nError in attempt %d:\n%s\n", attempt, errText)
}
