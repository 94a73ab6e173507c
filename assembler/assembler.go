// Package assembler joins the highest-versioned scene renders into the final
// video and merges their subtitles with shifted timings.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ManojINaik/manimAnimationAgent/planner"
	"github.com/ManojINaik/manimAnimationAgent/renderer"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

// ErrNoRenderedScenes means not a single scene produced a video, so there is
// nothing to assemble.
var ErrNoRenderedScenes = errors.New("no rendered scene videos found")

// Tooling is the ffmpeg surface assembly needs. *renderer.Renderer implements
// it; tests substitute fakes.
type Tooling interface {
	Concat(ctx context.Context, fileListPath, outputPath string) error
	ConcatReencode(ctx context.Context, fileListPath, outputPath string) error
	ProbeDuration(ctx context.Context, videoPath string) (float64, error)
}

// Assembler combines per-scene outputs. Partial runs assemble best-effort:
// missing scenes are logged and skipped.
type Assembler struct {
	Renderer Tooling
}

// New creates an Assembler over the given renderer tooling.
func New(r Tooling) *Assembler {
	return &Assembler{Renderer: r}
}

// Assemble joins every available scene video for the session's topic, in scene
// order, and writes `<prefix>_combined.mp4` plus `<prefix>_combined.srt` to
// the topic directory. Returns the combined video path.
func (a *Assembler) Assemble(ctx context.Context, sc *session.Context) (string, error) {
	outputVideo := filepath.Join(sc.TopicDir(), sc.Prefix()+"_combined.mp4")
	outputSRT := filepath.Join(sc.TopicDir(), sc.Prefix()+"_combined.srt")

	if fileExists(outputVideo) && fileExists(outputSRT) {
		log.Printf("Combined video already exists at %s, not combining again", outputVideo)
		return outputVideo, nil
	}

	outline, err := os.ReadFile(sc.OutlinePath())
	if err != nil {
		return "", fmt.Errorf("read scene outline: %w", err)
	}
	sceneCount := planner.CountScenes(string(outline))
	if sceneCount == 0 {
		return "", fmt.Errorf("outline at %s names no scenes", sc.OutlinePath())
	}

	var videos []string
	var subtitles []string // empty string when a scene has no captions
	for scene := 1; scene <= sceneCount; scene++ {
		version := renderer.LatestVersion(sc.MediaDir(), sc.Prefix(), scene)
		if version < 0 {
			log.Printf("Warning: missing video for scene %d", scene)
			continue
		}
		videos = append(videos, renderer.FindVideo(sc.MediaDir(), sc.Prefix(), scene, version))
		subtitles = append(subtitles, renderer.FindSubtitles(sc.MediaDir(), sc.Prefix(), scene, version))
	}

	if len(videos) == 0 {
		return "", ErrNoRenderedScenes
	}
	if len(videos) != sceneCount {
		log.Printf("Warning: expected %d videos but found %d, proceeding with available scenes", sceneCount, len(videos))
	}

	if err := a.concat(ctx, videos, outputVideo); err != nil {
		return "", err
	}
	log.Printf("Successfully combined %d videos into %s", len(videos), outputVideo)

	if err := a.mergeSubtitles(ctx, videos, subtitles, outputSRT); err != nil {
		// Captions are secondary output; a merge failure does not undo
		// an assembled video.
		log.Printf("Warning: subtitle merge failed: %v", err)
	}
	return outputVideo, nil
}

func (a *Assembler) concat(ctx context.Context, videos []string, outputVideo string) error {
	fileList, err := writeFileList(videos)
	if err != nil {
		return err
	}
	defer os.Remove(fileList)

	if err := a.Renderer.Concat(ctx, fileList, outputVideo); err != nil {
		log.Printf("ffmpeg concat failed, trying with re-encoding: %v", err)
		if err := a.Renderer.ConcatReencode(ctx, fileList, outputVideo); err != nil {
			return fmt.Errorf("combine videos: %w", err)
		}
	}
	return nil
}

// writeFileList writes an ffmpeg concat-demuxer file list of absolute paths.
func writeFileList(videos []string) (string, error) {
	f, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat file list: %w", err)
	}
	for _, v := range videos {
		abs, err := filepath.Abs(v)
		if err != nil {
			abs = v
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", filepath.ToSlash(abs)); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("write concat file list: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close concat file list: %w", err)
	}
	return f.Name(), nil
}

// mergeSubtitles shifts each scene's cues by the cumulative duration of the
// videos before it. Scenes without captions still advance the offset.
func (a *Assembler) mergeSubtitles(ctx context.Context, videos, subtitles []string, outputSRT string) error {
	var sceneCues [][]Cue
	var offsets []float64
	offset := 0.0
	any := false

	for i, video := range videos {
		if subtitles[i] != "" {
			data, err := os.ReadFile(subtitles[i])
			if err != nil {
				log.Printf("Warning: cannot read subtitles %s: %v", subtitles[i], err)
			} else if cues := ParseSRT(string(data)); len(cues) > 0 {
				sceneCues = append(sceneCues, cues)
				offsets = append(offsets, offset)
				any = true
			}
		}
		duration, err := a.Renderer.ProbeDuration(ctx, video)
		if err != nil {
			return fmt.Errorf("probe scene duration: %w", err)
		}
		offset += duration
	}

	if !any {
		return nil
	}
	if err := os.WriteFile(outputSRT, []byte(MergeSRT(sceneCues, offsets)), 0644); err != nil {
		return fmt.Errorf("write combined subtitles: %w", err)
	}
	log.Printf("Successfully combined subtitles into %s", outputSRT)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
