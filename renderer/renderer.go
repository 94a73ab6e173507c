// Package renderer invokes the external Manim CLI and ffmpeg tooling. It is
// the only package that shells out.
package renderer

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// quality directory manim writes under media/videos/<module>/ at -qh.
const qualityDir = "1080p60"

// RenderError carries the renderer's stderr, which downstream repair tiers
// parse for the failure signature.
type RenderError struct {
	CodePath string
	Stderr   string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s failed: %s", filepath.Base(e.CodePath), e.Stderr)
}

// Renderer shells out to manim and ffmpeg. Binaries are resolved from PATH.
type Renderer struct {
	ManimBin   string
	FFmpegBin  string
	FFprobeBin string

	RenderTimeout time.Duration
	ProbeTimeout  time.Duration
}

// New creates a Renderer with default binary names.
func New(renderTimeout, probeTimeout time.Duration) *Renderer {
	return &Renderer{
		ManimBin:      "manim",
		FFmpegBin:     "ffmpeg",
		FFprobeBin:    "ffprobe",
		RenderTimeout: renderTimeout,
		ProbeTimeout:  probeTimeout,
	}
}

// Render runs manim at high quality on codePath, writing media under mediaDir.
// A non-zero exit returns a *RenderError holding the process stderr.
func (r *Renderer) Render(ctx context.Context, codePath, mediaDir string) error {
	if r.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.RenderTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.ManimBin, "-qh", codePath, "--media_dir", mediaDir)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &RenderError{CodePath: codePath, Stderr: "render timed out: " + stderr.String()}
		}
		return &RenderError{CodePath: codePath, Stderr: stderr.String()}
	}
	log.Printf("Successfully rendered %s", codePath)
	return nil
}

// VideoDir returns the directory manim writes scene videos to for one version
// of a scene's source file.
func VideoDir(mediaDir, prefix string, scene, version int) string {
	module := fmt.Sprintf("%s_scene%d_v%d", prefix, scene, version)
	return filepath.Join(mediaDir, "videos", module, qualityDir)
}

// FindVideo locates the rendered mp4 for one version of a scene. Returns an
// empty string when nothing was rendered.
func FindVideo(mediaDir, prefix string, scene, version int) string {
	dir := VideoDir(mediaDir, prefix, scene, version)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".mp4") {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

// LatestVersion scans the media tree for the highest version of a scene that
// produced a video. Returns -1 when the scene never rendered.
func LatestVersion(mediaDir, prefix string, scene int) int {
	entries, err := os.ReadDir(filepath.Join(mediaDir, "videos"))
	if err != nil {
		return -1
	}
	modulePrefix := fmt.Sprintf("%s_scene%d_v", prefix, scene)
	latest := -1
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), modulePrefix) {
			continue
		}
		v, err := strconv.Atoi(strings.TrimPrefix(e.Name(), modulePrefix))
		if err != nil {
			continue
		}
		if v > latest && FindVideo(mediaDir, prefix, scene, v) != "" {
			latest = v
		}
	}
	return latest
}

// FindSubtitles locates the srt file next to a scene's rendered video, if the
// scene produced narration captions.
func FindSubtitles(mediaDir, prefix string, scene, version int) string {
	dir := VideoDir(mediaDir, prefix, scene, version)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".srt") {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

// ProbeDuration returns the duration of a video in seconds via ffprobe.
func (r *Renderer) ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	if r.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ProbeTimeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, r.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(videoPath), err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", filepath.Base(videoPath), err)
	}
	return dur, nil
}

// Concat joins videos with the ffmpeg concat demuxer, copying streams without
// re-encoding. fileListPath is a concat-format file list of absolute paths.
func (r *Renderer) Concat(ctx context.Context, fileListPath, outputPath string) error {
	if r.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.RenderTimeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, r.FFmpegBin,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", fileListPath,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outputPath)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w: %s", err, stderr.String())
	}
	return nil
}

// ConcatReencode is the fallback when stream copy fails, typically because the
// scene videos have mismatched codec parameters.
func (r *Renderer) ConcatReencode(ctx context.Context, fileListPath, outputPath string) error {
	if r.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.RenderTimeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, r.FFmpegBin,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", fileListPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "fast",
		"-crf", "23",
		outputPath)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat re-encode: %w: %s", err, stderr.String())
	}
	return nil
}

// Snapshot extracts a representative frame from the scene video for the
// vision-assisted fix tier. The frame is taken one second in, skipping the
// usually-black first frame.
func (r *Renderer) Snapshot(ctx context.Context, videoPath string) (string, error) {
	if r.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.ProbeTimeout)
		defer cancel()
	}
	snapshotPath := filepath.Join(filepath.Dir(videoPath), "snapshot.png")
	cmd := exec.CommandContext(ctx, r.FFmpegBin,
		"-y",
		"-ss", "1",
		"-i", videoPath,
		"-frames:v", "1",
		snapshotPath)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("snapshot %s: %w", filepath.Base(videoPath), err)
	}
	return snapshotPath, nil
}
