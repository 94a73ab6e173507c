package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManojINaik/manimAnimationAgent/renderer"
	"github.com/ManojINaik/manimAnimationAgent/session"
)

// fakeTooling captures concat file lists and serves canned durations keyed by
// the scene module directory name.
type fakeTooling struct {
	concatErr error
	fileLists []string
	reencodes int
	durations map[string]float64
}

func (f *fakeTooling) capture(fileListPath, outputPath string) error {
	data, err := os.ReadFile(fileListPath)
	if err != nil {
		return err
	}
	f.fileLists = append(f.fileLists, string(data))
	return os.WriteFile(outputPath, []byte("combined"), 0644)
}

func (f *fakeTooling) Concat(ctx context.Context, fileListPath, outputPath string) error {
	if f.concatErr != nil {
		return f.concatErr
	}
	return f.capture(fileListPath, outputPath)
}

func (f *fakeTooling) ConcatReencode(ctx context.Context, fileListPath, outputPath string) error {
	f.reencodes++
	return f.capture(fileListPath, outputPath)
}

func (f *fakeTooling) ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	module := filepath.Base(filepath.Dir(filepath.Dir(videoPath)))
	if d, ok := f.durations[module]; ok {
		return d, nil
	}
	return 10, nil
}

func testSession(t *testing.T) *session.Context {
	t.Helper()
	sc := session.New("right triangles", "", t.TempDir())
	if err := os.MkdirAll(sc.TopicDir(), 0755); err != nil {
		t.Fatal(err)
	}
	return sc
}

func writeOutline(t *testing.T, sc *session.Context, sceneCount int) {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= sceneCount; i++ {
		fmt.Fprintf(&sb, "<SCENE_%d>\nScene %d\n</SCENE_%d>\n", i, i, i)
	}
	if err := os.WriteFile(sc.OutlinePath(), []byte(sb.String()), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeSceneVideo(t *testing.T, sc *session.Context, scene, version int) string {
	t.Helper()
	dir := renderer.VideoDir(sc.MediaDir(), sc.Prefix(), scene, version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "SceneClass.mp4")
	if err := os.WriteFile(path, []byte("v"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSceneSRT(t *testing.T, sc *session.Context, scene, version int, content string) {
	t.Helper()
	dir := renderer.VideoDir(sc.MediaDir(), sc.Prefix(), scene, version)
	if err := os.WriteFile(filepath.Join(dir, "SceneClass.srt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestAssemblePicksLatestVersionsInSceneOrder(t *testing.T) {
	sc := testSession(t)
	writeOutline(t, sc, 3)
	writeSceneVideo(t, sc, 1, 0)
	writeSceneVideo(t, sc, 2, 0)
	writeSceneVideo(t, sc, 2, 2)
	writeSceneVideo(t, sc, 3, 1)

	tool := &fakeTooling{}
	out, err := New(tool).Assemble(context.Background(), sc)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if want := filepath.Join(sc.TopicDir(), sc.Prefix()+"_combined.mp4"); out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	if len(tool.fileLists) != 1 {
		t.Fatalf("concat invoked %d times", len(tool.fileLists))
	}
	lines := strings.Split(strings.TrimSpace(tool.fileLists[0]), "\n")
	if len(lines) != 3 {
		t.Fatalf("file list has %d entries:\n%s", len(lines), tool.fileLists[0])
	}
	for i, marker := range []string{"_scene1_v0", "_scene2_v2", "_scene3_v1"} {
		if !strings.Contains(lines[i], marker) {
			t.Errorf("entry %d = %q, want version %s", i, lines[i], marker)
		}
	}
}

func TestAssembleSkipsMissingScene(t *testing.T) {
	sc := testSession(t)
	writeOutline(t, sc, 3)
	writeSceneVideo(t, sc, 1, 0)
	writeSceneVideo(t, sc, 3, 0)

	tool := &fakeTooling{}
	if _, err := New(tool).Assemble(context.Background(), sc); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(tool.fileLists[0]), "\n")
	if len(lines) != 2 {
		t.Fatalf("file list has %d entries:\n%s", len(lines), tool.fileLists[0])
	}
	if !strings.Contains(lines[0], "_scene1_") || !strings.Contains(lines[1], "_scene3_") {
		t.Errorf("unexpected order:\n%s", tool.fileLists[0])
	}
}

func TestAssembleNoRenderedScenes(t *testing.T) {
	sc := testSession(t)
	writeOutline(t, sc, 2)

	_, err := New(&fakeTooling{}).Assemble(context.Background(), sc)
	if !errors.Is(err, ErrNoRenderedScenes) {
		t.Errorf("err = %v, want ErrNoRenderedScenes", err)
	}
}

func TestAssembleReencodeFallback(t *testing.T) {
	sc := testSession(t)
	writeOutline(t, sc, 1)
	writeSceneVideo(t, sc, 1, 0)

	tool := &fakeTooling{concatErr: errors.New("codec parameters mismatch")}
	if _, err := New(tool).Assemble(context.Background(), sc); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if tool.reencodes != 1 {
		t.Errorf("reencodes = %d, want 1", tool.reencodes)
	}
}

// A caption-less scene still advances the subtitle offset by its duration.
func TestAssembleSubtitleOffsets(t *testing.T) {
	sc := testSession(t)
	writeOutline(t, sc, 2)
	writeSceneVideo(t, sc, 1, 0)
	writeSceneVideo(t, sc, 2, 0)
	writeSceneSRT(t, sc, 2, 0, "1\n00:00:01,000 --> 00:00:02,000\nhello\n")

	tool := &fakeTooling{durations: map[string]float64{
		sc.Prefix() + "_scene1_v0": 10,
		sc.Prefix() + "_scene2_v0": 5,
	}}
	if _, err := New(tool).Assemble(context.Background(), sc); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(sc.TopicDir(), sc.Prefix()+"_combined.srt"))
	if err != nil {
		t.Fatalf("combined subtitles missing: %v", err)
	}
	if !strings.Contains(string(data), "00:00:11,000 --> 00:00:12,000") {
		t.Errorf("cue not shifted past the caption-less scene:\n%s", data)
	}
}

func TestAssembleReusesExistingOutput(t *testing.T) {
	sc := testSession(t)
	combined := filepath.Join(sc.TopicDir(), sc.Prefix()+"_combined.mp4")
	for _, path := range []string{combined, filepath.Join(sc.TopicDir(), sc.Prefix()+"_combined.srt")} {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tool := &fakeTooling{}
	out, err := New(tool).Assemble(context.Background(), sc)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out != combined {
		t.Errorf("output = %q, want %q", out, combined)
	}
	if len(tool.fileLists) != 0 {
		t.Errorf("concat ran despite existing output")
	}
}
