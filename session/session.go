// Package session holds per-run identity and the on-disk cache layout shared by
// the planner, generator and renderer. Paths are deterministic functions of
// (topic, scene, stage) so concurrent scenes never contend on a cache key.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var prefixRe = regexp.MustCompile(`[^a-z0-9_]+`)

// FilePrefix converts a topic into a filesystem-safe prefix.
func FilePrefix(topic string) string {
	return prefixRe.ReplaceAllString(strings.ToLower(topic), "_")
}

// Context identifies one video-generation run. It owns all scene specs and code
// artifacts produced during the run; cache files it writes may outlive it and
// are reused by later runs for the same topic.
type Context struct {
	Topic       string
	Description string
	SessionID   string
	OutputDir   string
}

// New creates a run context with a fresh session id.
func New(topic, description, outputDir string) *Context {
	return &Context{
		Topic:       topic,
		Description: description,
		SessionID:   uuid.NewString(),
		OutputDir:   outputDir,
	}
}

// Prefix returns the filesystem-safe topic prefix.
func (c *Context) Prefix() string {
	return FilePrefix(c.Topic)
}

// TopicDir is the root of all cached artifacts for this topic.
func (c *Context) TopicDir() string {
	return filepath.Join(c.OutputDir, c.Prefix())
}

// OutlinePath is the cached scene outline location.
func (c *Context) OutlinePath() string {
	return filepath.Join(c.TopicDir(), "scene_outline.txt")
}

// SceneDir is the per-scene cache root.
func (c *Context) SceneDir(scene int) string {
	return filepath.Join(c.TopicDir(), fmt.Sprintf("scene%d", scene))
}

// SubplanDir holds per-stage plan caches for a scene.
func (c *Context) SubplanDir(scene int) string {
	return filepath.Join(c.SceneDir(scene), "subplans")
}

// RAGCacheDir holds cached retrieval queries and documents for a scene.
func (c *Context) RAGCacheDir(scene int) string {
	return filepath.Join(c.SceneDir(scene), "rag_cache")
}

// CodeDir holds versioned scene source files and error logs.
func (c *Context) CodeDir(scene int) string {
	return filepath.Join(c.SceneDir(scene), "code")
}

// CodePath is the source file for one version of a scene.
func (c *Context) CodePath(scene, version int) string {
	return filepath.Join(c.CodeDir(scene), fmt.Sprintf("%s_scene%d_v%d.py", c.Prefix(), scene, version))
}

// ErrorLogPath is the render error log for one version of a scene.
func (c *Context) ErrorLogPath(scene, version int) string {
	return filepath.Join(c.CodeDir(scene), fmt.Sprintf("%s_scene%d_v%d_error.log", c.Prefix(), scene, version))
}

// MediaDir is where the renderer writes its media tree for this topic.
func (c *Context) MediaDir() string {
	return filepath.Join(c.TopicDir(), "media")
}

// EnsureDirs creates the cache directories for a scene.
func (c *Context) EnsureDirs(scene int) error {
	for _, dir := range []string{c.SubplanDir(scene), c.RAGCacheDir(scene), c.CodeDir(scene)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create cache dir %s: %w", dir, err)
		}
	}
	return nil
}
