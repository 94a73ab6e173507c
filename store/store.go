// Package store defines the status persistence boundary for the pipeline.
// The pipeline notifies it of video/scene lifecycle transitions; it never
// depends on the underlying schema.
package store

import (
	"context"

	"github.com/ManojINaik/manimAnimationAgent/models"
)

// StatusStore receives lifecycle transitions from the pipeline. Implementations
// must tolerate being called from concurrent scene goroutines.
type StatusStore interface {
	CreateVideo(ctx context.Context, video *models.Video) error
	UpdateVideoStatus(ctx context.Context, videoID uint, status string, errMsg string) error
	SetVideoOutput(ctx context.Context, videoID uint, sceneCount int, outputPath string) error

	CreateScenes(ctx context.Context, videoID uint, sceneCount int) error
	UpdateSceneStatus(ctx context.Context, videoID uint, sceneNumber int, status string, version int, errMsg string) error
	SetScenePath(ctx context.Context, videoID uint, sceneNumber int, videoPath string) error
}

// Noop discards all status updates. Used when the pipeline runs without a
// metadata store (CLI runs, tests).
type Noop struct{}

func (Noop) CreateVideo(ctx context.Context, video *models.Video) error { return nil }
func (Noop) UpdateVideoStatus(ctx context.Context, videoID uint, status string, errMsg string) error {
	return nil
}
func (Noop) SetVideoOutput(ctx context.Context, videoID uint, sceneCount int, outputPath string) error {
	return nil
}
func (Noop) CreateScenes(ctx context.Context, videoID uint, sceneCount int) error { return nil }
func (Noop) UpdateSceneStatus(ctx context.Context, videoID uint, sceneNumber int, status string, version int, errMsg string) error {
	return nil
}
func (Noop) SetScenePath(ctx context.Context, videoID uint, sceneNumber int, videoPath string) error {
	return nil
}
