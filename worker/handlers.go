package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ManojINaik/manimAnimationAgent/models"
	"github.com/ManojINaik/manimAnimationAgent/pipeline"
	"github.com/ManojINaik/manimAnimationAgent/session"
	"github.com/ManojINaik/manimAnimationAgent/tasks"
	"gorm.io/gorm"
)

// Handlers binds queue payloads to pipeline runs.
type Handlers struct {
	DB        *gorm.DB
	Pipeline  *pipeline.Pipeline
	OutputDir string
}

// NewHandlers creates the task handlers for a worker.
func NewHandlers(db *gorm.DB, p *pipeline.Pipeline, outputDir string) *Handlers {
	return &Handlers{DB: db, Pipeline: p, OutputDir: outputDir}
}

// VideoGenerate handles one QueueVideoGenerate task: it loads the video row
// and drives the full pipeline for its topic.
func (h *Handlers) VideoGenerate(ctx context.Context, payload string) error {
	var task tasks.GenerateTaskPayload
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return fmt.Errorf("unmarshal generate task: %w", err)
	}

	var video models.Video
	if err := h.DB.First(&video, task.VideoID).Error; err != nil {
		return fmt.Errorf("video %d not found: %w", task.VideoID, err)
	}

	sc := session.New(video.Topic, video.Description, h.OutputDir)
	if video.SessionID != "" {
		// Requeued videos keep their session so warm caches are reused.
		sc.SessionID = video.SessionID
	} else if err := h.DB.Model(&video).Update("session_id", sc.SessionID).Error; err != nil {
		log.Printf("Warning: cannot record session for video %d: %v", video.ID, err)
	}

	log.Printf("Generating video %d: %q (session %s)", video.ID, video.Topic, sc.SessionID)
	if err := h.Pipeline.Run(ctx, video.ID, sc); err != nil {
		return fmt.Errorf("pipeline for video %d: %w", video.ID, err)
	}
	return nil
}
