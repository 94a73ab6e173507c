package models

import "time"

// Scene status values.
const (
	SceneStatusPlanning  = "planning"
	SceneStatusCoding    = "coding"
	SceneStatusRendering = "rendering"
	SceneStatusCompleted = "completed"
	SceneStatusFailed    = "failed"
)

type VideoScene struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	VideoID     uint      `gorm:"not null;index" json:"video_id"`
	SceneNumber int       `gorm:"not null" json:"scene_number"`
	Status      string    `gorm:"default:'planning'" json:"status"`
	Version     int       `json:"version"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	VideoPath   string    `json:"video_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (VideoScene) TableName() string {
	return "video_scenes"
}
