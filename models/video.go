package models

import (
	"time"
)

// Video status values, in lifecycle order.
const (
	VideoStatusQueued    = "queued"
	VideoStatusPlanning  = "planning"
	VideoStatusRendering = "rendering"
	VideoStatusCompleted = "completed"
	VideoStatusFailed    = "failed"
)

type Video struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Topic       string    `gorm:"size:255;not null" json:"topic"`
	Description string    `gorm:"type:text" json:"description"`
	SessionID   string    `gorm:"size:64;index" json:"session_id"`
	Status      string    `gorm:"default:'queued'" json:"status"`
	Error       string    `gorm:"type:text" json:"error,omitempty"`
	SceneCount  int       `json:"scene_count"`
	OutputPath  string    `json:"output_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Video) TableName() string {
	return "videos"
}
