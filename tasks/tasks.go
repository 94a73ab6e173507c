// Package tasks defines the queue names and payloads exchanged between the
// API, the scheduler and the worker over Redis lists.
package tasks

import "encoding/json"

const (
	// QueueVideoGenerate carries requests to run the full pipeline for one
	// video: planning, per-scene generation and repair, and assembly.
	QueueVideoGenerate = "q_video_generate"
)

// GenerateTaskPayload is the payload for QueueVideoGenerate.
type GenerateTaskPayload struct {
	VideoID uint `json:"video_id"`
}

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
