package main

import (
	"context"
	"log"
	"time"

	"github.com/ManojINaik/manimAnimationAgent/internal/platform"
	"github.com/ManojINaik/manimAnimationAgent/models"
	"github.com/ManojINaik/manimAnimationAgent/tasks"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// stalledAfter is how long a video may sit in queued before it is assumed
// lost (worker crash, dropped queue entry) and requeued.
const stalledAfter = 15 * time.Minute

func main() {
	db := platform.NewDBConnection()
	rdb := platform.NewRedisClient()
	ctx := context.Background()

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", func() {
		requeueStalledVideos(ctx, db, rdb)
	}); err != nil {
		log.Fatalf("Error scheduling requeue job: %v", err)
	}
	c.Start()
	defer c.Stop()

	log.Println("Scheduler started")
	select {}
}

// requeueStalledVideos pushes videos stuck in queued back onto the generation
// queue. Requeueing is safe: runs reuse the video's session, so any cached
// planning work survives.
func requeueStalledVideos(ctx context.Context, db *gorm.DB, rdb *redis.Client) {
	cutoff := time.Now().Add(-stalledAfter)

	var videos []models.Video
	if err := db.Where("status = ? AND updated_at < ?", models.VideoStatusQueued, cutoff).Find(&videos).Error; err != nil {
		log.Printf("Error querying stalled videos: %v", err)
		return
	}
	if len(videos) == 0 {
		return
	}
	log.Printf("Requeuing %d stalled videos", len(videos))

	for _, video := range videos {
		payload, err := tasks.Marshal(tasks.GenerateTaskPayload{VideoID: video.ID})
		if err != nil {
			log.Printf("Error marshalling requeue task for video %d: %v", video.ID, err)
			continue
		}
		if err := rdb.LPush(ctx, tasks.QueueVideoGenerate, payload).Err(); err != nil {
			log.Printf("Error pushing requeue task for video %d: %v", video.ID, err)
			continue
		}
		// Touch the row so the next sweep does not requeue it again.
		if err := db.Model(&models.Video{}).Where("id = ?", video.ID).
			Update("updated_at", time.Now()).Error; err != nil {
			log.Printf("Error touching video %d: %v", video.ID, err)
		}
	}
}
