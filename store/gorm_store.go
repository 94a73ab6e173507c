package store

import (
	"context"

	"github.com/ManojINaik/manimAnimationAgent/models"
	"gorm.io/gorm"
)

// GormStore persists statuses to the relational database.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore wraps a database handle and runs migrations for the status tables.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.Video{}, &models.VideoScene{}); err != nil {
		return nil, err
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) CreateVideo(ctx context.Context, video *models.Video) error {
	return s.DB.WithContext(ctx).Create(video).Error
}

func (s *GormStore) UpdateVideoStatus(ctx context.Context, videoID uint, status string, errMsg string) error {
	updates := map[string]interface{}{"status": status}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	return s.DB.WithContext(ctx).Model(&models.Video{}).Where("id = ?", videoID).Updates(updates).Error
}

func (s *GormStore) SetVideoOutput(ctx context.Context, videoID uint, sceneCount int, outputPath string) error {
	return s.DB.WithContext(ctx).Model(&models.Video{}).Where("id = ?", videoID).
		Updates(map[string]interface{}{"scene_count": sceneCount, "output_path": outputPath}).Error
}

func (s *GormStore) CreateScenes(ctx context.Context, videoID uint, sceneCount int) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 1; i <= sceneCount; i++ {
			scene := models.VideoScene{VideoID: videoID, SceneNumber: i, Status: models.SceneStatusPlanning}
			if err := tx.Create(&scene).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) UpdateSceneStatus(ctx context.Context, videoID uint, sceneNumber int, status string, version int, errMsg string) error {
	updates := map[string]interface{}{"status": status, "version": version}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	return s.DB.WithContext(ctx).Model(&models.VideoScene{}).
		Where("video_id = ? AND scene_number = ?", videoID, sceneNumber).Updates(updates).Error
}

func (s *GormStore) SetScenePath(ctx context.Context, videoID uint, sceneNumber int, videoPath string) error {
	return s.DB.WithContext(ctx).Model(&models.VideoScene{}).
		Where("video_id = ? AND scene_number = ?", videoID, sceneNumber).
		Update("video_path", videoPath).Error
}
