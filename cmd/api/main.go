package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/ManojINaik/manimAnimationAgent/auth"
	"github.com/ManojINaik/manimAnimationAgent/config"
	"github.com/ManojINaik/manimAnimationAgent/internal/platform"
	"github.com/ManojINaik/manimAnimationAgent/memory"
	"github.com/ManojINaik/manimAnimationAgent/models"
	"github.com/ManojINaik/manimAnimationAgent/store"
	"github.com/ManojINaik/manimAnimationAgent/tasks"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type Server struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine
	Store  store.StatusStore
	Memory memory.Memory
}

func NewServer(cfg *config.Config) (*Server, error) {
	db := platform.NewDBConnection()
	rdb := platform.NewRedisClient()

	st, err := store.NewGormStore(db)
	if err != nil {
		return nil, err
	}

	var mem memory.Memory = memory.Noop{}
	if cfg.UseMemory {
		m, err := memory.NewSQLiteMemory(cfg.MemoryDBPath)
		if err != nil {
			log.Printf("Warning: agent memory unavailable: %v", err)
		} else {
			mem = m
		}
	}

	router := gin.Default()
	server := &Server{
		DB:     db,
		Redis:  rdb,
		Router: router,
		Store:  st,
		Memory: mem,
	}
	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check (no auth required)
	s.Router.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "healthy", "database": "connected"})
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Manim Animation Agent API v1"})
	})

	protected := s.Router.Group("")
	protected.Use(auth.Middleware())
	{
		protected.POST("/videos", s.createVideo)
		protected.GET("/videos/:id", s.getVideo)
	}

	admin := s.Router.Group("/memory")
	admin.Use(auth.Middleware(), auth.AdminOnly())
	{
		admin.GET("/stats", s.memoryStats)
		admin.DELETE("", s.clearMemory)
	}
}

type createVideoRequest struct {
	Topic       string `json:"topic" binding:"required"`
	Description string `json:"description"`
}

// createVideo records a queued video and hands it to the worker.
func (s *Server) createVideo(c *gin.Context) {
	var req createVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	video := models.Video{
		Topic:       req.Topic,
		Description: req.Description,
		Status:      models.VideoStatusQueued,
	}
	if err := s.Store.CreateVideo(c.Request.Context(), &video); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create video"})
		return
	}

	payload, err := tasks.Marshal(tasks.GenerateTaskPayload{VideoID: video.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue video"})
		return
	}
	if err := s.Redis.LPush(c.Request.Context(), tasks.QueueVideoGenerate, payload).Err(); err != nil {
		if err := s.Store.UpdateVideoStatus(c.Request.Context(), video.ID, models.VideoStatusFailed, "enqueue failed: "+err.Error()); err != nil {
			log.Printf("Warning: cannot mark video %d failed: %v", video.ID, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue video"})
		return
	}

	c.JSON(http.StatusCreated, video)
}

// getVideo returns a video row plus its per-scene statuses.
func (s *Server) getVideo(c *gin.Context) {
	var video models.Video
	if err := s.DB.First(&video, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	var scenes []models.VideoScene
	if err := s.DB.Where("video_id = ?", video.ID).Order("scene_number").Find(&scenes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scenes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"video": video, "scenes": scenes})
}

func (s *Server) memoryStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Memory.Stats(c.Request.Context()))
}

// clearMemory wipes the pattern store. The confirm query flag is required so
// the endpoint cannot be triggered by a stray request.
func (s *Server) clearMemory(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pass ?confirm=true to clear agent memory"})
		return
	}
	if err := s.Memory.Clear(c.Request.Context(), true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func main() {
	issueToken := flag.String("issue-token", "", "print a bearer token for the given subject and exit")
	issueAdmin := flag.Bool("admin", false, "grant the admin claim on the issued token")
	flag.Parse()

	cfg := config.Load()

	// Tokens are operator-issued; there is no self-service signup.
	if *issueToken != "" {
		token, err := auth.GenerateJWT(*issueToken, *issueAdmin)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("API listening on :%s", port)
	if err := server.Router.Run(":" + port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
