// Package config collects all runtime configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the pipeline reads. Construct it once per binary
// with Load and pass it down; nothing else reads the environment directly.
type Config struct {
	// Output layout
	OutputDir          string
	ContextLearningDir string
	DocsDir            string

	// Model selection
	SceneModel     string
	HelperModel    string
	EmbeddingModel string

	// Feature toggles
	UseRAG             bool
	UseContextLearning bool
	UseVisualFix       bool
	UseMemory          bool

	// Budgets
	MaxRetries           int
	MaxExtractionRetries int
	MaxSceneConcurrency  int
	RAGDocsPerQuery      int

	// The source never set timeouts on external calls; these are explicit here
	// so a wedged collaborator cannot hold a scene slot forever.
	LLMTimeout    time.Duration
	SearchTimeout time.Duration
	RenderTimeout time.Duration
	ProbeTimeout  time.Duration

	// Collaborator credentials
	OpenAIAPIKey string
	TavilyAPIKey string

	// Pattern memory
	MemoryDBPath string
}

// Load reads .env (if present) and assembles a Config with defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	return &Config{
		OutputDir:          getEnv("OUTPUT_DIR", "output"),
		ContextLearningDir: getEnv("CONTEXT_LEARNING_DIR", "data/context_learning"),
		DocsDir:            getEnv("MANIM_DOCS_DIR", "data/manim_docs"),

		SceneModel:     getEnv("SCENE_MODEL", "gpt-4o"),
		HelperModel:    getEnv("HELPER_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		UseRAG:             getEnvBool("USE_RAG", false),
		UseContextLearning: getEnvBool("USE_CONTEXT_LEARNING", false),
		UseVisualFix:       getEnvBool("USE_VISUAL_FIX_CODE", false),
		UseMemory:          getEnvBool("USE_AGENT_MEMORY", true),

		MaxRetries:           getEnvInt("MAX_RETRIES", 5),
		MaxExtractionRetries: getEnvInt("MAX_EXTRACTION_RETRIES", 10),
		MaxSceneConcurrency:  getEnvInt("MAX_SCENE_CONCURRENCY", 5),
		RAGDocsPerQuery:      getEnvInt("RAG_DOCS_PER_QUERY", 2),

		LLMTimeout:    getEnvDuration("LLM_TIMEOUT", 5*time.Minute),
		SearchTimeout: getEnvDuration("SEARCH_TIMEOUT", 30*time.Second),
		RenderTimeout: getEnvDuration("RENDER_TIMEOUT", 15*time.Minute),
		ProbeTimeout:  getEnvDuration("PROBE_TIMEOUT", 30*time.Second),

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),

		MemoryDBPath: getEnv("MEMORY_DB_PATH", "data/agent_memory.db"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Invalid bool for %s: %q, using default %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid int for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
