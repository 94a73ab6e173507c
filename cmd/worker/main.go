package main

import (
	"context"
	"log"

	"github.com/ManojINaik/manimAnimationAgent/assembler"
	"github.com/ManojINaik/manimAnimationAgent/codegen"
	"github.com/ManojINaik/manimAnimationAgent/config"
	"github.com/ManojINaik/manimAnimationAgent/internal/platform"
	"github.com/ManojINaik/manimAnimationAgent/llm"
	"github.com/ManojINaik/manimAnimationAgent/memory"
	"github.com/ManojINaik/manimAnimationAgent/pipeline"
	"github.com/ManojINaik/manimAnimationAgent/planner"
	"github.com/ManojINaik/manimAnimationAgent/rag"
	"github.com/ManojINaik/manimAnimationAgent/renderer"
	"github.com/ManojINaik/manimAnimationAgent/repair"
	"github.com/ManojINaik/manimAnimationAgent/search"
	"github.com/ManojINaik/manimAnimationAgent/store"
	"github.com/ManojINaik/manimAnimationAgent/tasks"
	"github.com/ManojINaik/manimAnimationAgent/worker"
)

func main() {
	cfg := config.Load()
	db := platform.NewDBConnection()
	rdb := platform.NewRedisClient()
	ctx := context.Background()

	if cfg.OpenAIAPIKey == "" {
		log.Fatal("OPENAI_API_KEY environment variable not set")
	}
	sceneModel := llm.NewClient(cfg.OpenAIAPIKey, cfg.SceneModel, cfg.EmbeddingModel, cfg.LLMTimeout)
	helperModel := llm.NewClient(cfg.OpenAIAPIKey, cfg.HelperModel, cfg.EmbeddingModel, cfg.LLMTimeout)

	var retriever rag.Retriever = rag.Noop{}
	if cfg.UseRAG {
		index := rag.NewEmbeddingIndex(cfg.DocsDir, sceneModel)
		retriever = rag.NewIndexRetriever(helperModel, index, cfg.OutputDir, cfg.RAGDocsPerQuery)
		log.Printf("Retrieval enabled over %s", cfg.DocsDir)
	}

	var mem memory.Memory = memory.Noop{}
	if cfg.UseMemory {
		m, err := memory.NewSQLiteMemory(cfg.MemoryDBPath)
		if err != nil {
			log.Printf("Warning: agent memory disabled: %v", err)
		} else {
			defer m.Close()
			mem = m
			log.Printf("Agent memory enabled at %s", cfg.MemoryDBPath)
		}
	}

	var searchClient search.Client = search.Unavailable{}
	if cfg.TavilyAPIKey != "" {
		searchClient = search.NewTavilyClient(cfg.TavilyAPIKey, cfg.SearchTimeout)
		log.Println("Error search enabled")
	}

	pl := planner.New(sceneModel, retriever)
	pl.DetectPlugins = planner.NewLLMPluginDetector(helperModel)
	pl.ExamplesDir = cfg.ContextLearningDir
	pl.UseContextLearning = cfg.UseContextLearning

	gen := codegen.New(sceneModel, retriever, mem)
	gen.ExamplesDir = cfg.ContextLearningDir
	gen.UseContextLearning = cfg.UseContextLearning
	gen.MaxExtractionRetries = cfg.MaxExtractionRetries

	var vision llm.VisionGenerator
	if cfg.UseVisualFix {
		vision = sceneModel
	}
	fixer := repair.New(sceneModel, vision, mem, searchClient, retriever)
	fixer.MaxExtractionRetries = cfg.MaxExtractionRetries

	rend := renderer.New(cfg.RenderTimeout, cfg.ProbeTimeout)

	st, err := store.NewGormStore(db)
	if err != nil {
		log.Fatalf("Failed to migrate status tables: %v", err)
	}

	pipe := &pipeline.Pipeline{
		Planner:             pl,
		Generator:           gen,
		Fixer:               fixer,
		Renderer:            rend,
		Assembler:           assembler.New(rend),
		Memory:              mem,
		Store:               st,
		MaxRetries:          cfg.MaxRetries,
		MaxSceneConcurrency: cfg.MaxSceneConcurrency,
	}

	handlers := worker.NewHandlers(db, pipe, cfg.OutputDir)
	processor := worker.NewProcessor(db, rdb)
	processor.Register(tasks.QueueVideoGenerate, handlers.VideoGenerate)

	log.Println("Worker started, waiting for queue tasks...")
	processor.Listen(ctx, tasks.QueueVideoGenerate)
}
