// Package worker consumes pipeline tasks from Redis list queues. Multiple
// worker instances can run concurrently: BRPop delivers each task to exactly
// one of them.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/ManojINaik/manimAnimationAgent/tasks"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// TaskHandler is a function that processes a task payload.
type TaskHandler func(ctx context.Context, payload string) error

// Processor holds dependencies and registered task handlers.
type Processor struct {
	DB       *gorm.DB
	RDB      *redis.Client
	handlers map[string]TaskHandler
}

// NewProcessor creates a new worker processor.
func NewProcessor(db *gorm.DB, rdb *redis.Client) *Processor {
	return &Processor{
		DB:       db,
		RDB:      rdb,
		handlers: make(map[string]TaskHandler),
	}
}

// Register maps a queue name to a handler function.
func (p *Processor) Register(queueName string, handler TaskHandler) {
	p.handlers[queueName] = handler
	log.Printf("Registered handler for queue: %s", queueName)
}

// Enqueue adds a new task to a queue.
func (p *Processor) Enqueue(ctx context.Context, queueName string, payload interface{}) error {
	payloadStr, err := tasks.Marshal(payload)
	if err != nil {
		return err
	}
	return p.RDB.LPush(ctx, queueName, payloadStr).Err()
}

// Listen blocks, popping tasks from the registered queues until the context
// is cancelled. A single pipeline run can take many minutes, so tasks on one
// worker are processed sequentially; scale out with more worker processes.
func (p *Processor) Listen(ctx context.Context, queueNames ...string) {
	log.Printf("Worker listening on %d queues: %v", len(queueNames), queueNames)

	for {
		result, err := p.RDB.BRPop(ctx, 0, queueNames...).Result()
		if err != nil {
			if ctx.Err() != nil {
				log.Println("Worker shutting down")
				return
			}
			log.Printf("Error popping from queue: %v", err)
			time.Sleep(1 * time.Second)
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		queueName := result[0]
		payload := result[1]

		handler, ok := p.handlers[queueName]
		if !ok {
			log.Printf("Error: No handler registered for queue %s", queueName)
			continue
		}

		log.Printf("Received task from queue %s", queueName)
		if err := handler(ctx, payload); err != nil {
			log.Printf("Error processing task from %s: %v", queueName, err)
		}
	}
}
